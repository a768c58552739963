// Package api talks to the hosted asset store over GraphQL.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fulmenhq/otapublish/pkg/buildinfo"
	"github.com/fulmenhq/otapublish/pkg/config"
	"github.com/fulmenhq/otapublish/pkg/logger"
	"github.com/fulmenhq/otapublish/pkg/store"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// Client implements store.AssetStore against the GraphQL API
type Client struct {
	url     string
	token   string
	fetcher HTTPFetcher
	limiter *rate.Limiter
}

var _ store.AssetStore = (*Client)(nil)

// NewClient creates a Client with real HTTP for production use
func NewClient(cfg config.APIConfig) *Client {
	return NewClientWithFetcher(cfg.URL, cfg.Token, cfg.RequestsPerSecond, NewRealHTTPFetcher(NewSecureHTTPClient(cfg.Timeout)))
}

// NewClientWithFetcher creates a Client with injectable HTTP for testing.
// requestsPerSecond <= 0 disables throttling.
func NewClientWithFetcher(url, token string, requestsPerSecond float64, fetcher HTTPFetcher) *Client {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &Client{
		url:     url,
		token:   token,
		fetcher: fetcher,
		limiter: rate.NewLimiter(limit, burst),
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// execute runs one GraphQL document and decodes data into out
func (c *Client) execute(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	req.Header.Set("X-Request-Id", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger.Trace("GraphQL request", logger.String("operation", operation), logger.String("request_id", requestID))

	resp, err := c.fetcher.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &RequestError{Operation: operation, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	var decoded graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	if len(decoded.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range decoded.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	if len(decoded.Data) == 0 || string(decoded.Data) == "null" {
		return fmt.Errorf("%s response has no data", operation)
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", operation, err)
	}
	return nil
}
