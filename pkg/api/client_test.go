package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/otapublish/pkg/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	header    http.Header
	query     string
	variables map[string]any
}

// graphQLServer answers every POST with body and records what it received
func graphQLServer(t *testing.T, status int, body string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var seen []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		seen = append(seen, capturedRequest{header: r.Header.Clone(), query: req.Query, variables: req.Variables})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClientWithFetcher(srv.URL, "secret-token", 0, NewRealHTTPFetcher(srv.Client()))
}

func TestCheckExistence(t *testing.T) {
	srv, seen := graphQLServer(t, http.StatusOK, `{"data":{"asset":{"metadata":[
		{"storageKey":"k1","status":"EXISTS"},
		{"storageKey":"k2","status":"DOES_NOT_EXIST"}]}}}`)

	statuses, err := newTestClient(srv).CheckExistence(context.Background(), []string{"k1", "k2"})
	require.NoError(t, err)
	assert.Equal(t, []store.AssetStatus{
		{StorageKey: "k1", Status: store.StatusExists},
		{StorageKey: "k2", Status: store.StatusMissing},
	}, statuses)

	require.Len(t, *seen, 1)
	got := (*seen)[0]
	assert.Contains(t, got.query, "metadata(storageKeys: $storageKeys)")
	assert.Equal(t, []any{"k1", "k2"}, got.variables["storageKeys"])
	assert.Equal(t, "Bearer secret-token", got.header.Get("Authorization"))
	assert.Equal(t, "application/json", got.header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(got.header.Get("User-Agent"), "otapublish/"))
	_, err = uuid.Parse(got.header.Get("X-Request-Id"))
	assert.NoError(t, err)
}

func TestNegotiateUploads(t *testing.T) {
	spec1, _ := json.Marshal(map[string]any{"url": "https://bucket.test/", "fields": map[string]string{"key": "k1", "policy": "p"}})
	spec2, _ := json.Marshal(map[string]any{"url": "https://bucket.test/", "fields": map[string]string{"key": "k2"}})
	specs, _ := json.Marshal([]string{string(spec1), string(spec2)})
	srv, seen := graphQLServer(t, http.StatusOK,
		`{"data":{"asset":{"getSignedAssetUploadSpecifications":{"specifications":`+string(specs)+`}}}}`)

	got, err := newTestClient(srv).NegotiateUploads(context.Background(), []store.UploadRequest{
		{StorageKey: "k1", ContentType: "image/png"},
		{StorageKey: "k2", ContentType: "application/javascript"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://bucket.test/", got[0].URL)
	assert.Equal(t, map[string]string{"key": "k1", "policy": "p"}, got[0].Fields)
	assert.Equal(t, "k2", got[1].Fields["key"])

	assert.Equal(t, []any{"image/png", "application/javascript"}, (*seen)[0].variables["assetContentTypes"])
}

func TestNegotiateUploads_MalformedSpecification(t *testing.T) {
	srv, _ := graphQLServer(t, http.StatusOK,
		`{"data":{"asset":{"getSignedAssetUploadSpecifications":{"specifications":["not json"]}}}}`)

	_, err := newTestClient(srv).NegotiateUploads(context.Background(), []store.UploadRequest{{ContentType: "image/png"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload specification 0")
}

func TestAssetLimit(t *testing.T) {
	srv, seen := graphQLServer(t, http.StatusOK, `{"data":{"app":{"byId":{"id":"p1","assetLimitPerUpdateGroup":1400}}}}`)

	limit, err := newTestClient(srv).AssetLimit(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1400, limit)
	assert.Equal(t, "p1", (*seen)[0].variables["appId"])
}

func TestExecute_GraphQLErrors(t *testing.T) {
	srv, _ := graphQLServer(t, http.StatusOK, `{"data":null,"errors":[{"message":"Entity not authorized"},{"message":"second"}]}`)

	_, err := newTestClient(srv).AssetLimit(context.Background(), "p1")
	require.Error(t, err)

	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, []string{"Entity not authorized", "second"}, gqlErr.Messages)
	assert.True(t, IsNetworkError(err))
}

func TestExecute_HTTPStatus(t *testing.T) {
	srv, _ := graphQLServer(t, http.StatusBadGateway, "upstream unavailable")

	_, err := newTestClient(srv).CheckExistence(context.Background(), []string{"k"})
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Equal(t, "upstream unavailable", httpErr.Body)
}

func TestExecute_MissingData(t *testing.T) {
	srv, _ := graphQLServer(t, http.StatusOK, `{"data":null}`)

	_, err := newTestClient(srv).CheckExistence(context.Background(), []string{"k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data")
}

func TestExecute_TransportError(t *testing.T) {
	mock := NewMockHTTPFetcher()
	mock.AddError("https://api.test/graphql", errors.New("connection refused"))
	client := NewClientWithFetcher("https://api.test/graphql", "", 0, mock)

	_, err := client.CheckExistence(context.Background(), []string{"k"})
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.Contains(t, err.Error(), "connection refused")

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Header.Get("Authorization"))
}

func TestExecute_MockResponse(t *testing.T) {
	mock := NewMockHTTPFetcher()
	mock.AddResponse("https://api.test/graphql", http.StatusOK, `{"data":{"app":{"byId":{"id":"p","assetLimitPerUpdateGroup":7}}}}`)
	client := NewClientWithFetcher("https://api.test/graphql", "t", 5, mock)

	limit, err := client.AssetLimit(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 7, limit)
}

func TestExecute_CanceledContext(t *testing.T) {
	mock := NewMockHTTPFetcher()
	client := NewClientWithFetcher("https://api.test/graphql", "", 1, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.AssetLimit(ctx, "p")
	require.Error(t, err)
	assert.Empty(t, mock.Requests())
}
