package api

import (
	"errors"
	"fmt"
	"strings"
)

// HTTPError is a non-2xx response from the API
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Body)
}

// GraphQLError carries the messages of a response's errors array
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// RequestError is a request that never produced a response
type RequestError struct {
	Operation string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Operation, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err came from talking to the API,
// as opposed to a local or protocol failure.
func IsNetworkError(err error) bool {
	var httpErr *HTTPError
	var gqlErr *GraphQLError
	var reqErr *RequestError
	return errors.As(err, &httpErr) || errors.As(err, &gqlErr) || errors.As(err, &reqErr)
}
