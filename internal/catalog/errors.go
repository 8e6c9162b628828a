package catalog

import (
	"fmt"
	"net/http"
)

// NotFoundError means the catalog answered but has no work with the key.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("catalog: no work with key %q", e.Key)
}

// UpstreamError covers transport failures, non-2xx answers and an open
// circuit breaker.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog: upstream %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("catalog: upstream %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ClientError reports a 4xx answer, which says nothing about catalog health.
func (e *UpstreamError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// ParseError means the catalog answered with a body that is not the
// expected JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("catalog: malformed response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
