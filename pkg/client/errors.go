package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRateLimitExhausted is returned when a request keeps being rate
	// limited (HTTP 429) beyond the configured retry budget.
	ErrRateLimitExhausted = errors.New("exp limit reached")

	// ErrContextCancelled is returned when the context is cancelled while
	// waiting out a retry backoff.
	ErrContextCancelled = errors.New("context cancelled")
)

// StatusError reports a response with an unexpected HTTP status. Statuses
// other than 200 and 429 are never retried and surface as this error.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d (%s): GET %s",
		e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// TransportError reports that no HTTP response was obtained at all
// (DNS failure, connection refused, reset, timeout). Not retried.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: GET %s: %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DuplicateIDError reports an Enqueue collision: the identifier is already
// pending in the queue.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("identifier %q already queued", e.ID)
}

// ErrorClass classifies request failures for observability.
type ErrorClass string

const (
	// ErrorClassClient represents non-retriable 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents HTTP 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport-level failures.
	ErrorClassNetwork ErrorClass = "network"
)

// classify categorizes a response status (or transport error) for metrics.
func classify(statusCode int, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
