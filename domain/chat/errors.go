package chat

import (
	"fmt"
	"time"
)

// Typed failures produced by the chat pipeline. The HTTP layer matches on
// these with errors.As to pick the response status; anything that is none of
// them is treated as an unexpected internal failure.

// ValidationError rejects a request before any upstream call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TimeoutError reports that the upstream call exceeded its deadline.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s", e.Timeout)
}

// UpstreamError reports a non-2xx response from the completion API. Body
// holds the provider's decoded error payload, or {"message": <raw text>} when
// the body was not JSON.
type UpstreamError struct {
	StatusCode int
	Body       any
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream API error (status %d)", e.StatusCode)
}

// NetworkError reports that the upstream could not be reached at all:
// connection refused, DNS failure, an open circuit breaker and the like.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("network error: %v", e.Cause)
	}
	return "network error"
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// SchemaError reports a 2xx upstream response the relay cannot use, such as a
// missing choices list or a choice with no extractable text.
type SchemaError struct {
	Message string
}

func (e *SchemaError) Error() string {
	return e.Message
}
