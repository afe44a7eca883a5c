// errors.go - Typed errors for provider failures and their retry classification

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoProvidersConfigured is returned before any network call when no provider has credentials.
var ErrNoProvidersConfigured = errors.New("no AI providers configured")

// retryable is implemented by errors that know whether another attempt can succeed.
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err should be retried against the same provider.
// Unclassified errors are not retried.
func IsRetryable(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// ConfigurationError means a provider cannot be built, usually for a missing API key.
type ConfigurationError struct {
	Provider string
	Message  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: configuration error: %s", e.Provider, e.Message)
}

// Retryable implements retryable.
func (e *ConfigurationError) Retryable() bool { return false }

// ProviderHTTPError is a non-2xx response from a backend.
type ProviderHTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderHTTPError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, truncate(e.Body, 500))
}

// Retryable is true for 429 and 5xx.
func (e *ProviderHTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Category returns a short label used in API error payloads.
func (e *ProviderHTTPError) Category() string {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case e.StatusCode == http.StatusUnauthorized:
		return "unauthorized"
	case e.StatusCode == http.StatusForbidden:
		return "forbidden"
	case e.StatusCode == http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case e.StatusCode >= http.StatusInternalServerError:
		return "server_error"
	default:
		return "bad_request"
	}
}

// TimeoutError is an attempt that exceeded its time bound.
type TimeoutError struct {
	Provider string
	Timeout  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request timed out after %s", e.Provider, e.Timeout)
}

// Retryable implements retryable.
func (e *TimeoutError) Retryable() bool { return true }

// Is lets errors.Is(err, context.DeadlineExceeded) match timeouts.
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// NetworkError is a transport failure before any HTTP response arrived.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Retryable implements retryable.
func (e *NetworkError) Retryable() bool { return true }

// ParseError is a response that holds no usable JSON. Retrying reproduces it.
type ParseError struct {
	Provider string
	Reason   string
	Content  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse response: %s (content: %q)", e.Provider, e.Reason, truncate(e.Content, 200))
}

// Retryable implements retryable.
func (e *ParseError) Retryable() bool { return false }

// ProviderFailure is one provider's terminal error inside an AggregateFailure.
type ProviderFailure struct {
	Provider string
	Err      error
}

// AggregateFailure is returned when every candidate provider failed.
type AggregateFailure struct {
	Failures []ProviderFailure
}

func (e *AggregateFailure) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("[%s] %v", f.Provider, f.Err))
	}
	return fmt.Sprintf("all %d AI providers failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes every provider error to errors.Is and errors.As.
func (e *AggregateFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Messages returns the failure message per provider.
func (e *AggregateFailure) Messages() map[string]string {
	out := make(map[string]string, len(e.Failures))
	for _, f := range e.Failures {
		out[f.Provider] = f.Err.Error()
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}
