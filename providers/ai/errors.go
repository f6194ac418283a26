package ai

import (
	"errors"
	"fmt"
)

// ProviderErrorKind classifies adapter-level failures. The retry wrapper and
// the node executors decide what to do based on the kind alone.
type ProviderErrorKind string

const (
	// KindAuth covers invalid or missing credentials. Never retried.
	KindAuth ProviderErrorKind = "auth"

	// KindRateLimited covers 429-style responses. Retried with backoff.
	KindRateLimited ProviderErrorKind = "rate_limited"

	// KindTimeout covers deadline exceeded and cancelled requests.
	KindTimeout ProviderErrorKind = "timeout"

	// KindInvalidResponse covers malformed or empty provider responses.
	// Never retried.
	KindInvalidResponse ProviderErrorKind = "invalid_response"
)

// ProviderError is the uniform failure shape surfaced by every adapter.
// It wraps the underlying transport or decode error when one exists.
type ProviderError struct {
	Provider string
	Kind     ProviderErrorKind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider %s: %s: %v", e.Provider, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s provider %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError with an optional cause.
func NewProviderError(provider string, kind ProviderErrorKind, message string, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Message: message, Err: cause}
}

// ErrorKind extracts the ProviderErrorKind from err, unwrapping as needed.
// Returns KindInvalidResponse, false when err carries no ProviderError.
func ErrorKind(err error) (ProviderErrorKind, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Kind, true
	}
	return KindInvalidResponse, false
}

// IsRetryable reports whether the error kind may succeed on a later attempt.
// Authentication and invalid-request failures are permanent by definition.
func IsRetryable(err error) bool {
	kind, ok := ErrorKind(err)
	if !ok {
		return false
	}
	return kind == KindRateLimited || kind == KindTimeout
}

// KindFromStatusCode maps an HTTP status code to a ProviderErrorKind.
// Used by the concrete adapters when normalizing non-2xx responses.
func KindFromStatusCode(statusCode int) ProviderErrorKind {
	switch {
	case statusCode == 401 || statusCode == 403:
		return KindAuth
	case statusCode == 429:
		return KindRateLimited
	case statusCode == 408 || statusCode == 504:
		return KindTimeout
	default:
		return KindInvalidResponse
	}
}
