package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for provider operations.
var (
	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrProviderDown indicates the provider is temporarily unavailable.
	ErrProviderDown = errors.New("provider unavailable")

	// ErrAuth indicates the provider rejected the API key.
	ErrAuth = errors.New("provider authentication failed")

	// ErrNoAdapter indicates no adapter is configured for a provider kind.
	ErrNoAdapter = errors.New("no adapter configured")

	// ErrMalformedResponse indicates a 2xx body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// maxErrorBody is the maximum number of characters of an error body kept
// in an Error. Longer bodies are cut so secrets and huge payloads stay out
// of logs and run records.
const maxErrorBody = 200

// Error is returned when a provider answers with a non-success HTTP status.
type Error struct {
	Provider   Kind
	StatusCode int
	Body       string
}

// NewError builds an Error, truncating body to maxErrorBody characters.
func NewError(kind Kind, status int, body []byte) *Error {
	return &Error{
		Provider:   kind,
		StatusCode: status,
		Body:       truncate(string(body), maxErrorBody),
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap maps the status code onto the matching sentinel error.
func (e *Error) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimit
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrAuth
	case e.StatusCode >= 500:
		return ErrProviderDown
	default:
		return nil
	}
}

// IsRetryable reports whether the error is transient.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderDown)
}

// truncate returns at most n characters of s.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
