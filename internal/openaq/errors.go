package openaq

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
)

// ErrMissingAPIKey is returned at construction time when no API key is
// configured. It is a configuration error, never a per-request one.
var ErrMissingAPIKey = errors.New("openaq: API key is required")

// APIError is a non-2xx response from the remote API.
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openaq: %s returned status %d", e.URL, e.StatusCode)
}

// Transient reports whether the status is worth retrying: rate limits
// and server-side failures are; other 4xx are permanent.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsTransient classifies an error from a provider call. Network-level
// failures and an open circuit breaker count as transient; malformed
// responses and non-429 4xx statuses do not.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
