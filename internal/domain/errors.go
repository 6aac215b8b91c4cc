package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrInvalidInput is the only error surfaced to API callers: the
	// business name was blank. Everything else degrades, never fails.
	ErrInvalidInput = errors.New("business name is required")

	// ErrRateLimitExceeded marks retry exhaustion where the last failure
	// was a 429.
	ErrRateLimitExceeded = errors.New("provider rate limit exceeded")

	// ErrProviderUnavailable marks retry exhaustion on 5xx or transport
	// failures.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderDisabled is returned by the rate limiter for providers
	// configured with calls_per_minute == 0 (or not configured at all).
	ErrProviderDisabled = errors.New("provider disabled")
)

// ProviderError is a classified failure from one provider call. Adapters
// produce it; the retry executor decides retryability from Status.
type ProviderError struct {
	Provider   string
	Op         string // search|details|reviews|nearby
	Status     int    // HTTP status; 0 for non-HTTP failures
	RetryAfter time.Duration
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Message)
}

// Temporary reports whether the call may succeed if repeated: throttling,
// server-side errors and transport failures qualify, other 4xx do not.
func (e *ProviderError) Temporary() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Throttled reports whether the provider asked us to back off.
func (e *ProviderError) Throttled() bool {
	return e.Status == http.StatusTooManyRequests
}
