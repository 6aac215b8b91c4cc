// Package retry wraps single idempotent provider calls with exponential
// backoff, jitter and Retry-After handling.
package retry

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/Ola-Yeenca/sme-solution/internal/domain"
)

// Executor retries one network operation. Classification comes from the
// typed *domain.ProviderError the adapters return:
//
//	429            retry after max(Retry-After, base*2^attempt) + jitter[0,2s]
//	5xx/transport  retry after base*2^attempt + jitter
//	other 4xx      fail immediately, non-retryable
//
// Exhaustion maps to ErrRateLimitExceeded when the last failure was a 429
// and ErrProviderUnavailable otherwise.
type Executor struct {
	maxRetries int
	baseDelay  time.Duration

	// interval spaces this instance's own requests independently of the
	// shared per-provider limiter.
	interval *rate.Limiter

	sleep func(context.Context, time.Duration) error // injectable for tests
}

// New builds an Executor. minInterval <= 0 disables the per-instance
// spacing; maxRetries < 0 is treated as zero.
func New(maxRetries int, baseDelay, minInterval time.Duration) *Executor {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	e := &Executor{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      sleepCtx,
	}
	if minInterval > 0 {
		e.interval = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	return e
}

// Do runs op until it succeeds, fails permanently, or retries are exhausted.
func (e *Executor) Do(ctx context.Context, op func(context.Context) error) error {
	if e.interval != nil {
		if err := e.interval.Wait(ctx); err != nil {
			return err
		}
		// Spread instances that woke up together.
		if err := e.sleep(ctx, jitter(250*time.Millisecond)); err != nil {
			return err
		}
	}

	var (
		lastErr   error
		throttled bool
	)
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var wait time.Duration
		var pe *domain.ProviderError
		switch {
		case errors.As(err, &pe) && pe.Throttled():
			wait = e.backoff(attempt)
			if pe.RetryAfter > wait {
				wait = pe.RetryAfter
			}
			wait += jitter(2 * time.Second)
			throttled = true
		case errors.As(err, &pe) && !pe.Temporary():
			return err // unrecoverable request, do not waste retries
		default:
			// 5xx or transport-level failure
			wait = e.backoff(attempt) + jitter(time.Second)
			throttled = false
		}

		lastErr = err
		if attempt >= e.maxRetries {
			break
		}
		if serr := e.sleep(ctx, wait); serr != nil {
			return serr
		}
	}

	if throttled {
		return fmt.Errorf("%v: %w", lastErr, domain.ErrRateLimitExceeded)
	}
	return fmt.Errorf("%v: %w", lastErr, domain.ErrProviderUnavailable)
}

func (e *Executor) backoff(attempt int) time.Duration {
	if attempt > 16 {
		attempt = 16
	}
	return e.baseDelay * time.Duration(1<<attempt)
}

// jitter returns a concurrency-safe random duration in [0, max).
func jitter(max time.Duration) time.Duration {
	var b [2]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0
	}
	f := float64(uint16(b[0])<<8|uint16(b[1])) / 65535.0
	return time.Duration(f * float64(max))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
