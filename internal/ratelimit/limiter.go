// Package ratelimit provides per-provider sliding-window admission control.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/Ola-Yeenca/sme-solution/internal/adapters/observability"
	"github.com/Ola-Yeenca/sme-solution/internal/domain"
)

const window = time.Minute

// Limiter tracks call timestamps per provider and blocks admission while one
// more call would exceed that provider's calls-per-minute budget in the
// trailing 60s. Advisory: it only constrains calls routed through Admit.
type Limiter struct {
	mu     sync.Mutex
	limits map[string]int
	calls  map[string][]time.Time

	// injectable for tests
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New builds a Limiter from a provider -> calls_per_minute table. A zero or
// missing entry disables the provider: Admit fails immediately rather than
// blocking the caller forever.
func New(limits map[string]int) *Limiter {
	l := &Limiter{
		limits: make(map[string]int, len(limits)),
		calls:  make(map[string][]time.Time, len(limits)),
		now:    time.Now,
		sleep:  sleepCtx,
	}
	for p, n := range limits {
		l.limits[p] = n
	}
	return l
}

// Admit blocks until one more call to provider fits in the trailing window,
// then records it. Returns domain.ErrProviderDisabled for a zero budget and
// the context error if the caller gives up while waiting.
func (l *Limiter) Admit(ctx context.Context, provider string) error {
	for {
		l.mu.Lock()
		limit := l.limits[provider]
		if limit <= 0 {
			l.mu.Unlock()
			return domain.ErrProviderDisabled
		}

		now := l.now()
		recent := trim(l.calls[provider], now.Add(-window))
		if len(recent) < limit {
			l.calls[provider] = append(recent, now)
			l.mu.Unlock()
			return nil
		}

		// Full: the window frees up when the oldest call ages out.
		wait := window - now.Sub(recent[0])
		l.calls[provider] = recent
		l.mu.Unlock()

		observability.ObserveThrottle(provider)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func trim(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
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
