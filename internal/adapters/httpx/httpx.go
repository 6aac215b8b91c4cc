// Package httpx performs single-attempt JSON requests for provider adapters.
// It never retries: classification happens here, retry policy lives in the
// retry executor.
package httpx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Ola-Yeenca/sme-solution/internal/adapters/observability"
	"github.com/Ola-Yeenca/sme-solution/internal/domain"
)

// DoJSON issues req once and decodes a 2xx body into out. Non-2xx statuses
// become a *domain.ProviderError carrying the status and any Retry-After
// hint; transport failures are returned as-is for the executor to classify.
func DoJSON(ctx context.Context, hc *http.Client, req *http.Request, provider, op string, out any) error {
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		observability.ObserveProvider(provider, op, 0, time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	observability.ObserveProvider(provider, op, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	// read a small error body for diagnostics
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &domain.ProviderError{
		Provider:   provider,
		Op:         op,
		Status:     resp.StatusCode,
		RetryAfter: retryAfter(resp),
		Message:    strings.TrimSpace(string(b)),
	}
}

// GetJSON builds and runs a GET with optional headers.
func GetJSON(ctx context.Context, hc *http.Client, url string, headers map[string]string, provider, op string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return DoJSON(ctx, hc, req, provider, op, out)
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent
// or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
