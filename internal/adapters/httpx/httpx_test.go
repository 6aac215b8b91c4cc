package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ola-Yeenca/sme-solution/internal/adapters/httpx"
	"github.com/Ola-Yeenca/sme-solution/internal/domain"
)

func TestGetJSON_DecodesAndSendsHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "k" {
			t.Errorf("header not forwarded")
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("accept header missing")
		}
		_, _ = w.Write([]byte(`{"name":"La Riua"}`))
	}))
	defer ts.Close()

	var out struct {
		Name string `json:"name"`
	}
	err := httpx.GetJSON(context.Background(), ts.Client(), ts.URL, map[string]string{"X-Api-Key": "k"}, "p", "search", &out)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Name != "La Riua" {
		t.Fatalf("decoded %+v", out)
	}
}

func TestGetJSON_RetryAfterHTTPDate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", time.Now().Add(30*time.Second).UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	err := httpx.GetJSON(context.Background(), ts.Client(), ts.URL, nil, "p", "search", nil)
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || !pe.Throttled() {
		t.Fatalf("err = %v, want throttled ProviderError", err)
	}
	if pe.RetryAfter < 25*time.Second || pe.RetryAfter > 30*time.Second {
		t.Fatalf("RetryAfter = %v, want ~30s from HTTP-date", pe.RetryAfter)
	}
}

func TestGetJSON_BodyExcerptInError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"INVALID_REQUEST"}`))
	}))
	defer ts.Close()

	err := httpx.GetJSON(context.Background(), ts.Client(), ts.URL, nil, "p", "details", nil)
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.Status != http.StatusBadRequest {
		t.Fatalf("err = %v", err)
	}
	if pe.Message == "" {
		t.Fatalf("error body excerpt missing")
	}
}

func TestGetJSON_CanceledContextSurfacesContextError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := httpx.GetJSON(ctx, ts.Client(), ts.URL, nil, "p", "search", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}
