package places_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ola-Yeenca/sme-solution/internal/adapters/places"
	"github.com/Ola-Yeenca/sme-solution/internal/domain"
)

func newServer(t *testing.T, h http.HandlerFunc) (*places.Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	cl, err := places.New(ts.URL, "test-key")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return cl, ts
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := places.New("http://x", ""); err == nil {
		t.Fatalf("expected error for empty API key")
	}
}

func TestSearch_ExactMatchPreferred(t *testing.T) {
	cl, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/textsearch/json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing key param")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{"place_id": "a", "name": "La Riua Restaurant"},
				{"place_id": "b", "name": "La Riua"},
			},
		})
	})

	cand, err := cl.Search(context.Background(), "la riua", "Valencia")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if cand.ID != "b" || cand.ClosestMatch {
		t.Fatalf("unexpected candidate: %+v", cand)
	}
}

func TestSearch_FirstCandidateFallback(t *testing.T) {
	cl, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{"place_id": "a", "name": "Completely Different"},
			},
		})
	})

	cand, err := cl.Search(context.Background(), "La Riua", "")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if cand.ID != "a" || !cand.ClosestMatch {
		t.Fatalf("want first-candidate closest match, got %+v", cand)
	}
}

func TestSearch_ZeroResultsIsNonRetryable404(t *testing.T) {
	cl, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ZERO_RESULTS"})
	})

	_, err := cl.Search(context.Background(), "Ghost Bar", "")
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if pe.Status != http.StatusNotFound || pe.Temporary() {
		t.Fatalf("want permanent 404, got %+v", pe)
	}
}

func TestDetails_MapsFields(t *testing.T) {
	cl, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"result": map[string]any{
				"name":               "La Riua",
				"rating":             4.3,
				"user_ratings_total": 812,
				"price_level":        0, // free collapses into tier 1
				"formatted_address":  "Carrer del Mar 27, Valencia",
				"types":              []string{"restaurant"},
				"geometry":           map[string]any{"location": map[string]float64{"lat": 39.47, "lng": -0.37}},
			},
		})
	})

	rec, err := cl.Details(context.Background(), "b")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if rec.Name != "La Riua" || *rec.Rating != 4.3 || *rec.RatingCount != 812 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.PriceTier == nil || *rec.PriceTier != 1 {
		t.Fatalf("price_level 0 should clamp to tier 1, got %v", rec.PriceTier)
	}
	if rec.Lat == nil || *rec.Lat != 39.47 {
		t.Fatalf("location not mapped: %+v", rec)
	}
}

func TestReviews_UnixTimestamps(t *testing.T) {
	cl, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"result": map[string]any{
				"reviews": []map[string]any{
					{"author_name": "Ana", "rating": 5, "text": "Great", "time": 1717200000, "language": "en"},
				},
			},
		})
	})

	revs, err := cl.Reviews(context.Background(), "b", 10)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(revs) != 1 {
		t.Fatalf("len = %d", len(revs))
	}
	want := time.Unix(1717200000, 0).UTC()
	if !revs[0].PublishedAt.Equal(want) || revs[0].Source != "places" {
		t.Fatalf("unexpected review: %+v", revs[0])
	}
}

func TestNearby_FlagsTargetAndEstimatesDistance(t *testing.T) {
	cl, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{"place_id": "self", "name": "La Riua", "rating": 4.3,
					"geometry": map[string]any{"location": map[string]float64{"lat": 39.47, "lng": -0.37}}},
				{"place_id": "other", "name": "Cafe Luz", "rating": 4.5, "price_level": 2,
					"geometry": map[string]any{"location": map[string]float64{"lat": 39.48, "lng": -0.37}}},
			},
		})
	})

	comps, err := cl.Nearby(context.Background(), domain.Candidate{ID: "self", Lat: 39.47, Lon: -0.37}, 2)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(comps) != 2 {
		t.Fatalf("len = %d", len(comps))
	}
	if !comps[0].IsTarget || comps[1].IsTarget {
		t.Fatalf("target flag wrong: %+v", comps)
	}
	if comps[1].DistanceKM == nil || *comps[1].DistanceKM < 0.5 || *comps[1].DistanceKM > 2 {
		t.Fatalf("distance estimate off: %v", comps[1].DistanceKM)
	}
}

func TestClient_429CarriesRetryAfter(t *testing.T) {
	cl, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := cl.Search(context.Background(), "La Riua", "")
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if !pe.Throttled() || pe.RetryAfter != 7*time.Second {
		t.Fatalf("unexpected throttle error: %+v", pe)
	}
}
