//go:build integration || !unit

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	server "github.com/Ola-Yeenca/sme-solution/internal/adapters/http_server"
	"github.com/Ola-Yeenca/sme-solution/internal/adapters/places"
	"github.com/Ola-Yeenca/sme-solution/internal/app"
	"github.com/Ola-Yeenca/sme-solution/internal/cache"
	"github.com/Ola-Yeenca/sme-solution/internal/domain"
	"github.com/Ola-Yeenca/sme-solution/internal/ratelimit"
	"github.com/Ola-Yeenca/sme-solution/internal/retry"
)

// fakeUpstream speaks the places wire format so the real adapter, retry
// executor, limiter, aggregator and HTTP layer are all exercised together.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/textsearch/json", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{"place_id": "riua-1", "name": "La Riua",
					"geometry": map[string]any{"location": map[string]float64{"lat": 39.47, "lng": -0.37}}},
			},
		})
	})
	mux.HandleFunc("/details/json", func(w http.ResponseWriter, r *http.Request) {
		fields := r.URL.Query().Get("fields")
		if fields == "reviews" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "OK",
				"result": map[string]any{
					"reviews": []map[string]any{
						{"author_name": "Ana", "rating": 5, "text": "Best paella in town", "time": 1717200000, "language": "en"},
						{"author_name": "Ben", "rating": 4, "text": "Solid", "time": 1714600000, "language": "en"},
					},
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"result": map[string]any{
				"name": "La Riua", "rating": 4.3, "user_ratings_total": 812, "price_level": 2,
				"formatted_address": "Carrer del Mar 27, Valencia",
				"types":             []string{"restaurant"},
				"geometry":          map[string]any{"location": map[string]float64{"lat": 39.47, "lng": -0.37}},
			},
		})
	})
	mux.HandleFunc("/nearbysearch/json", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{"place_id": "riua-1", "name": "La Riua", "rating": 4.3, "price_level": 2,
					"geometry": map[string]any{"location": map[string]float64{"lat": 39.47, "lng": -0.37}}},
				{"place_id": "luz-1", "name": "Cafe Luz", "rating": 4.5, "price_level": 1, "user_ratings_total": 120,
					"geometry": map[string]any{"location": map[string]float64{"lat": 39.48, "lng": -0.37}}},
			},
		})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newAPI(t *testing.T, upstream string) *httptest.Server {
	t.Helper()

	adapter, err := places.New(upstream, "test-key")
	if err != nil {
		t.Fatalf("places.New: %v", err)
	}
	mgr := app.NewDataSourceManager(
		[]domain.ProviderAdapter{adapter},
		ratelimit.New(map[string]int{"places": 10_000}),
		map[string]*retry.Executor{"places": retry.New(1, time.Millisecond, 0)},
		cache.NewMemory(),
		app.Options{
			Priority: map[string][]string{
				domain.DataBusinessInfo: {"places"},
				domain.DataCompetitors:  {"places"},
				domain.DataReviews:      {"places"},
			},
		},
	)

	srv := server.New()
	srv.MountHandlers(&server.Handlers{M: mgr})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_Business(t *testing.T) {
	api := newAPI(t, fakeUpstream(t).URL)

	res, err := http.Get(fmt.Sprintf("%s/v1/business?name=%s&location=%s", api.URL, "La+Riua", "Valencia"))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	etag := res.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	var body struct {
		Name      string   `json:"name"`
		Rating    *float64 `json:"rating"`
		PriceTier *int     `json:"price_tier"`
		Source    string   `json:"source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Name != "La Riua" || body.Rating == nil || *body.Rating != 4.3 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.PriceTier == nil || *body.PriceTier != 2 || body.Source != "places" {
		t.Fatalf("unexpected body: %+v", body)
	}

	// Conditional re-request short-circuits on the ETag.
	req, _ := http.NewRequest("GET", fmt.Sprintf("%s/v1/business?name=La+Riua&location=Valencia", api.URL), nil)
	req.Header.Set("If-None-Match", etag)
	res2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusNotModified {
		t.Fatalf("status %d, want 304", res2.StatusCode)
	}
}

func TestHTTP_EndToEnd_BlankNameIs400(t *testing.T) {
	api := newAPI(t, fakeUpstream(t).URL)

	res, err := http.Get(api.URL + "/v1/business?name=")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type %q", ct)
	}
}

func TestHTTP_EndToEnd_Competitors(t *testing.T) {
	api := newAPI(t, fakeUpstream(t).URL)

	res, err := http.Get(api.URL + "/v1/competitors?name=La+Riua&location=Valencia")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}

	var comps []struct {
		Name     string `json:"name"`
		IsTarget bool   `json:"is_target"`
	}
	if err := json.NewDecoder(res.Body).Decode(&comps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(comps) != 1 || comps[0].Name != "Cafe Luz" {
		t.Fatalf("target must be excluded, got %+v", comps)
	}
}

func TestHTTP_EndToEnd_ReviewsLimitValidation(t *testing.T) {
	api := newAPI(t, fakeUpstream(t).URL)

	res, err := http.Get(api.URL + "/v1/reviews?name=La+Riua&limit=9000")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400 for out-of-range limit", res.StatusCode)
	}

	res2, err := http.Get(api.URL + "/v1/reviews?name=La+Riua&limit=1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res2.Body.Close()
	var revs []struct {
		Text   string `json:"text"`
		Author string `json:"author"`
	}
	if err := json.NewDecoder(res2.Body).Decode(&revs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(revs) != 1 || revs[0].Author != "Ana" {
		t.Fatalf("want newest single review from Ana, got %+v", revs)
	}
}
