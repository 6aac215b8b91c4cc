// Package directory adapts a Directory-style API (Bearer auth, price
// glyphs, business/reviews endpoints) to the canonical schema.
package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ola-Yeenca/sme-solution/internal/adapters/httpx"
	"github.com/Ola-Yeenca/sme-solution/internal/domain"
)

const providerName = "directory"

// timeLayout is the provider's review timestamp format.
const timeLayout = "2006-01-02 15:04:05"

type Client struct {
	base string
	key  string
	hc   *http.Client
}

func New(base, key string) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("directory: API key is required")
	}
	return &Client{
		base: base,
		key:  key,
		hc:   &http.Client{Timeout: 20 * time.Second},
	}, nil
}

func (c *Client) Name() string { return providerName }

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.key}
}

// ---- wire types ----

type searchResponse struct {
	Businesses []business `json:"businesses"`
}

type business struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Rating      *float64   `json:"rating"`
	ReviewCount *int       `json:"review_count"`
	Price       string     `json:"price"` // glyph run, e.g. "$$"
	Categories  []category `json:"categories"`
	Coordinates struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
	Location struct {
		DisplayAddress []string `json:"display_address"`
	} `json:"location"`
	Distance float64 `json:"distance"` // meters, present on search
}

type category struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

type reviewsResponse struct {
	Reviews []review `json:"reviews"`
}

type review struct {
	Text        string  `json:"text"`
	Rating      float64 `json:"rating"`
	TimeCreated string  `json:"time_created"`
	User        struct {
		Name string `json:"name"`
	} `json:"user"`
}

// ---- adapter methods ----

func (c *Client) Search(ctx context.Context, name, location string) (domain.Candidate, error) {
	u := fmt.Sprintf("%s/businesses/search?term=%s&limit=20", c.base, url.QueryEscape(name))
	if location != "" {
		u += "&location=" + url.QueryEscape(location)
	}

	var out searchResponse
	if err := httpx.GetJSON(ctx, c.hc, u, c.headers(), providerName, "search", &out); err != nil {
		return domain.Candidate{}, err
	}

	names := make([]string, len(out.Businesses))
	for i, b := range out.Businesses {
		names[i] = b.Name
	}
	idx, closest := domain.MatchCandidate(name, names)
	if idx < 0 {
		return domain.Candidate{}, &domain.ProviderError{
			Provider: providerName, Op: "search",
			Status: http.StatusNotFound, Message: "no candidates for " + name,
		}
	}
	b := out.Businesses[idx]
	return domain.Candidate{
		ID:           b.ID,
		Name:         b.Name,
		Address:      strings.Join(b.Location.DisplayAddress, ", "),
		Lat:          b.Coordinates.Latitude,
		Lon:          b.Coordinates.Longitude,
		ClosestMatch: closest,
	}, nil
}

func (c *Client) Details(ctx context.Context, id string) (domain.BusinessRecord, error) {
	u := fmt.Sprintf("%s/businesses/%s", c.base, url.PathEscape(id))

	var b business
	if err := httpx.GetJSON(ctx, c.hc, u, c.headers(), providerName, "details", &b); err != nil {
		return domain.BusinessRecord{}, err
	}
	return c.toRecord(b), nil
}

func (c *Client) Reviews(ctx context.Context, id string, limit int) ([]domain.ReviewRecord, error) {
	u := fmt.Sprintf("%s/businesses/%s/reviews?limit=%d", c.base, url.PathEscape(id), limit)

	var out reviewsResponse
	if err := httpx.GetJSON(ctx, c.hc, u, c.headers(), providerName, "reviews", &out); err != nil {
		return nil, err
	}

	res := make([]domain.ReviewRecord, 0, len(out.Reviews))
	for _, r := range out.Reviews {
		ts, _ := time.Parse(timeLayout, r.TimeCreated) // zero time on parse failure
		res = append(res, domain.ReviewRecord{
			Text:        r.Text,
			Rating:      r.Rating, // already 0..5
			Author:      r.User.Name,
			PublishedAt: ts.UTC(),
			Source:      providerName,
		})
	}
	return res, nil
}

func (c *Client) Nearby(ctx context.Context, cand domain.Candidate, radiusKM float64) ([]domain.CompetitorRecord, error) {
	u := fmt.Sprintf("%s/businesses/search?latitude=%f&longitude=%f&radius=%d&limit=20",
		c.base, cand.Lat, cand.Lon, int(radiusKM*1000))

	var out searchResponse
	if err := httpx.GetJSON(ctx, c.hc, u, c.headers(), providerName, "nearby", &out); err != nil {
		return nil, err
	}

	comps := make([]domain.CompetitorRecord, 0, len(out.Businesses))
	for _, b := range out.Businesses {
		km := b.Distance / 1000
		comps = append(comps, domain.CompetitorRecord{
			Name:        b.Name,
			Rating:      b.Rating,
			RatingCount: b.ReviewCount,
			PriceTier:   tierFromGlyphs(b.Price),
			DistanceKM:  &km,
			Source:      providerName,
			IsTarget:    b.ID == cand.ID,
		})
	}
	return comps, nil
}

// ---- translation helpers ----

func (c *Client) toRecord(b business) domain.BusinessRecord {
	rec := domain.BusinessRecord{
		Name:        b.Name,
		CanonicalID: b.ID,
		Rating:      b.Rating,
		RatingCount: b.ReviewCount,
		PriceTier:   tierFromGlyphs(b.Price),
		Source:      providerName,
	}
	if addr := strings.Join(b.Location.DisplayAddress, ", "); addr != "" {
		rec.Address = &addr
	}
	if b.Coordinates.Latitude != 0 || b.Coordinates.Longitude != 0 {
		lat, lon := b.Coordinates.Latitude, b.Coordinates.Longitude
		rec.Lat, rec.Lon = &lat, &lon
	}
	for _, cat := range b.Categories {
		if cat.Title != "" {
			rec.Categories = append(rec.Categories, cat.Title)
		}
	}
	return rec
}

// tierFromGlyphs counts the price glyph run ("$$" -> 2), clamped to 1..4.
func tierFromGlyphs(glyphs string) *int {
	n := len([]rune(strings.TrimSpace(glyphs)))
	if n == 0 {
		return nil
	}
	if n > 4 {
		n = 4
	}
	return &n
}
