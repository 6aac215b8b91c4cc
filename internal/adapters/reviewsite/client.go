// Package reviewsite adapts a ReviewSite-style API (gateway header auth,
// 0..10 scores, price glyph tags) to the canonical schema.
package reviewsite

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

const providerName = "reviewsite"

type Client struct {
	base string
	key  string
	host string
	hc   *http.Client
}

// New configures the client. host is the gateway routing header value; it
// may be empty for direct deployments.
func New(base, key, host string) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("reviewsite: API key is required")
	}
	return &Client{
		base: base,
		key:  key,
		host: host,
		hc:   &http.Client{Timeout: 20 * time.Second},
	}, nil
}

func (c *Client) Name() string { return providerName }

func (c *Client) headers() map[string]string {
	h := map[string]string{"X-Api-Key": c.key}
	if c.host != "" {
		h["X-Api-Host"] = c.host
	}
	return h
}

// ---- wire types ----

type searchResponse struct {
	Data []location `json:"data"`
}

type location struct {
	LocationID  string   `json:"location_id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Score       *float64 `json:"score"` // 0..10
	NumReviews  *int     `json:"num_reviews"`
	PriceTag    string   `json:"price_tag"` // glyph run, e.g. "€€"
	Subcategory []string `json:"subcategory"`
	DistanceKM  *float64 `json:"distance_km"` // present on nearby
}

type reviewsResponse struct {
	Data []review `json:"data"`
}

type review struct {
	Text          string  `json:"text"`
	Score         float64 `json:"score"` // 0..10
	PublishedDate string  `json:"published_date"`
	Author        string  `json:"author"`
	Lang          string  `json:"lang"`
}

// ---- adapter methods ----

func (c *Client) Search(ctx context.Context, name, location string) (domain.Candidate, error) {
	query := name
	if location != "" {
		query = name + " " + location
	}
	u := fmt.Sprintf("%s/locations/search?query=%s&limit=20", c.base, url.QueryEscape(query))

	var out searchResponse
	if err := httpx.GetJSON(ctx, c.hc, u, c.headers(), providerName, "search", &out); err != nil {
		return domain.Candidate{}, err
	}

	names := make([]string, len(out.Data))
	for i, l := range out.Data {
		names[i] = l.Name
	}
	idx, closest := domain.MatchCandidate(name, names)
	if idx < 0 {
		return domain.Candidate{}, &domain.ProviderError{
			Provider: providerName, Op: "search",
			Status: http.StatusNotFound, Message: "no candidates for " + name,
		}
	}
	l := out.Data[idx]
	return domain.Candidate{
		ID:           l.LocationID,
		Name:         l.Name,
		Address:      l.Address,
		Lat:          l.Latitude,
		Lon:          l.Longitude,
		ClosestMatch: closest,
	}, nil
}

func (c *Client) Details(ctx context.Context, id string) (domain.BusinessRecord, error) {
	u := fmt.Sprintf("%s/locations/%s", c.base, url.PathEscape(id))

	var l location
	if err := httpx.GetJSON(ctx, c.hc, u, c.headers(), providerName, "details", &l); err != nil {
		return domain.BusinessRecord{}, err
	}
	return c.toRecord(l), nil
}

func (c *Client) Reviews(ctx context.Context, id string, limit int) ([]domain.ReviewRecord, error) {
	u := fmt.Sprintf("%s/locations/%s/reviews?limit=%d", c.base, url.PathEscape(id), limit)

	var out reviewsResponse
	if err := httpx.GetJSON(ctx, c.hc, u, c.headers(), providerName, "reviews", &out); err != nil {
		return nil, err
	}

	res := make([]domain.ReviewRecord, 0, len(out.Data))
	for _, r := range out.Data {
		ts, _ := time.Parse(time.RFC3339, r.PublishedDate)
		res = append(res, domain.ReviewRecord{
			Text:        r.Text,
			Rating:      r.Score / 2, // 0..10 -> 0..5
			Author:      r.Author,
			PublishedAt: ts.UTC(),
			Source:      providerName,
			Language:    r.Lang,
		})
	}
	return res, nil
}

func (c *Client) Nearby(ctx context.Context, cand domain.Candidate, radiusKM float64) ([]domain.CompetitorRecord, error) {
	u := fmt.Sprintf("%s/locations/nearby?lat=%f&lng=%f&radius_km=%f&limit=20",
		c.base, cand.Lat, cand.Lon, radiusKM)

	var out searchResponse
	if err := httpx.GetJSON(ctx, c.hc, u, c.headers(), providerName, "nearby", &out); err != nil {
		return nil, err
	}

	comps := make([]domain.CompetitorRecord, 0, len(out.Data))
	for _, l := range out.Data {
		comps = append(comps, domain.CompetitorRecord{
			Name:        l.Name,
			Rating:      halfScore(l.Score),
			RatingCount: l.NumReviews,
			PriceTier:   tierFromGlyphs(l.PriceTag),
			DistanceKM:  l.DistanceKM,
			Source:      providerName,
			IsTarget:    l.LocationID == cand.ID,
		})
	}
	return comps, nil
}

// ---- translation helpers ----

func (c *Client) toRecord(l location) domain.BusinessRecord {
	rec := domain.BusinessRecord{
		Name:        l.Name,
		CanonicalID: l.LocationID,
		Rating:      halfScore(l.Score),
		RatingCount: l.NumReviews,
		PriceTier:   tierFromGlyphs(l.PriceTag),
		Categories:  l.Subcategory,
		Source:      providerName,
	}
	if l.Address != "" {
		addr := l.Address
		rec.Address = &addr
	}
	if l.Latitude != 0 || l.Longitude != 0 {
		lat, lon := l.Latitude, l.Longitude
		rec.Lat, rec.Lon = &lat, &lon
	}
	return rec
}

// halfScore converts the provider's 0..10 score to the canonical 0..5.
func halfScore(s *float64) *float64 {
	if s == nil {
		return nil
	}
	v := *s / 2
	return &v
}

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
