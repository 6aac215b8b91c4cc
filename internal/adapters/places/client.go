// Package places adapts a Places-style directory API (key query-param auth,
// textsearch/details/nearbysearch endpoints) to the canonical schema.
package places

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/Ola-Yeenca/sme-solution/internal/adapters/httpx"
	"github.com/Ola-Yeenca/sme-solution/internal/domain"
)

const providerName = "places"

type Client struct {
	base string
	key  string
	hc   *http.Client
}

func New(base, key string) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("places: API key is required")
	}
	return &Client{
		base: base,
		key:  key,
		hc:   &http.Client{Timeout: 20 * time.Second},
	}, nil
}

func (c *Client) Name() string { return providerName }

// ---- wire types ----

type searchResponse struct {
	Status  string        `json:"status"`
	Results []placeResult `json:"results"`
}

type detailsResponse struct {
	Status string      `json:"status"`
	Result placeResult `json:"result"`
}

type placeResult struct {
	PlaceID          string        `json:"place_id"`
	Name             string        `json:"name"`
	FormattedAddress string        `json:"formatted_address"`
	Rating           *float64      `json:"rating"`
	UserRatingsTotal *int          `json:"user_ratings_total"`
	PriceLevel       *int          `json:"price_level"` // 0..4
	Types            []string      `json:"types"`
	Geometry         placeGeometry `json:"geometry"`
	Reviews          []placeReview `json:"reviews"`
}

type placeGeometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type placeReview struct {
	AuthorName string  `json:"author_name"`
	Rating     float64 `json:"rating"`
	Text       string  `json:"text"`
	Time       int64   `json:"time"` // unix seconds
	Language   string  `json:"language"`
}

// ---- adapter methods ----

func (c *Client) Search(ctx context.Context, name, location string) (domain.Candidate, error) {
	query := name
	if location != "" {
		query = name + " in " + location
	}
	u := fmt.Sprintf("%s/textsearch/json?query=%s&type=establishment&key=%s",
		c.base, url.QueryEscape(query), url.QueryEscape(c.key))

	var out searchResponse
	if err := httpx.GetJSON(ctx, c.hc, u, nil, providerName, "search", &out); err != nil {
		return domain.Candidate{}, err
	}
	if err := c.bodyStatus(out.Status, "search"); err != nil {
		return domain.Candidate{}, err
	}

	names := make([]string, len(out.Results))
	for i, r := range out.Results {
		names[i] = r.Name
	}
	idx, closest := domain.MatchCandidate(name, names)
	if idx < 0 {
		return domain.Candidate{}, &domain.ProviderError{
			Provider: providerName, Op: "search",
			Status: http.StatusNotFound, Message: "no candidates for " + name,
		}
	}
	r := out.Results[idx]
	return domain.Candidate{
		ID:           r.PlaceID,
		Name:         r.Name,
		Address:      r.FormattedAddress,
		Lat:          r.Geometry.Location.Lat,
		Lon:          r.Geometry.Location.Lng,
		ClosestMatch: closest,
	}, nil
}

func (c *Client) Details(ctx context.Context, id string) (domain.BusinessRecord, error) {
	u := fmt.Sprintf("%s/details/json?place_id=%s&fields=%s&key=%s",
		c.base, url.QueryEscape(id),
		url.QueryEscape("name,rating,reviews,price_level,formatted_address,types,user_ratings_total,geometry"),
		url.QueryEscape(c.key))

	var out detailsResponse
	if err := httpx.GetJSON(ctx, c.hc, u, nil, providerName, "details", &out); err != nil {
		return domain.BusinessRecord{}, err
	}
	if err := c.bodyStatus(out.Status, "details"); err != nil {
		return domain.BusinessRecord{}, err
	}
	return c.toRecord(id, out.Result), nil
}

func (c *Client) Reviews(ctx context.Context, id string, limit int) ([]domain.ReviewRecord, error) {
	u := fmt.Sprintf("%s/details/json?place_id=%s&fields=reviews&key=%s",
		c.base, url.QueryEscape(id), url.QueryEscape(c.key))

	var out detailsResponse
	if err := httpx.GetJSON(ctx, c.hc, u, nil, providerName, "reviews", &out); err != nil {
		return nil, err
	}
	if err := c.bodyStatus(out.Status, "reviews"); err != nil {
		return nil, err
	}

	revs := out.Result.Reviews
	if limit > 0 && len(revs) > limit {
		revs = revs[:limit]
	}
	res := make([]domain.ReviewRecord, 0, len(revs))
	for _, r := range revs {
		res = append(res, domain.ReviewRecord{
			Text:        r.Text,
			Rating:      r.Rating, // already 0..5
			Author:      r.AuthorName,
			PublishedAt: time.Unix(r.Time, 0).UTC(),
			Source:      providerName,
			Language:    r.Language,
		})
	}
	return res, nil
}

func (c *Client) Nearby(ctx context.Context, cand domain.Candidate, radiusKM float64) ([]domain.CompetitorRecord, error) {
	u := fmt.Sprintf("%s/nearbysearch/json?location=%s&radius=%d&type=establishment&key=%s",
		c.base,
		url.QueryEscape(fmt.Sprintf("%f,%f", cand.Lat, cand.Lon)),
		int(radiusKM*1000),
		url.QueryEscape(c.key))

	var out searchResponse
	if err := httpx.GetJSON(ctx, c.hc, u, nil, providerName, "nearby", &out); err != nil {
		return nil, err
	}
	if err := c.bodyStatus(out.Status, "nearby"); err != nil {
		return nil, err
	}

	comps := make([]domain.CompetitorRecord, 0, len(out.Results))
	for _, r := range out.Results {
		d := roughKM(cand.Lat, cand.Lon, r.Geometry.Location.Lat, r.Geometry.Location.Lng)
		comps = append(comps, domain.CompetitorRecord{
			Name:        r.Name,
			Rating:      r.Rating,
			RatingCount: r.UserRatingsTotal,
			PriceTier:   tierFromLevel(r.PriceLevel),
			DistanceKM:  &d,
			Source:      providerName,
			IsTarget:    r.PlaceID == cand.ID,
		})
	}
	return comps, nil
}

// ---- translation helpers ----

func (c *Client) toRecord(id string, r placeResult) domain.BusinessRecord {
	rec := domain.BusinessRecord{
		Name:        r.Name,
		CanonicalID: id,
		Rating:      r.Rating, // native 0..5 scale
		RatingCount: r.UserRatingsTotal,
		PriceTier:   tierFromLevel(r.PriceLevel),
		Categories:  r.Types,
		Source:      providerName,
	}
	if r.FormattedAddress != "" {
		addr := r.FormattedAddress
		rec.Address = &addr
	}
	if r.Geometry.Location.Lat != 0 || r.Geometry.Location.Lng != 0 {
		lat, lon := r.Geometry.Location.Lat, r.Geometry.Location.Lng
		rec.Lat, rec.Lon = &lat, &lon
	}
	return rec
}

// tierFromLevel maps the provider's 0..4 price level to the 1..4 ordinal
// tier (0 = free collapses into the lowest tier).
func tierFromLevel(level *int) *int {
	if level == nil {
		return nil
	}
	t := *level
	if t < 1 {
		t = 1
	}
	if t > 4 {
		t = 4
	}
	return &t
}

// bodyStatus maps the provider's in-body status vocabulary to errors. The
// transport already succeeded, so everything here is non-retryable.
func (c *Client) bodyStatus(status, op string) error {
	switch status {
	case "OK", "":
		return nil
	case "ZERO_RESULTS":
		return &domain.ProviderError{Provider: providerName, Op: op, Status: http.StatusNotFound, Message: "zero results"}
	default:
		return &domain.ProviderError{Provider: providerName, Op: op, Status: http.StatusBadRequest, Message: "status " + status}
	}
}

// roughKM approximates the distance between two coordinates; fine for
// ranking competitors within a few km.
func roughKM(lat1, lon1, lat2, lon2 float64) float64 {
	dx := lat1 - lat2
	dy := lon1 - lon2
	return math.Sqrt(dx*dx+dy*dy) * 111
}
