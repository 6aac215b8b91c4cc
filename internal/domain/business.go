package domain

import (
	"encoding/json"
	"time"
)

// Data types the aggregator knows about. They select provider priority
// order, required fields and cache TTL.
const (
	DataBusinessInfo = "business_info"
	DataCompetitors  = "competitors"
	DataReviews      = "reviews"
)

// BusinessRecord is the canonical, provider-agnostic view of one business.
// Optional fields are pointers: absent means no configured provider supplied
// the value, which downstream consumers must tolerate.
type BusinessRecord struct {
	Name        string   `json:"name"`
	CanonicalID string   `json:"canonical_id,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`       // 0..5
	RatingCount *int     `json:"rating_count,omitempty"` // >= 0
	PriceTier   *int     `json:"price_tier,omitempty"`   // ordinal 1..4
	Address     *string  `json:"address,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	Categories  []string `json:"categories,omitempty"`

	// Source is the overall winner, e.g. "places" or "places+directory".
	// FieldSources records the winning provider per canonical field.
	Source       string            `json:"source,omitempty"`
	FieldSources map[string]string `json:"field_sources,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`

	// RawSources retains each provider's translated partial for audit.
	RawSources map[string]json.RawMessage `json:"raw_sources,omitempty"`

	// Diagnostics carries per-provider failure text on placeholder or
	// degraded records. Empty on clean fetches.
	Diagnostics map[string]string `json:"diagnostics,omitempty"`
}

// ReviewRecord is one customer review in canonical form. Rating is on the
// 0..5 scale regardless of the provider's native scale.
type ReviewRecord struct {
	Text        string    `json:"text"`
	Rating      float64   `json:"rating"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
	Language    string    `json:"language,omitempty"`
}

// CompetitorRecord is one nearby business comparable to the target.
type CompetitorRecord struct {
	Name        string   `json:"name"`
	Rating      *float64 `json:"rating,omitempty"`
	RatingCount *int     `json:"rating_count,omitempty"`
	PriceTier   *int     `json:"price_tier,omitempty"`
	DistanceKM  *float64 `json:"distance_km,omitempty"` // >= 0
	Source      string   `json:"source"`
	IsTarget    bool     `json:"is_target,omitempty"`
}

// Candidate is a provider search hit selected by the matching policy.
type Candidate struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`

	// ClosestMatch is set when no candidate matched the query name and the
	// first result was taken instead. Deliberate: naming noise must not
	// break the pipeline.
	ClosestMatch bool `json:"closest_match,omitempty"`
}
