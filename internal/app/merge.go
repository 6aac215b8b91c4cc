package app

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/Ola-Yeenca/sme-solution/internal/domain"
)

// mergeBusinessRecords folds priority-ordered partials into one canonical
// record. First writer wins per field: once a higher-priority source fills a
// field, lower-priority partials never overwrite it. Source lists the
// providers that won at least one field, in priority order.
func mergeBusinessRecords(partials []domain.BusinessRecord) domain.BusinessRecord {
	merged := domain.BusinessRecord{
		FieldSources: make(map[string]string),
		RawSources:   make(map[string]json.RawMessage),
	}
	var contributors []string

	for _, p := range partials {
		src := p.Source
		if raw, err := json.Marshal(p); err == nil {
			merged.RawSources[src] = raw // retained for audit
		}

		took := false
		if merged.Name == "" && p.Name != "" {
			merged.Name = p.Name
			merged.FieldSources["name"] = src
			took = true
		}
		if merged.CanonicalID == "" && p.CanonicalID != "" {
			merged.CanonicalID = p.CanonicalID
			merged.FieldSources["canonical_id"] = src
			took = true
		}
		if merged.Rating == nil && p.Rating != nil {
			v := *p.Rating
			merged.Rating = &v
			merged.FieldSources["rating"] = src
			took = true
		}
		if merged.RatingCount == nil && p.RatingCount != nil {
			v := *p.RatingCount
			merged.RatingCount = &v
			merged.FieldSources["rating_count"] = src
			took = true
		}
		if merged.PriceTier == nil && p.PriceTier != nil {
			v := *p.PriceTier
			merged.PriceTier = &v
			merged.FieldSources["price_tier"] = src
			took = true
		}
		if merged.Address == nil && p.Address != nil {
			v := *p.Address
			merged.Address = &v
			merged.FieldSources["address"] = src
			took = true
		}
		if merged.Lat == nil && p.Lat != nil && p.Lon != nil {
			lat, lon := *p.Lat, *p.Lon
			merged.Lat, merged.Lon = &lat, &lon
			merged.FieldSources["location"] = src
			took = true
		}
		if len(merged.Categories) == 0 && len(p.Categories) > 0 {
			merged.Categories = append([]string(nil), p.Categories...)
			merged.FieldSources["categories"] = src
			took = true
		}

		if took && !contains(contributors, src) {
			contributors = append(contributors, src)
		}
	}

	merged.Source = strings.Join(contributors, "+")
	return merged
}

// mergeCompetitors concatenates per-provider lists in priority order,
// excludes the target itself, drops records missing required fields,
// de-duplicates by normalized name (first occurrence wins) and sorts by
// rating desc, then rating_count desc.
func mergeCompetitors(target string, required []string, lists ...[]domain.CompetitorRecord) []domain.CompetitorRecord {
	tnorm := domain.NormalizeName(target)
	seen := make(map[string]bool)
	out := make([]domain.CompetitorRecord, 0)

	for _, list := range lists {
		for _, c := range list {
			norm := domain.NormalizeName(c.Name)
			if c.IsTarget || norm == tnorm {
				continue // self-matches are never competitors
			}
			if !competitorComplete(c, required) {
				continue
			}
			if seen[norm] {
				continue
			}
			seen[norm] = true
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := fOr(out[i].Rating, -1), fOr(out[j].Rating, -1)
		if ri != rj {
			return ri > rj
		}
		return iOr(out[i].RatingCount, -1) > iOr(out[j].RatingCount, -1)
	})
	return out
}

// mergeReviews concatenates per-provider lists, de-duplicates by normalized
// author + text, sorts newest first and truncates to limit (0 = no cap).
func mergeReviews(limit int, lists ...[]domain.ReviewRecord) []domain.ReviewRecord {
	seen := make(map[string]bool)
	out := make([]domain.ReviewRecord, 0)

	for _, list := range lists {
		for _, r := range list {
			key := domain.NormalizeName(r.Author) + "|" + domain.NormalizeName(r.Text)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func competitorComplete(c domain.CompetitorRecord, required []string) bool {
	for _, f := range required {
		switch f {
		case "name":
			if c.Name == "" {
				return false
			}
		case "rating":
			if c.Rating == nil {
				return false
			}
		case "rating_count":
			if c.RatingCount == nil {
				return false
			}
		case "price_tier":
			if c.PriceTier == nil {
				return false
			}
		}
	}
	return true
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func fOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func iOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
