// Package app holds the aggregation core: the DataSourceManager decides
// which providers to query, in what order, under what quota and retry
// policy, and how to merge partial results into one canonical record.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Ola-Yeenca/sme-solution/internal/domain"
	"github.com/Ola-Yeenca/sme-solution/internal/ratelimit"
	"github.com/Ola-Yeenca/sme-solution/internal/retry"
)

// Options are the static, externally supplied knobs: priority order,
// required fields and cache TTL per data type, plus the competitor search
// radius. The core never computes these.
type Options struct {
	Priority       map[string][]string
	Required       map[string][]string
	TTL            map[string]time.Duration
	NearbyRadiusKM float64
}

const placeholderSource = "placeholder"

// DataSourceManager orchestrates provider order, invokes adapters through
// the rate limiter and retry executors, scores completeness, merges partials
// and maintains the cache. All three public operations are total: only a
// blank business name is an error, every other failure degrades the record.
type DataSourceManager struct {
	adapters map[string]domain.ProviderAdapter
	exec     map[string]*retry.Executor
	limiter  *ratelimit.Limiter
	cache    domain.Cache
	opts     Options
}

func NewDataSourceManager(adapters []domain.ProviderAdapter, limiter *ratelimit.Limiter, exec map[string]*retry.Executor, cache domain.Cache, opts Options) *DataSourceManager {
	m := &DataSourceManager{
		adapters: make(map[string]domain.ProviderAdapter, len(adapters)),
		exec:     make(map[string]*retry.Executor, len(adapters)),
		limiter:  limiter,
		cache:    cache,
		opts:     opts,
	}
	if m.opts.NearbyRadiusKM <= 0 {
		m.opts.NearbyRadiusKM = 2
	}
	for _, a := range adapters {
		m.adapters[a.Name()] = a
		if e, ok := exec[a.Name()]; ok && e != nil {
			m.exec[a.Name()] = e
		} else {
			m.exec[a.Name()] = retry.New(3, 500*time.Millisecond, 0)
		}
	}
	return m
}

// GetBusinessData returns the canonical record for (name, location). The
// caller always receives a record: cached, freshly merged, or a placeholder
// when every provider failed.
func (m *DataSourceManager) GetBusinessData(ctx context.Context, name, location string, forceRefresh bool) (domain.BusinessRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.BusinessRecord{}, domain.ErrInvalidInput
	}

	key := cacheKey(domain.DataBusinessInfo, name, location)
	if !forceRefresh {
		var rec domain.BusinessRecord
		if ok, err := m.cache.Get(ctx, key, &rec); err == nil && ok {
			return rec, nil
		}
	}

	var partials []domain.BusinessRecord
	diags := make(map[string]string)

	for _, p := range m.order(domain.DataBusinessInfo) {
		if ctx.Err() != nil {
			// Deadline: fall back to whatever we already collected.
			diags[p] = ctx.Err().Error()
			continue
		}
		rec, err := m.fetchBusiness(ctx, p, name, location)
		if err != nil {
			log.Warn().Str("provider", p).Str("business", name).Err(err).
				Msg("business fetch failed")
			diags[p] = err.Error()
			continue
		}
		if emptyBusiness(rec) {
			diags[p] = "empty partial"
			continue
		}
		partials = append(partials, rec)
		if m.sufficientBusiness(rec) {
			break
		}
	}

	if len(partials) == 0 {
		// Downstream consumers must always receive a record; placeholders
		// are not cached so recovery is visible on the next call.
		log.Warn().Str("business", name).Int("providers", len(diags)).
			Msg("all providers failed, returning placeholder")
		return domain.BusinessRecord{
			Name:        name,
			Source:      placeholderSource,
			FetchedAt:   time.Now().UTC(),
			Diagnostics: diags,
		}, nil
	}

	merged := mergeBusinessRecords(partials)
	merged.FetchedAt = time.Now().UTC()
	if len(diags) > 0 {
		merged.Diagnostics = diags
	}
	if err := m.cache.Set(ctx, key, merged, m.ttl(domain.DataBusinessInfo)); err != nil {
		log.Error().Err(err).Str("key", key).Msg("cache write failed")
	}
	return merged, nil
}

// GetCompetitors fans out over the competitor priority list concurrently —
// providers are mutually independent for this fetch — then filters, dedups
// and ranks the union.
func (m *DataSourceManager) GetCompetitors(ctx context.Context, name, location string) ([]domain.CompetitorRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}

	key := cacheKey(domain.DataCompetitors, name, location)
	var cached []domain.CompetitorRecord
	if ok, err := m.cache.Get(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	order := m.order(domain.DataCompetitors)
	lists := make([][]domain.CompetitorRecord, len(order))
	var wg sync.WaitGroup
	for i, p := range order {
		a := m.adapters[p]
		if a == nil {
			log.Warn().Str("provider", p).Msg("provider not configured, skipping")
			continue
		}
		wg.Add(1)
		go func(i int, p string, a domain.ProviderAdapter) {
			defer wg.Done()
			comps, err := m.fetchCompetitors(ctx, p, a, name, location)
			if err != nil {
				log.Warn().Str("provider", p).Str("business", name).Err(err).
					Msg("competitor fetch failed")
				return
			}
			lists[i] = comps
		}(i, p, a)
	}
	wg.Wait()

	merged := mergeCompetitors(name, m.required(domain.DataCompetitors), lists...)
	if len(merged) > 0 {
		if err := m.cache.Set(ctx, key, merged, m.ttl(domain.DataCompetitors)); err != nil {
			log.Error().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return merged, nil
}

// GetReviews collects reviews from all configured sources concurrently
// toward the requested count, newest first. Total failure yields an empty
// list, never an error.
func (m *DataSourceManager) GetReviews(ctx context.Context, name string, limit int) ([]domain.ReviewRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 {
		limit = 50
	}

	key := cacheKey(domain.DataReviews, name, "")
	var cached []domain.ReviewRecord
	if ok, err := m.cache.Get(ctx, key, &cached); err == nil && ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	order := m.order(domain.DataReviews)
	lists := make([][]domain.ReviewRecord, len(order))
	var wg sync.WaitGroup
	for i, p := range order {
		a := m.adapters[p]
		if a == nil {
			log.Warn().Str("provider", p).Msg("provider not configured, skipping")
			continue
		}
		wg.Add(1)
		go func(i int, p string, a domain.ProviderAdapter) {
			defer wg.Done()
			revs, err := m.fetchReviews(ctx, p, a, name, limit)
			if err != nil {
				log.Warn().Str("provider", p).Str("business", name).Err(err).
					Msg("review fetch failed")
				return
			}
			lists[i] = revs
		}(i, p, a)
	}
	wg.Wait()

	merged := mergeReviews(limit, lists...)
	if len(merged) > 0 {
		if err := m.cache.Set(ctx, key, merged, m.ttl(domain.DataReviews)); err != nil {
			log.Error().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return merged, nil
}

// ---- per-provider fetch paths ----

// call routes one adapter operation through the provider's sliding-window
// admission and its retry executor.
func (m *DataSourceManager) call(ctx context.Context, provider string, op func(context.Context) error) error {
	if err := m.limiter.Admit(ctx, provider); err != nil {
		return err
	}
	return m.exec[provider].Do(ctx, op)
}

func (m *DataSourceManager) fetchBusiness(ctx context.Context, provider, name, location string) (domain.BusinessRecord, error) {
	a := m.adapters[provider]
	if a == nil {
		return domain.BusinessRecord{}, fmt.Errorf("provider %q not configured: %w", provider, domain.ErrProviderDisabled)
	}

	var cand domain.Candidate
	if err := m.call(ctx, provider, func(ctx context.Context) error {
		var err error
		cand, err = a.Search(ctx, name, location)
		return err
	}); err != nil {
		return domain.BusinessRecord{}, err
	}
	if cand.ClosestMatch {
		log.Info().Str("provider", provider).Str("business", name).Str("matched", cand.Name).
			Msg("no exact candidate, using closest match")
	}

	var rec domain.BusinessRecord
	if err := m.call(ctx, provider, func(ctx context.Context) error {
		var err error
		rec, err = a.Details(ctx, cand.ID)
		return err
	}); err != nil {
		return domain.BusinessRecord{}, err
	}
	if rec.Name == "" {
		rec.Name = cand.Name
	}
	rec.Source = provider
	return rec, nil
}

func (m *DataSourceManager) fetchCompetitors(ctx context.Context, provider string, a domain.ProviderAdapter, name, location string) ([]domain.CompetitorRecord, error) {
	var cand domain.Candidate
	if err := m.call(ctx, provider, func(ctx context.Context) error {
		var err error
		cand, err = a.Search(ctx, name, location)
		return err
	}); err != nil {
		return nil, err
	}

	var comps []domain.CompetitorRecord
	if err := m.call(ctx, provider, func(ctx context.Context) error {
		var err error
		comps, err = a.Nearby(ctx, cand, m.opts.NearbyRadiusKM)
		return err
	}); err != nil {
		return nil, err
	}
	return comps, nil
}

func (m *DataSourceManager) fetchReviews(ctx context.Context, provider string, a domain.ProviderAdapter, name string, limit int) ([]domain.ReviewRecord, error) {
	var cand domain.Candidate
	if err := m.call(ctx, provider, func(ctx context.Context) error {
		var err error
		cand, err = a.Search(ctx, name, "")
		return err
	}); err != nil {
		return nil, err
	}

	var revs []domain.ReviewRecord
	if err := m.call(ctx, provider, func(ctx context.Context) error {
		var err error
		revs, err = a.Reviews(ctx, cand.ID, limit)
		return err
	}); err != nil {
		return nil, err
	}
	return revs, nil
}

// ---- policy helpers ----

func (m *DataSourceManager) order(dataType string) []string {
	return m.opts.Priority[dataType]
}

func (m *DataSourceManager) required(dataType string) []string {
	if req, ok := m.opts.Required[dataType]; ok {
		return req
	}
	return []string{"name", "rating", "price_tier"}
}

func (m *DataSourceManager) ttl(dataType string) time.Duration {
	if d, ok := m.opts.TTL[dataType]; ok && d > 0 {
		return d
	}
	if dataType == domain.DataReviews {
		return time.Hour
	}
	return 24 * time.Hour
}

// sufficientBusiness applies the business_info rule: at least 2/3 of the
// required fields present and non-empty lets a partial stand alone.
func (m *DataSourceManager) sufficientBusiness(rec domain.BusinessRecord) bool {
	req := m.required(domain.DataBusinessInfo)
	present := 0
	for _, f := range req {
		if businessFieldPresent(rec, f) {
			present++
		}
	}
	return float64(present) >= float64(len(req))*2.0/3.0
}

func businessFieldPresent(rec domain.BusinessRecord, field string) bool {
	switch field {
	case "name":
		return rec.Name != ""
	case "rating":
		return rec.Rating != nil
	case "rating_count":
		return rec.RatingCount != nil
	case "price_tier":
		return rec.PriceTier != nil
	case "address":
		return rec.Address != nil && *rec.Address != ""
	case "categories":
		return len(rec.Categories) > 0
	case "location":
		return rec.Lat != nil && rec.Lon != nil
	default:
		return false
	}
}

func emptyBusiness(rec domain.BusinessRecord) bool {
	return rec.Rating == nil && rec.RatingCount == nil && rec.PriceTier == nil &&
		rec.Address == nil && len(rec.Categories) == 0 && rec.Name == ""
}

func cacheKey(dataType, name, location string) string {
	return fmt.Sprintf("%s:%s:%s", dataType, domain.NormalizeName(name), domain.NormalizeName(location))
}
