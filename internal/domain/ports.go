package domain

import (
	"context"
	"time"
)

// ProviderAdapter translates one provider's request/response vocabulary into
// the canonical schema. Adapters perform exactly one HTTP round trip per
// method call: caching belongs to the aggregator and retries to the retry
// executor, keeping each piece independently testable.
type ProviderAdapter interface {
	Name() string

	// Search resolves a business name (optionally scoped to a location)
	// to the provider's best candidate via the shared matching policy.
	Search(ctx context.Context, name, location string) (Candidate, error)

	// Details fetches a partial BusinessRecord for a provider-native ID.
	Details(ctx context.Context, id string) (BusinessRecord, error)

	// Reviews fetches up to limit reviews, newest first where the
	// provider supports ordering.
	Reviews(ctx context.Context, id string, limit int) ([]ReviewRecord, error)

	// Nearby lists businesses around the candidate within radiusKM.
	Nearby(ctx context.Context, c Candidate, radiusKM float64) ([]CompetitorRecord, error)
}

// Cache is the process-shared record store. Values round-trip through JSON
// so cached data never aliases caller memory.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
