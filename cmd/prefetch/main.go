// Command prefetch warms the cache for a list of business names so the
// first API hit after a deploy does not pay the full provider cascade.
//
//	prefetch -location "Valencia, Spain" "La Riua" "Casa Montana" ...
package main

import (
	"context"
	"flag"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/Ola-Yeenca/sme-solution/internal/adapters/directory"
	"github.com/Ola-Yeenca/sme-solution/internal/adapters/observability"
	"github.com/Ola-Yeenca/sme-solution/internal/adapters/places"
	redisad "github.com/Ola-Yeenca/sme-solution/internal/adapters/redis"
	"github.com/Ola-Yeenca/sme-solution/internal/adapters/reviewsite"
	"github.com/Ola-Yeenca/sme-solution/internal/app"
	"github.com/Ola-Yeenca/sme-solution/internal/cache"
	"github.com/Ola-Yeenca/sme-solution/internal/domain"
	"github.com/Ola-Yeenca/sme-solution/internal/ratelimit"
	"github.com/Ola-Yeenca/sme-solution/internal/retry"
	"github.com/Ola-Yeenca/sme-solution/internal/shared"
)

func main() {
	location := flag.String("location", "", "city or region appended to every lookup")
	workers := flag.Int("workers", 4, "concurrent lookups")
	reviews := flag.Bool("reviews", false, "also warm the reviews cache")
	flag.Parse()

	names := flag.Args()
	if len(names) == 0 {
		log.Fatal().Msg("no business names given")
	}

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("names", len(names)).
		Int("workers", *workers).
		Str("location", *location).
		Msg("prefetch starting")

	mgr := buildManager(cfg)

	ctx := context.Background()
	sem := semaphore.NewWeighted(int64(*workers))
	var wg sync.WaitGroup

	for _, name := range names {
		name := name

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if _, err := mgr.GetBusinessData(ctx, name, *location, false); err != nil {
				log.Warn().Str("name", name).Err(err).Msg("prefetch failed")
				return
			}
			if *reviews {
				if _, err := mgr.GetReviews(ctx, name, 50); err != nil {
					log.Warn().Str("name", name).Err(err).Msg("review prefetch failed")
				}
			}
			log.Info().Str("name", name).Msg("prefetch ok")
		}()
	}

	wg.Wait()
	log.Info().Msg("prefetch completed")
}

func buildManager(cfg shared.Config) *app.DataSourceManager {
	exec := make(map[string]*retry.Executor, len(cfg.Providers))
	for name, p := range cfg.Providers {
		exec[name] = retry.New(p.MaxRetries,
			time.Duration(p.BaseDelayMS)*time.Millisecond,
			time.Duration(p.MinIntervalMS)*time.Millisecond)
	}

	var store domain.Cache
	switch cfg.CacheBackend {
	case "redis":
		store = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	default:
		// A process-local cache makes prefetch useless; warn but proceed
		// so dry runs still exercise the providers.
		log.Warn().Msg("memory cache backend: warmed entries die with this process")
		store = cache.NewMemory()
	}

	var adapters []domain.ProviderAdapter
	if p, ok := cfg.Providers["places"]; ok {
		if a, err := places.New(p.BaseURL, p.APIKey); err == nil {
			adapters = append(adapters, a)
		}
	}
	if p, ok := cfg.Providers["directory"]; ok {
		if a, err := directory.New(p.BaseURL, p.APIKey); err == nil {
			adapters = append(adapters, a)
		}
	}
	if p, ok := cfg.Providers["reviewsite"]; ok {
		if a, err := reviewsite.New(p.BaseURL, p.APIKey, p.APIHost); err == nil {
			adapters = append(adapters, a)
		}
	}
	if len(adapters) == 0 {
		log.Fatal().Msg("no provider adapters configured")
	}

	return app.NewDataSourceManager(
		adapters,
		ratelimit.New(cfg.RateLimits()),
		exec,
		store,
		app.Options{
			Priority:       cfg.Priority,
			Required:       cfg.Required,
			TTL:            cfg.TTLs(),
			NearbyRadiusKM: cfg.NearbyRadiusKM,
		},
	)
}
