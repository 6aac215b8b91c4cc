package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Ola-Yeenca/sme-solution/internal/adapters/directory"
	server "github.com/Ola-Yeenca/sme-solution/internal/adapters/http_server"
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
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve(cfg.MetricsAddr)

	mgr := buildManager(cfg)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{M: mgr})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func buildManager(cfg shared.Config) *app.DataSourceManager {
	adapters := buildAdapters(cfg)

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
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis cache")
	default:
		store = cache.NewMemory()
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

// buildAdapters constructs every configured provider; ones without
// credentials are skipped and left to the priority cascade to route around.
func buildAdapters(cfg shared.Config) []domain.ProviderAdapter {
	var out []domain.ProviderAdapter

	if p, ok := cfg.Providers["places"]; ok {
		a, err := places.New(p.BaseURL, p.APIKey)
		if err != nil {
			log.Warn().Err(err).Msg("places adapter disabled")
		} else {
			out = append(out, a)
		}
	}
	if p, ok := cfg.Providers["directory"]; ok {
		a, err := directory.New(p.BaseURL, p.APIKey)
		if err != nil {
			log.Warn().Err(err).Msg("directory adapter disabled")
		} else {
			out = append(out, a)
		}
	}
	if p, ok := cfg.Providers["reviewsite"]; ok {
		a, err := reviewsite.New(p.BaseURL, p.APIKey, p.APIHost)
		if err != nil {
			log.Warn().Err(err).Msg("reviewsite adapter disabled")
		} else {
			out = append(out, a)
		}
	}

	if len(out) == 0 {
		log.Fatal().Msg("no provider adapters configured")
	}
	return out
}
