// Package shared loads service configuration: in-code defaults, layered
// under an optional YAML file (SME_CONFIG), layered under SME_-prefixed
// environment variables.
package shared

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

// ProviderConfig is one provider's static tuning. CallsPerMinute == 0
// disables the provider entirely.
type ProviderConfig struct {
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	APIHost        string `koanf:"api_host"` // gateway routing header, reviewsite only
	CallsPerMinute int    `koanf:"calls_per_minute"`
	MaxRetries     int    `koanf:"max_retries"`
	BaseDelayMS    int    `koanf:"base_delay_ms"`
	MinIntervalMS  int    `koanf:"min_interval_ms"`
}

type Config struct {
	AppEnv      string `koanf:"app_env"`
	HTTPAddr    string `koanf:"http_addr"`
	MetricsAddr string `koanf:"metrics_addr"`

	CacheBackend string `koanf:"cache_backend"` // memory|redis
	RedisAddr    string `koanf:"redis_addr"`
	RedisPass    string `koanf:"redis_password"`
	RedisDB      int    `koanf:"redis_db"`

	NearbyRadiusKM float64 `koanf:"nearby_radius_km"`

	Providers map[string]ProviderConfig `koanf:"providers"`

	// Per-data-type policy tables (data types: business_info,
	// competitors, reviews).
	Priority   map[string][]string `koanf:"priority"`
	Required   map[string][]string `koanf:"required"`
	TTLSeconds map[string]int      `koanf:"ttl_seconds"`
}

func defaults() Config {
	return Config{
		AppEnv:         "prod",
		HTTPAddr:       ":8080",
		MetricsAddr:    "",
		CacheBackend:   "memory",
		RedisAddr:      "localhost:6379",
		NearbyRadiusKM: 2,
		Providers: map[string]ProviderConfig{
			"places": {
				BaseURL:        "https://maps.googleapis.com/maps/api/place",
				CallsPerMinute: 500,
				MaxRetries:     3,
				BaseDelayMS:    500,
				MinIntervalMS:  200,
			},
			"directory": {
				BaseURL:        "https://api.yelp.com/v3",
				CallsPerMinute: 3,
				MaxRetries:     3,
				BaseDelayMS:    2000,
				MinIntervalMS:  2000,
			},
			"reviewsite": {
				BaseURL:        "https://tripadvisor-scraper.p.rapidapi.com",
				APIHost:        "tripadvisor-scraper.p.rapidapi.com",
				CallsPerMinute: 30,
				MaxRetries:     5,
				BaseDelayMS:    5000,
				MinIntervalMS:  2000,
			},
		},
		Priority: map[string][]string{
			"business_info": {"places", "directory", "reviewsite"},
			"competitors":   {"places", "directory", "reviewsite"},
			"reviews":       {"places", "directory", "reviewsite"},
		},
		Required: map[string][]string{
			"business_info": {"name", "rating", "price_tier"},
			"competitors":   {"name", "rating", "price_tier"},
			"reviews":       {"text", "rating", "published_at"},
		},
		TTLSeconds: map[string]int{
			"business_info": 86400,
			"competitors":   86400,
			"reviews":       3600,
		},
	}
}

// Load layers defaults <- YAML file (SME_CONFIG) <- env (SME_ prefix).
// Provider API keys additionally fall back to <PROVIDER>_API_KEY env vars.
//
// Map entries override per key: a providers.<name> block in the file
// replaces that provider's default entry wholesale, so blocks must be
// complete.
func Load() (Config, error) {
	cfg := defaults()
	k := koanf.New(".")

	if path := os.Getenv("SME_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, err
		}
	}

	// SME_HTTP_ADDR -> http_addr, etc.
	envProvider := env.Provider("SME_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "sme_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, err
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, err
	}

	for name, p := range cfg.Providers {
		if p.APIKey == "" {
			p.APIKey = os.Getenv(strings.ToUpper(name) + "_API_KEY")
			cfg.Providers[name] = p
		}
		if p.APIKey == "" {
			log.Warn().Str("provider", name).Msg("no API key configured")
		}
	}
	return cfg, nil
}

// TTL returns the cache TTL for a data type.
func (c Config) TTL(dataType string) time.Duration {
	if secs, ok := c.TTLSeconds[dataType]; ok && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if dataType == "reviews" {
		return time.Hour
	}
	return 24 * time.Hour
}

// TTLs expands the seconds table into durations keyed by data type.
func (c Config) TTLs() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.TTLSeconds))
	for dt := range c.TTLSeconds {
		out[dt] = c.TTL(dt)
	}
	return out
}

// RateLimits extracts the provider -> calls_per_minute table.
func (c Config) RateLimits() map[string]int {
	out := make(map[string]int, len(c.Providers))
	for name, p := range c.Providers {
		out[name] = p.CallsPerMinute
	}
	return out
}
