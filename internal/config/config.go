// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/manenim/window-rate-limiter/pkg/limiter"
)

type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	RateLimiter RateLimiterConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AdminToken      string        `env:"ADMIN_TOKEN"`
}

type StoreConfig struct {
	Type          string        `env:"STORE" envDefault:"redis"`
	RedisURL      string        `env:"REDIS_URL"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	Timeout       time.Duration `env:"STORE_TIMEOUT" envDefault:"100ms"`
	KeyPrefix     string        `env:"KEY_PREFIX" envDefault:"ratelimit:"`
	SweepInterval time.Duration `env:"MEMORY_SWEEP_INTERVAL" envDefault:"1m"`
}

type RateLimiterConfig struct {
	Rules             []string `env:"RATE_LIMITS" envSeparator:"," envDefault:"fixed:5:60"`
	FailOpen          bool     `env:"FAIL_OPEN" envDefault:"false"`
	PreciseRetryAfter bool     `env:"PRECISE_RETRY_AFTER" envDefault:"false"`
	TrustProxyHeaders bool     `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// Limits is parsed from Rules by Load.
	Limits []Rule
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Rule is one link of the limiter chain.
type Rule struct {
	Algorithm limiter.Algorithm
	Limit     limiter.Limit
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

// LoadFrom parses vars only, ignoring the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	switch cfg.Store.Type {
	case "redis", "memory":
	default:
		return Config{}, fmt.Errorf("%w: unsupported store type %q", limiter.ErrInvalidConfig, cfg.Store.Type)
	}

	rules, err := ParseRules(cfg.RateLimiter.Rules)
	if err != nil {
		return Config{}, err
	}
	cfg.RateLimiter.Limits = rules

	return cfg, nil
}

// ParseRules parses entries of the form ALGORITHM:LIMIT:WINDOW_SECONDS.
func ParseRules(raw []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: rate limit must follow ALGORITHM:LIMIT:WINDOW_SECONDS: %q", limiter.ErrInvalidConfig, item)
		}

		algo, err := limiter.ParseAlgorithm(parts[0])
		if err != nil {
			return nil, err
		}
		requests, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid limit in %q: %w", limiter.ErrInvalidConfig, item, err)
		}
		seconds, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid window in %q: %w", limiter.ErrInvalidConfig, item, err)
		}

		limit := limiter.Limit{Requests: requests, Window: time.Duration(seconds) * time.Second}
		if err := limit.Validate(); err != nil {
			return nil, fmt.Errorf("rate limit %q: %w", item, err)
		}
		rules = append(rules, Rule{Algorithm: algo, Limit: limit})
	}
	return rules, nil
}
