package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "UNDERWRITE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "UNDERWRITE_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "providers.order", typ: kString, env: "UNDERWRITE_PROVIDERS_ORDER",
		apply:   func(cfg *Config, v any) { cfg.Providers.Order = v.(string) },
		extract: func(cfg Config) any { return cfg.Providers.Order },
	},
	{
		key: "providers.gemini_api_key", typ: kString, env: "UNDERWRITE_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Providers.GeminiAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Providers.GeminiAPIKey },
	},
	{
		key: "providers.gemini_model", typ: kString, env: "UNDERWRITE_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Providers.GeminiModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Providers.GeminiModel },
	},
	{
		key: "providers.openrouter_api_key", typ: kString, env: "UNDERWRITE_OPENROUTER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Providers.OpenRouterAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Providers.OpenRouterAPIKey },
	},
	{
		key: "providers.openrouter_model", typ: kString, env: "UNDERWRITE_OPENROUTER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Providers.OpenRouterModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Providers.OpenRouterModel },
	},
	{
		key: "retry.max_attempts", typ: kInt, env: "UNDERWRITE_RETRY_MAX_ATTEMPTS",
		apply:   func(cfg *Config, v any) { cfg.Retry.MaxAttempts = v.(int) },
		extract: func(cfg Config) any { return cfg.Retry.MaxAttempts },
	},
	{
		key: "retry.initial_backoff", typ: kString, env: "UNDERWRITE_RETRY_INITIAL_BACKOFF",
		apply:   func(cfg *Config, v any) { cfg.Retry.InitialBackoff = v.(string) },
		extract: func(cfg Config) any { return cfg.Retry.InitialBackoff },
	},
	{
		key: "retry.max_backoff", typ: kString, env: "UNDERWRITE_RETRY_MAX_BACKOFF",
		apply:   func(cfg *Config, v any) { cfg.Retry.MaxBackoff = v.(string) },
		extract: func(cfg Config) any { return cfg.Retry.MaxBackoff },
	},
	{
		key: "breaker.failure_threshold", typ: kInt, env: "UNDERWRITE_BREAKER_FAILURE_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Breaker.FailureThreshold = v.(int) },
		extract: func(cfg Config) any { return cfg.Breaker.FailureThreshold },
	},
	{
		key: "breaker.window", typ: kString, env: "UNDERWRITE_BREAKER_WINDOW",
		apply:   func(cfg *Config, v any) { cfg.Breaker.Window = v.(string) },
		extract: func(cfg Config) any { return cfg.Breaker.Window },
	},
	{
		key: "breaker.cooldown", typ: kString, env: "UNDERWRITE_BREAKER_COOLDOWN",
		apply:   func(cfg *Config, v any) { cfg.Breaker.Cooldown = v.(string) },
		extract: func(cfg Config) any { return cfg.Breaker.Cooldown },
	},
	{
		key: "cache.ttl", typ: kString, env: "UNDERWRITE_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Cache.TTL = v.(string) },
		extract: func(cfg Config) any { return cfg.Cache.TTL },
	},
	{
		key: "crm.base_url", typ: kString, env: "UNDERWRITE_CRM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.CRM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.CRM.BaseURL },
	},
	{
		key: "crm.api_key", typ: kString, env: "UNDERWRITE_CRM_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.CRM.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.CRM.APIKey },
	},
	{
		key: "storage.data_dir", typ: kString, env: "UNDERWRITE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "reference.path", typ: kString, env: "UNDERWRITE_REFERENCE_PATH",
		apply:   func(cfg *Config, v any) { cfg.Reference.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Reference.Path },
	},
	{
		key: "log.level", typ: kString, env: "UNDERWRITE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
