package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server    ServerConfig
	Providers ProvidersConfig
	Retry     RetryConfig
	Breaker   BreakerConfig
	Cache     CacheConfig
	CRM       CRMConfig
	Storage   StorageConfig
	Reference ReferenceConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type ProvidersConfig struct {
	// Order is the comma separated fallback chain, e.g. "gemini,openrouter".
	Order            string
	GeminiAPIKey     string
	GeminiModel      string
	OpenRouterAPIKey string
	OpenRouterModel  string
}

// Chain returns the provider order as a slice, whitespace trimmed.
func (p ProvidersConfig) Chain() []string {
	var out []string
	for _, name := range strings.Split(p.Order, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff string
	MaxBackoff     string
}

type BreakerConfig struct {
	FailureThreshold int
	Window           string
	Cooldown         string
}

type CacheConfig struct {
	TTL string
}

type CRMConfig struct {
	BaseURL string
	APIKey  string
}

type StorageConfig struct {
	DataDir string
}

type ReferenceConfig struct {
	Path string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Providers: ProvidersConfig{
			Order:           "gemini,openrouter",
			GeminiModel:     "gemini-1.5-flash",
			OpenRouterModel: "openai/gpt-4o-mini",
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: "500ms",
			MaxBackoff:     "30s",
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			Window:           "1m",
			Cooldown:         "30s",
		},
		Cache: CacheConfig{
			TTL: "15m",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.underwrite.app) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/underwrite/config.json and secrets must be provided via
// environment variables.
//
// Environment variables (UNDERWRITE_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the platform keychain for provider keys still empty.
	if cfg.Providers.GeminiAPIKey == "" {
		if key, err := kc.Get("underwrite", "gemini_api_key"); err == nil && key != "" {
			cfg.Providers.GeminiAPIKey = key
		}
	}
	if cfg.Providers.OpenRouterAPIKey == "" {
		if key, err := kc.Get("underwrite", "openrouter_api_key"); err == nil && key != "" {
			cfg.Providers.OpenRouterAPIKey = key
		}
	}

	if cfg.Providers.GeminiAPIKey == "" && cfg.Providers.OpenRouterAPIKey == "" {
		msg := "missing required config: at least one provider API key. " +
			"Set UNDERWRITE_GEMINI_API_KEY or UNDERWRITE_OPENROUTER_API_KEY" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	return cfg, nil
}

// keychainReader reads from macOS Keychain via the security CLI.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
