package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	CacheSize int
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenRouter:
		return NewOpenRouterProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables: the
// OpenRouter provider when an API key is present, the local provider
// otherwise.
func NewFromEnv() (Embedder, error) {
	cache := NewCache(1000)
	if key := os.Getenv(EnvOpenRouterAPIKey); key != "" {
		return NewOpenRouterProvider(key, "", "", cache)
	}
	return NewLocalProvider(cache)
}

// DetectProvider returns the provider NewFromEnv would select
func DetectProvider() string {
	if os.Getenv(EnvOpenRouterAPIKey) != "" {
		return ProviderOpenRouter
	}
	return ProviderLocal
}
