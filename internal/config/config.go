// Package config loads application configuration from an optional YAML
// file, environment variables, and defaults, in that order of
// precedence. The loaded Config value is injected into constructors
// explicitly; there is no ambient global.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable names recognized beyond the generic REPODEX_*
// binding.
const (
	EnvForgeToken    = "GITHUB_TOKEN"
	EnvHubToken      = "HF_TOKEN"
	EnvOpenRouterKey = "OPENROUTER_API_KEY"
)

// Config holds all configuration for the application.
type Config struct {
	// DataDir is where the catalog and vector index databases live.
	DataDir string `mapstructure:"data_dir"`

	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Forge configuration (GitHub)
	Forge ForgeConfig `mapstructure:"forge"`

	// Hub configuration (HuggingFace)
	Hub HubConfig `mapstructure:"hub"`

	// Local named source trees
	Locals []LocalSource `mapstructure:"locals"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Chat configuration
	Chat ChatConfig `mapstructure:"chat"`

	// Sync configuration
	Sync SyncConfig `mapstructure:"sync"`

	// Search configuration
	Search SearchConfig `mapstructure:"search"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ForgeConfig holds forge (GitHub) sync configuration. BasePaths are
// the directories searched, in order, when resolving a repository's
// local checkout.
type ForgeConfig struct {
	Token     string   `mapstructure:"token"`
	BasePaths []string `mapstructure:"base_paths"`
}

// HubConfig holds model-hub (HuggingFace) sync configuration. A hub
// kind is synced only when at least one path slot is configured for
// it; each kind carries up to two base directories searched in order.
type HubConfig struct {
	Token        string   `mapstructure:"token"`
	User         string   `mapstructure:"user"`
	DatasetPaths []string `mapstructure:"dataset_paths"`
	ModelPaths   []string `mapstructure:"model_paths"`
	SpacePaths   []string `mapstructure:"space_paths"`
}

// LocalSource names a directory tree scanned for repositories.
type LocalSource struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // openrouter, local
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	BatchSize int    `mapstructure:"batch_size"`
	CacheSize int    `mapstructure:"cache_size"`
}

// ChatConfig holds chat completion configuration.
type ChatConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// SyncConfig holds sync orchestration configuration.
type SyncConfig struct {
	Workers int `mapstructure:"workers"`
}

// SearchConfig holds search engine tuning.
type SearchConfig struct {
	PageSize   int     `mapstructure:"page_size"`
	Threshold  float64 `mapstructure:"threshold"`
	DebounceMS int     `mapstructure:"debounce_ms"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("repodex")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "repodex"))
	}
	viper.SetEnvPrefix("REPODEX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("unable to read config: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("log.level", "info")

	if home, err := os.UserHomeDir(); err == nil {
		viper.SetDefault("data_dir", filepath.Join(home, ".local", "share", "repodex"))
	} else {
		viper.SetDefault("data_dir", ".")
	}

	viper.SetDefault("embedding.provider", "openrouter")
	viper.SetDefault("embedding.model", "openai/text-embedding-3-small")
	viper.SetDefault("embedding.batch_size", 10)
	viper.SetDefault("embedding.cache_size", 1000)

	viper.SetDefault("chat.model", "google/gemini-2.5-flash")

	viper.SetDefault("sync.workers", 8)

	viper.SetDefault("search.page_size", 10)
	viper.SetDefault("search.threshold", 0.4)
	viper.SetDefault("search.debounce_ms", 500)
}

// overrideWithEnv overrides config with well-known environment
// variables not covered by the REPODEX_* binding.
func overrideWithEnv(config *Config) {
	if token := os.Getenv(EnvForgeToken); token != "" {
		config.Forge.Token = token
	}
	if token := os.Getenv(EnvHubToken); token != "" {
		config.Hub.Token = token
	}
	if key := os.Getenv(EnvOpenRouterKey); key != "" {
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = key
		}
		if config.Chat.APIKey == "" {
			config.Chat.APIKey = key
		}
	}
}

// IsConfigured reports whether the minimum settings for a remote sync
// are present.
func (c *Config) IsConfigured() bool {
	return c.Forge.Token != "" && c.Embedding.APIKey != ""
}

// CatalogPath returns the catalog database location under DataDir.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataDir, "catalog.db")
}

// VectorIndexPath returns the vector index database location under
// DataDir.
func (c *Config) VectorIndexPath() string {
	return filepath.Join(c.DataDir, "vectors.db")
}
