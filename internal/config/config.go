// ABOUTME: Centralized configuration for the vaultsearch MCP server
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Block modes
const (
	BlockModeIndex = "index"
	BlockModeEmbed = "embed"
)

// Config holds all configuration for the retrieval engine
type Config struct {
	// Vault settings
	VaultPath     string
	ModelKey      string
	SkipMalformed bool

	// Embedding settings
	OpenAIKey      string
	EmbeddingModel string
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	// Context block settings
	BlockFloor          float64
	BlockMode           string
	BlockMaxLines       int
	BlockCandidateNotes int

	// Cache settings
	CachePath     string
	CacheDisabled bool

	Debug bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		VaultPath:           os.Getenv("OBSIDIAN_VAULT_PATH"),
		ModelKey:            getEnv("VAULTSEARCH_MODEL_KEY", "TaylorAI/bge-micro-v2"),
		SkipMalformed:       getEnvBool("VAULTSEARCH_SKIP_MALFORMED", false),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel:      getEnv("VAULTSEARCH_EMBEDDING_MODEL", "bge-micro-v2"),
		BaseURL:             os.Getenv("VAULTSEARCH_EMBEDDING_BASE_URL"),
		Timeout:             getEnvDuration("VAULTSEARCH_EMBED_TIMEOUT", 30*time.Second),
		MaxRetries:          getEnvInt("VAULTSEARCH_EMBED_MAX_RETRIES", 3),
		RetryDelay:          getEnvDuration("VAULTSEARCH_EMBED_RETRY_DELAY", time.Second),
		BlockFloor:          getEnvFloat("VAULTSEARCH_BLOCK_FLOOR", 0.4),
		BlockMode:           getEnv("VAULTSEARCH_BLOCK_MODE", BlockModeIndex),
		BlockMaxLines:       getEnvInt("VAULTSEARCH_BLOCK_MAX_LINES", 40),
		BlockCandidateNotes: getEnvInt("VAULTSEARCH_BLOCK_CANDIDATE_NOTES", 20),
		CachePath:           os.Getenv("VAULTSEARCH_CACHE_PATH"),
		CacheDisabled:       getEnvBool("VAULTSEARCH_CACHE_DISABLED", false),
		Debug:               getEnvBool("VAULTSEARCH_DEBUG", false),
	}

	return cfg, cfg.Validate()
}

// Validate checks value ranges. The vault path is checked at initialize, not here.
func (c *Config) Validate() error {
	if c.BlockFloor < 0 || c.BlockFloor > 1 {
		return fmt.Errorf("VAULTSEARCH_BLOCK_FLOOR must be 0-1, got %f", c.BlockFloor)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("VAULTSEARCH_EMBED_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.BlockMode != BlockModeIndex && c.BlockMode != BlockModeEmbed {
		return fmt.Errorf("VAULTSEARCH_BLOCK_MODE must be %q or %q, got %q", BlockModeIndex, BlockModeEmbed, c.BlockMode)
	}
	if c.BlockMaxLines < 1 {
		return fmt.Errorf("VAULTSEARCH_BLOCK_MAX_LINES must be positive, got %d", c.BlockMaxLines)
	}
	if c.BlockCandidateNotes < 1 {
		return fmt.Errorf("VAULTSEARCH_BLOCK_CANDIDATE_NOTES must be positive, got %d", c.BlockCandidateNotes)
	}
	if c.ModelKey == "" {
		return fmt.Errorf("VAULTSEARCH_MODEL_KEY must not be empty")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
