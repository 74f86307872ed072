// Package config builds the process configuration once at startup.
//
// All tunables are read here and nowhere else; the resulting Config value is
// passed explicitly into the components that need it. Components never reach
// into the environment themselves.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	// DefaultModel is used when MCPHOST_MODEL is unset.
	DefaultModel = "claude-sonnet-4-5"
	// DefaultMaxTokens caps the model's output per call when MCPHOST_MAX_TOKENS is unset.
	DefaultMaxTokens = 1000

	defaultLogLevel = "info"
)

// Config holds everything the host needs for one run.
type Config struct {
	// Model is the Anthropic model identifier sent with every Messages call.
	Model string
	// MaxTokens is the per-call output ceiling.
	MaxTokens int64
	// APIKey authenticates against the Anthropic API.
	APIKey string
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string
}

// Load reads configuration from the environment, after loading a .env file
// when one is present. A missing .env is not an error; secrets may equally
// come from the caller's environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Model:     DefaultModel,
		MaxTokens: DefaultMaxTokens,
		APIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		LogLevel:  defaultLogLevel,
	}

	if v := os.Getenv("MCPHOST_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("MCPHOST_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MCPHOST_MAX_TOKENS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MCPHOST_MAX_TOKENS %q: %w", v, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("invalid MCPHOST_MAX_TOKENS %q: must be positive", v)
		}
		cfg.MaxTokens = n
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set; export it or add it to .env")
	}

	return cfg, nil
}
