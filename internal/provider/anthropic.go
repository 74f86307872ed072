package provider

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/mcp-host/internal/config"
)

// NewAnthropicClient returns a client authenticated with the configured key.
// The key is passed explicitly rather than read from the environment by the
// SDK, so construction has a single configuration source.
func NewAnthropicClient(cfg *config.Config) *anthropic.Client {
	c := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &c
}
