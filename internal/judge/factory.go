package judge

import (
	"context"
	"fmt"
	"strings"
)

// NewProvider creates a judgment provider based on the provided configuration.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return newAnthropicProvider(cfg)
	case "openai":
		return newOpenAIProvider(cfg)
	case "gemini":
		return newGeminiProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported judgment provider: %s", cfg.Provider)
	}
}
