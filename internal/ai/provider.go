package ai

import (
	"context"
	"fmt"
	"os"

	"github.com/v0xg/autoform/internal/config"
	"github.com/v0xg/autoform/internal/crawler"
)

// Provider proposes a field mapping for a crawled form and a spreadsheet header
type Provider interface {
	SuggestMapping(ctx context.Context, form *crawler.FormMap, header []string) ([]config.Field, error)
}

// NewProvider creates a new AI provider based on the provider name. An empty
// name falls back to AUTOFORM_DEFAULT_PROVIDER, then claude.
func NewProvider(name, model string) (Provider, error) {
	if name == "" {
		name = os.Getenv("AUTOFORM_DEFAULT_PROVIDER")
	}
	switch name {
	case "", "claude", "anthropic":
		return NewClaudeProvider(model)
	case "openai", "gpt":
		return NewOpenAIProvider(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", name)
	}
}

func apiKey(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}
