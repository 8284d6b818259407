package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/v0xg/autoform/internal/config"
	"github.com/v0xg/autoform/internal/crawler"
)

// ClaudeProvider implements the Provider interface using Anthropic's Claude
type ClaudeProvider struct {
	client *anthropic.Client
	model  string
}

// NewClaudeProvider creates a new Claude provider
func NewClaudeProvider(model string) (*ClaudeProvider, error) {
	key := apiKey("AUTOFORM_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("AUTOFORM_ANTHROPIC_KEY or ANTHROPIC_API_KEY environment variable required")
	}

	client := anthropic.NewClient(option.WithAPIKey(key))

	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}

	return &ClaudeProvider{
		client: &client,
		model:  model,
	}, nil
}

// SuggestMapping asks Claude to pair form questions with spreadsheet columns
func (p *ClaudeProvider) SuggestMapping(ctx context.Context, form *crawler.FormMap, header []string) ([]config.Field, error) {
	userPrompt, err := buildUserPrompt(form, header)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Claude API error: %w", err)
	}

	var responseText string
	for _, block := range resp.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("empty response from Claude")
	}

	fields, err := parseFieldsJSON(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Claude response as JSON: %w\nResponse: %s", err, responseText)
	}

	return fields, nil
}
