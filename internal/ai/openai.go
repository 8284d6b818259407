package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/v0xg/autoform/internal/config"
	"github.com/v0xg/autoform/internal/crawler"
)

// OpenAIProvider implements the Provider interface using OpenAI
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(model string) (*OpenAIProvider, error) {
	key := apiKey("AUTOFORM_OPENAI_KEY", "OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("AUTOFORM_OPENAI_KEY or OPENAI_API_KEY environment variable required")
	}

	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIProvider{
		client: openai.NewClient(key),
		model:  model,
	}, nil
}

// SuggestMapping asks the chat model to pair form questions with spreadsheet columns
func (p *OpenAIProvider) SuggestMapping(ctx context.Context, form *crawler.FormMap, header []string) ([]config.Field, error) {
	userPrompt, err := buildUserPrompt(form, header)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			MaxTokens: 2048,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := resp.Choices[0].Message.Content

	fields, err := parseFieldsJSON(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response as JSON: %w\nResponse: %s", err, responseText)
	}

	return fields, nil
}
