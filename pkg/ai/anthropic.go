package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicService implements Provider over the Messages API
type AnthropicService struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropicService(apiKey, model string) *AnthropicService {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicService{
		client:    &client,
		model:     anthropic.Model(model),
		maxTokens: 8192,
	}
}

func (a *AnthropicService) Name() string { return string(ProviderAnthropic) }

func (a *AnthropicService) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userContent)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	if string(resp.StopReason) == "refusal" {
		return "", ErrRefusal
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no response from anthropic")
	}
	return sb.String(), nil
}
