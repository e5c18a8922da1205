package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIService implements Provider over the Chat Completions API
type OpenAIService struct {
	client *openai.Client
	model  openai.ChatModel
}

func NewOpenAIService(apiKey, model string) *OpenAIService {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIService{
		client: &client,
		model:  openai.ChatModel(model),
	}
}

func (o *OpenAIService) Name() string { return string(ProviderOpenAI) }

func (o *OpenAIService) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userContent),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("%w: %s", ErrRefusal, msg.Refusal)
	}
	return msg.Content, nil
}
