package ai

import (
	"context"
	"errors"
)

var (
	// ErrRefusal is returned when the model declines to answer
	ErrRefusal = errors.New("model refused the request")
	// ErrMalformedOutput is returned when the model output does not match the expected schema
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrNoProvider is returned when no provider is configured
	ErrNoProvider = errors.New("no AI provider available")
)

// Provider is a chat-style LLM endpoint: one system instruction, one user payload, raw text back.
// Implement this interface to add new AI providers.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userContent string) (string, error)
	Name() string
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderGemini    ProviderType = "gemini"
	ProviderOllama    ProviderType = "ollama"
	ProviderAuto      ProviderType = "auto"
)
