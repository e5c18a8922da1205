package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/jalemieux/hermes/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType

	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string

	// Ollama endpoint getters allow runtime updates from the settings API
	GetOllamaBaseURL func() string
	GetOllamaModel   func() string

	// Timeout bounds every completion call
	Timeout time.Duration
}

// NewProvider creates a Provider based on the config.
// ProviderAuto chains every configured provider: openai, anthropic, gemini, then ollama.
func NewProvider(cfg Config) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		p = NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for Anthropic provider")
		}
		p = NewAnthropicService(cfg.AnthropicAPIKey, cfg.AnthropicModel)

	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		p = gemini.NewGeminiService(cfg.GeminiAPIKey)

	case ProviderOllama:
		p = newOllama(cfg)

	default:
		var chain []Provider
		if cfg.OpenAIAPIKey != "" {
			chain = append(chain, NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel))
		}
		if cfg.AnthropicAPIKey != "" {
			chain = append(chain, NewAnthropicService(cfg.AnthropicAPIKey, cfg.AnthropicModel))
		}
		if cfg.GeminiAPIKey != "" {
			chain = append(chain, gemini.NewGeminiService(cfg.GeminiAPIKey))
		}
		chain = append(chain, newOllama(cfg))
		if len(chain) == 1 {
			p = chain[0]
		} else {
			p = NewFallbackService(chain...)
		}
	}

	if cfg.Timeout > 0 {
		p = WithTimeout(p, cfg.Timeout)
	}
	return p, nil
}

func newOllama(cfg Config) *OllamaService {
	if cfg.GetOllamaBaseURL != nil && cfg.GetOllamaModel != nil {
		return NewOllamaServiceWithGetters(cfg.GetOllamaBaseURL, cfg.GetOllamaModel)
	}
	return NewOllamaService("", "")
}

type timeoutProvider struct {
	Provider
	timeout time.Duration
}

// WithTimeout bounds each Complete call of p
func WithTimeout(p Provider, d time.Duration) Provider {
	return &timeoutProvider{Provider: p, timeout: d}
}

func (t *timeoutProvider) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Provider.Complete(ctx, systemPrompt, userContent)
}
