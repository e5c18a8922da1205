package ai

import (
	"context"
	"fmt"
	"net"
	"strings"

	log "github.com/sirupsen/logrus"
)

// FallbackService tries each provider in order until one answers
type FallbackService struct {
	providers []Provider
}

// NewFallbackService creates a fallback chain; nil providers are skipped
func NewFallbackService(providers ...Provider) *FallbackService {
	chain := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			chain = append(chain, p)
		}
	}
	return &FallbackService{providers: chain}
}

func (f *FallbackService) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return "fallback(" + strings.Join(names, ",") + ")"
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"resource_exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// Complete returns the first successful answer. The caller's deadline bounds the whole chain.
func (f *FallbackService) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	if len(f.providers) == 0 {
		return "", ErrNoProvider
	}

	var lastErr error
	for i, p := range f.providers {
		out, err := p.Complete(ctx, systemPrompt, userContent)
		if err == nil {
			if i > 0 {
				log.Infof("[AI] %s answered after fallback", p.Name())
			}
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: %w", p.Name(), ctx.Err())
		}

		switch {
		case isQuotaError(err):
			log.Warnf("[AI] %s quota exhausted: %v, falling back", p.Name(), err)
		case isConnectionError(err):
			log.Warnf("[AI] %s connection failed: %v, falling back", p.Name(), err)
		default:
			log.Warnf("[AI] %s error: %v, falling back", p.Name(), err)
		}
	}

	return "", fmt.Errorf("all AI providers failed: %w", lastErr)
}
