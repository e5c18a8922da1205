package usecase

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
	"github.com/jalemieux/hermes/pkg/ai"
	"github.com/jalemieux/hermes/pkg/htmltext"
)

const (
	NameStrategyHeader    = "header"
	NameStrategyForwarded = "forwarded"
)

// NameStrategy decides which newsletter a message belongs to
type NameStrategy interface {
	Resolve(ctx context.Context, msg emaildomain.RawMessage, doc *htmltext.Document) (string, error)
	Name() string
}

// NewNameStrategy returns the strategy registered under kind, forwarded by default
func NewNameStrategy(kind string, provider ai.Provider) NameStrategy {
	if kind == NameStrategyHeader {
		return HeaderNameStrategy{}
	}
	return &ForwardedSenderStrategy{provider: provider}
}

// HeaderNameStrategy trusts the From header. No model call.
type HeaderNameStrategy struct{}

func (HeaderNameStrategy) Name() string { return NameStrategyHeader }

func (HeaderNameStrategy) Resolve(_ context.Context, msg emaildomain.RawMessage, doc *htmltext.Document) (string, error) {
	if name := strings.TrimSpace(msg.Sender.Name); name != "" {
		return name, nil
	}
	if doc != nil && doc.SiteName != "" {
		return doc.SiteName, nil
	}
	if addr := strings.TrimSpace(msg.Sender.Address); addr != "" {
		return addr, nil
	}
	return "", fmt.Errorf("message %q has no sender", msg.Subject)
}

// ForwardedSenderStrategy asks the model who originally sent a possibly forwarded message
type ForwardedSenderStrategy struct {
	provider ai.Provider
}

func (s *ForwardedSenderStrategy) Name() string { return NameStrategyForwarded }

func (s *ForwardedSenderStrategy) Resolve(ctx context.Context, msg emaildomain.RawMessage, doc *htmltext.Document) (string, error) {
	excerpt := msg.TextExcerpt
	if excerpt == "" && doc != nil {
		excerpt = doc.Excerpt
	}
	input := fmt.Sprintf("email:\nsender: %s\nsubject: %s\ntext_excerpt: %s\nrecipients: %s",
		msg.Sender.String(), msg.Subject, excerpt, msg.RecipientList())

	answer, err := ai.Call[senderAnswer](ctx, s.provider, senderPrompt, input).Unwrap()
	if err != nil {
		return "", fmt.Errorf("infer sender: %w", err)
	}
	return displayName(answer.Sender), nil
}

// displayName reduces "TLDR AI <dan@tldrnewsletter.com>" to "TLDR AI"
func displayName(sender string) string {
	addr, err := mail.ParseAddress(sender)
	if err != nil {
		return strings.Trim(sender, `"' `)
	}
	if addr.Name != "" {
		return addr.Name
	}
	return addr.Address
}
