package usecase

import (
	"context"
	"fmt"
	"strings"

	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
	summarydomain "github.com/jalemieux/hermes/internal/summary/domain"
	"github.com/jalemieux/hermes/pkg/ai"

	log "github.com/sirupsen/logrus"
)

const emailSeparator = "\n---\n\n"

// Synthesis is the engine output for one list of email ids
type Synthesis struct {
	Title           string
	KeyPoints       []summarydomain.KeyPoint
	Sections        []summarydomain.Section
	Sources         []summarydomain.Source
	NewsletterNames []string
}

// Engine merges extracted emails into one digest. It only reads emails.
type Engine struct {
	emails   EmailSource
	provider ai.Provider
}

func NewEngine(emails EmailSource, provider ai.Provider) *Engine {
	return &Engine{emails: emails, provider: provider}
}

// Synthesize loads the emails in ids order and asks the model for one digest.
// Every id must belong to userID.
func (e *Engine) Synthesize(ctx context.Context, userID string, ids []string) (*Synthesis, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, summarydomain.ErrNothingToSummarize
	}

	emails, err := e.emails.FindByIDs(userID, ids)
	if err != nil {
		return nil, fmt.Errorf("load emails: %w", err)
	}
	if len(emails) != len(ids) {
		return nil, fmt.Errorf("%w: %d of %d ids", summarydomain.ErrUnknownSourceEmail, len(ids)-len(emails), len(ids))
	}

	content, sources, names := collect(emails)

	answer, err := ai.Call[synthesisAnswer](ctx, e.provider, synthesisPrompt, content).Unwrap()
	if err != nil {
		log.WithFields(log.Fields{"user_id": userID, "emails": len(ids)}).Errorf("[Summary] Synthesis failed: %v", err)
		return nil, fmt.Errorf("%w: %w", summarydomain.ErrGenerationFailed, err)
	}

	return &Synthesis{
		Title:           answer.Title,
		KeyPoints:       answer.KeyPoints,
		Sections:        answer.Sections,
		Sources:         sources,
		NewsletterNames: names,
	}, nil
}

// collect renders every email, keeps the first source seen per URL and the
// distinct newsletter names in input order.
func collect(emails []emaildomain.ExtractedEmail) (string, []summarydomain.Source, []string) {
	var b strings.Builder
	sources := make([]summarydomain.Source, 0)
	names := make([]string, 0)
	seenURL := make(map[string]bool)
	seenName := make(map[string]bool)

	for i := range emails {
		email := &emails[i]
		if i > 0 {
			b.WriteString(emailSeparator)
		}
		b.WriteString(email.Render())

		if email.NewsletterName != "" && !seenName[email.NewsletterName] {
			seenName[email.NewsletterName] = true
			names = append(names, email.NewsletterName)
		}
		for _, src := range email.Sources {
			if seenURL[src.URL] {
				continue
			}
			seenURL[src.URL] = true
			sources = append(sources, summarydomain.Source{
				URL:       src.URL,
				Date:      src.Date,
				Title:     src.Title,
				Publisher: src.Publisher,
			})
		}
	}
	return b.String(), sources, names
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
