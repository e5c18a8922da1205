package usecase

import (
	"context"
	"errors"
	"fmt"

	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
	"github.com/jalemieux/hermes/internal/email/repository"
	"github.com/jalemieux/hermes/pkg/ai"
	"github.com/jalemieux/hermes/pkg/htmltext"

	log "github.com/sirupsen/logrus"
)

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeExcluded  Outcome = "excluded"
)

// ExtractResult is what Process did with one message
type ExtractResult struct {
	EmailID string
	Outcome Outcome
	Email   *emaildomain.ExtractedEmail
}

// Extractor turns one raw message into at most one ExtractedEmail per user
type Extractor struct {
	ledger   repository.ExtractedEmailRepository
	registry Registry
	names    NameStrategy
	provider ai.Provider
	seen     SeenFilter
}

func NewExtractor(ledger repository.ExtractedEmailRepository, registry Registry, names NameStrategy, provider ai.Provider) *Extractor {
	return &Extractor{
		ledger:   ledger,
		registry: registry,
		names:    names,
		provider: provider,
	}
}

// SetSeenFilter installs an optional fingerprint filter kept in step with the
// ledger. The ledger stays the only arbiter of what was processed.
func (e *Extractor) SetSeenFilter(f SeenFilter) {
	e.seen = f
}

// Process runs the extraction pipeline for msg. Any failure before the insert
// leaves nothing behind, so the message is retried on the next run.
func (e *Extractor) Process(ctx context.Context, userID string, msg emaildomain.RawMessage) (*ExtractResult, error) {
	fingerprint := msg.Fingerprint()
	logger := log.WithFields(log.Fields{
		"user_id":     userID,
		"subject":     msg.Subject,
		"fingerprint": fingerprint,
	})

	existing, err := e.lookup(ctx, userID, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}
	if existing != nil {
		return &ExtractResult{EmailID: existing.ID, Outcome: OutcomeDuplicate, Email: existing}, nil
	}

	doc, err := htmltext.Extract(msg.HTMLBody)
	if err != nil {
		return nil, fmt.Errorf("strip html: %w", err)
	}
	if doc.Text == "" {
		doc.Text = msg.TextExcerpt
	}

	name, err := e.names.Resolve(ctx, msg, doc)
	if err != nil {
		logger.Warnf("[Extractor] Newsletter name inference failed: %v", err)
		return nil, err
	}

	active, err := e.registry.IsActive(userID, name)
	if err != nil {
		return nil, fmt.Errorf("registry lookup: %w", err)
	}

	email := &emaildomain.ExtractedEmail{
		UserID:         userID,
		Fingerprint:    fingerprint,
		NewsletterName: name,
		Sender:         msg.Sender.String(),
		Subject:        msg.Subject,
		EmailDate:      msg.ReceivedAt,
	}

	outcome := OutcomeExcluded
	if active {
		parsed, err := ai.Call[extraction](ctx, e.provider, extractionPrompt, doc.Text).Unwrap()
		if err != nil {
			logger.WithField("newsletter", name).Warnf("[Extractor] Extraction failed: %v", err)
			return nil, err
		}
		email.TextContent = doc.Text
		email.Topics = parsed.topics()
		email.Sources = parsed.sources()
		outcome = OutcomeCreated
	} else {
		email.IsExcluded = true
	}

	inserted, err := e.ledger.Record(email)
	if err != nil {
		return nil, fmt.Errorf("record email: %w", err)
	}
	if !inserted {
		// another worker recorded the same message first
		winner, err := e.ledger.FindByFingerprint(userID, fingerprint)
		if err != nil {
			return nil, fmt.Errorf("reload after conflict: %w", err)
		}
		if winner == nil {
			return nil, errors.New("record email: conflicting row not visible")
		}
		e.remember(ctx, userID, fingerprint)
		return &ExtractResult{EmailID: winner.ID, Outcome: OutcomeDuplicate, Email: winner}, nil
	}

	e.remember(ctx, userID, fingerprint)
	if err := e.registry.Observe(userID, name, msg.ReceivedAt); err != nil {
		logger.Warnf("[Extractor] Registry observe failed: %v", err)
	}

	logger.WithField("newsletter", name).Infof("[Extractor] Email %s %s", email.ID, outcome)
	return &ExtractResult{EmailID: email.ID, Outcome: outcome, Email: email}, nil
}

// lookup always asks the ledger. A filter miss on a recorded row means the
// filter lost entries (Redis flush, failed add, rows older than the filter),
// so the fingerprint is added back.
func (e *Extractor) lookup(ctx context.Context, userID, fingerprint string) (*emaildomain.ExtractedEmail, error) {
	existing, err := e.ledger.FindByFingerprint(userID, fingerprint)
	if err != nil || existing == nil || e.seen == nil {
		return existing, err
	}
	if maybe, ferr := e.seen.MightContain(ctx, userID, fingerprint); ferr == nil && !maybe {
		e.remember(ctx, userID, fingerprint)
	}
	return existing, nil
}

func (e *Extractor) remember(ctx context.Context, userID, fingerprint string) {
	if e.seen == nil {
		return
	}
	if err := e.seen.Add(ctx, userID, fingerprint); err != nil {
		log.WithField("fingerprint", fingerprint).Warnf("[Extractor] Bloom add failed: %v", err)
	}
}
