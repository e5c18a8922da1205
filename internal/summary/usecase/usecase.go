package usecase

import (
	"context"
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
	summarydomain "github.com/jalemieux/hermes/internal/summary/domain"
)

// SummaryUsecase owns digest requests and the pending -> completed lifecycle
type SummaryUsecase interface {
	// GenerateDigest synthesizes the user's emails since the last completed digest
	GenerateDigest(ctx context.Context, userID string) (*summarydomain.Summary, error)
	// GenerateFromEmails synthesizes exactly the given emails
	GenerateFromEmails(ctx context.Context, userID string, emailIDs []string) (*summarydomain.Summary, error)
	// RequestDigest creates the pending row for a digest that will be run later with Resume
	RequestDigest(userID string) (*summarydomain.Summary, error)
	Resume(ctx context.Context, userID, summaryID string) (*summarydomain.Summary, error)
	Abandon(summaryID string) error
	Regenerate(ctx context.Context, userID, summaryID string) (*summarydomain.Summary, error)

	Get(userID, summaryID string) (*summarydomain.Summary, error)
	List(userID string, limit, offset int) ([]summarydomain.Summary, int64, error)
	SpokenScript(userID, summaryID string) (string, error)
	SetHasAudio(userID, summaryID string, hasAudio bool) error

	SweepStale(now time.Time) (int64, error)
	RunDailyDigests(ctx context.Context) (int, error)
}

// EmailSource is the slice of the email ledger digests read from
type EmailSource interface {
	FindByIDs(userID string, ids []string) ([]emaildomain.ExtractedEmail, error)
	FindForDigest(userID string, from, to time.Time) ([]emaildomain.ExtractedEmail, error)
	MarkSummarized(userID string, ids []string) error
}

// ActivityFilter reports the newsletters a user switched off
type ActivityFilter interface {
	InactiveNames(userID string) (map[string]bool, error)
}

type DigestUsers interface {
	ListWithInbox() ([]authdomain.User, error)
}

type TaskRecorder interface {
	Start(name string) error
	Finish(name string, runErr error) error
}

// Notifier is told about every completed summary. It must not fail the caller.
type Notifier interface {
	SummaryCompleted(ctx context.Context, s *summarydomain.Summary)
}
