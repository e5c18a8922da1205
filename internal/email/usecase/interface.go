package usecase

import (
	"context"
	"errors"
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
	"github.com/jalemieux/hermes/pkg/chroma"
)

var (
	ErrEmailNotFound     = errors.New("email not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrSearchUnavailable = errors.New("semantic search not configured")
)

// EmailUsecase is the read side over extracted emails plus retention
type EmailUsecase interface {
	List(userID string, limit, offset int) ([]emaildomain.ExtractedEmail, int64, error)
	Get(userID, id string) (*emaildomain.ExtractedEmail, error)
	// Text is the rendered plain text of the email, also used as a spoken script
	Text(userID, id string) (string, error)
	SetHasAudio(userID, id string, hasAudio bool) error
	Search(ctx context.Context, userID, query string, limit int) ([]emaildomain.ExtractedEmail, error)
	// Reindex pushes every email missing from the vector index
	Reindex(ctx context.Context, userID string) (int, error)
	// Purge deletes emails older than the retention window that never got audio
	Purge(olderThan time.Duration) (int64, error)
}

// Registry is the newsletter registry as seen by extraction
type Registry interface {
	IsActive(userID, name string) (bool, error)
	Observe(userID, name string, seenAt time.Time) error
}

// SeenFilter is a probabilistic set of fingerprints already recorded
type SeenFilter interface {
	MightContain(ctx context.Context, userID, fingerprint string) (bool, error)
	Add(ctx context.Context, userID, fingerprint string) error
}

// VectorStore is the semantic index backend
type VectorStore interface {
	Index(ctx context.Context, doc chroma.Document) error
	Search(ctx context.Context, userID, query string, limit int) ([]chroma.Hit, error)
}

// Mailbox fetches a user's raw messages received since a point in time, oldest first
type Mailbox interface {
	Fetch(ctx context.Context, user *authdomain.User, since time.Time) ([]emaildomain.RawMessage, error)
}

// InboxUsers is the slice of the user store ingestion needs
type InboxUsers interface {
	FindByID(id string) (*authdomain.User, error)
	ListWithInbox() ([]authdomain.User, error)
	MarkInboxSynced(userID string, at time.Time) error
}

// TaskRecorder keeps the last run state of named batch jobs
type TaskRecorder interface {
	Start(name string) error
	Finish(name string, runErr error) error
}
