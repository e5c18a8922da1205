package usecase

import (
	"time"

	emailrepo "github.com/jalemieux/hermes/internal/email/repository"
	"github.com/jalemieux/hermes/internal/newsletter/domain"
)

// RegistryUsecase tracks which newsletters a user receives and which ones
// they want in their digests. Unknown names are active.
type RegistryUsecase interface {
	Observe(userID, name string, seenAt time.Time) error
	IsActive(userID, name string) (bool, error)
	SetActive(userID, name string, active bool) (*domain.Subscription, error)
	// InactiveNames is the user's opt-out list, used to filter digest input
	InactiveNames(userID string) (map[string]bool, error)

	List(userID string) ([]domain.Subscription, error)
	Search(userID, query string) ([]domain.Subscription, error)
	// Backfill registers every newsletter name already present in stored emails.
	// Returns how many subscriptions were created.
	Backfill(userID string) (int, error)
}

// NameSource lists newsletter names from already extracted emails
type NameSource interface {
	DistinctNewsletterNames(userID string) ([]emailrepo.NameSighting, error)
}
