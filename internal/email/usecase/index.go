package usecase

import (
	"context"

	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
	"github.com/jalemieux/hermes/internal/email/repository"
	"github.com/jalemieux/hermes/pkg/chroma"

	log "github.com/sirupsen/logrus"
)

// SearchIndex keeps the vector store and the index history in step
type SearchIndex struct {
	store   VectorStore
	history repository.IndexHistoryRepository
}

func NewSearchIndex(store VectorStore, history repository.IndexHistoryRepository) *SearchIndex {
	return &SearchIndex{store: store, history: history}
}

// Add indexes one email. Excluded emails carry no content and are skipped.
func (s *SearchIndex) Add(ctx context.Context, email *emaildomain.ExtractedEmail) error {
	if email.IsExcluded {
		return nil
	}
	err := s.store.Index(ctx, chroma.Document{
		EmailID:        email.ID,
		UserID:         email.UserID,
		NewsletterName: email.NewsletterName,
		Subject:        email.Subject,
		Text:           email.Render(),
	})
	if err != nil {
		return err
	}
	if err := s.history.MarkIndexed(email.UserID, email.ID); err != nil {
		log.Warnf("[Index] Email %s indexed but history not saved: %v", email.ID, err)
	}
	return nil
}

func (s *SearchIndex) Search(ctx context.Context, userID, query string, limit int) ([]string, error) {
	hits, err := s.store.Search(ctx, userID, query, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.EmailID
	}
	return ids, nil
}
