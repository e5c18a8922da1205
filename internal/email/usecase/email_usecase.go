package usecase

import (
	"context"
	"strings"
	"time"

	emaildomain "github.com/jalemieux/hermes/internal/email/domain"
	"github.com/jalemieux/hermes/internal/email/repository"

	log "github.com/sirupsen/logrus"
)

// reindexBatch bounds how many emails one Reindex call embeds
const reindexBatch = 200

type emailUsecase struct {
	ledger  repository.ExtractedEmailRepository
	history repository.IndexHistoryRepository
	index   *SearchIndex
}

// NewEmailUsecase builds the email usecase. A nil index disables Search and Reindex.
func NewEmailUsecase(ledger repository.ExtractedEmailRepository, history repository.IndexHistoryRepository, index *SearchIndex) EmailUsecase {
	return &emailUsecase{ledger: ledger, history: history, index: index}
}

func (u *emailUsecase) List(userID string, limit, offset int) ([]emaildomain.ExtractedEmail, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.ledger.List(userID, limit, offset)
}

func (u *emailUsecase) Get(userID, id string) (*emaildomain.ExtractedEmail, error) {
	email, err := u.ledger.FindByID(userID, id)
	if err != nil {
		return nil, err
	}
	if email == nil {
		return nil, ErrEmailNotFound
	}
	return email, nil
}

func (u *emailUsecase) Text(userID, id string) (string, error) {
	email, err := u.Get(userID, id)
	if err != nil {
		return "", err
	}
	return email.Render(), nil
}

func (u *emailUsecase) SetHasAudio(userID, id string, hasAudio bool) error {
	if _, err := u.Get(userID, id); err != nil {
		return err
	}
	return u.ledger.SetHasAudio(userID, id, hasAudio)
}

func (u *emailUsecase) Search(ctx context.Context, userID, query string, limit int) ([]emaildomain.ExtractedEmail, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []emaildomain.ExtractedEmail{}, nil
	}
	if u.index == nil {
		return nil, ErrSearchUnavailable
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	ids, err := u.index.Search(ctx, userID, query, limit)
	if err != nil {
		return nil, err
	}
	// purged emails may linger in the index; FindByIDs drops them
	return u.ledger.FindByIDs(userID, ids)
}

func (u *emailUsecase) Reindex(ctx context.Context, userID string) (int, error) {
	if u.index == nil {
		return 0, ErrSearchUnavailable
	}
	ids, err := u.history.Unindexed(userID, reindexBatch)
	if err != nil {
		return 0, err
	}
	emails, err := u.ledger.FindByIDs(userID, ids)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for i := range emails {
		if ctx.Err() != nil {
			break
		}
		if err := u.index.Add(ctx, &emails[i]); err != nil {
			log.Warnf("[Index] Reindex of %s failed: %v", emails[i].ID, err)
			continue
		}
		indexed++
	}
	log.Infof("[Index] Reindexed %d/%d emails for user %s", indexed, len(emails), userID)
	return indexed, nil
}

func (u *emailUsecase) Purge(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	deleted, err := u.ledger.PurgeWithoutAudio(cutoff)
	if err != nil {
		return 0, err
	}
	log.Infof("[Retention] Deleted %d emails without audio received before %s", deleted, cutoff.Format(time.RFC3339))
	return deleted, nil
}
