package repository

import (
	"time"

	emaildomain "github.com/jalemieux/hermes/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IndexHistoryRepository records which emails are already in the vector index
type IndexHistoryRepository interface {
	// MarkIndexed upserts the entry, refreshing IndexedAt
	MarkIndexed(userID, emailID string) error
	// Unindexed returns ids of the user's non-excluded emails that have no entry yet
	Unindexed(userID string, limit int) ([]string, error)
}

type indexHistoryRepository struct {
	db *gorm.DB
}

func NewIndexHistoryRepository(db *gorm.DB) IndexHistoryRepository {
	return &indexHistoryRepository{db: db}
}

func (r *indexHistoryRepository) MarkIndexed(userID, emailID string) error {
	entry := &emaildomain.IndexEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		EmailID:   emailID,
		IndexedAt: time.Now(),
	}
	return r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"indexed_at"}),
	}).Create(entry).Error
}

func (r *indexHistoryRepository) Unindexed(userID string, limit int) ([]string, error) {
	var ids []string
	q := r.db.Model(&emaildomain.ExtractedEmail{}).
		Where("user_id = ? AND is_excluded = ?", userID, false).
		Where("NOT EXISTS (SELECT 1 FROM index_entries ie WHERE ie.email_id = extracted_emails.id)").
		Order("email_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
