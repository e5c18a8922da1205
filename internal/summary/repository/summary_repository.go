package repository

import (
	"errors"
	"time"

	summarydomain "github.com/jalemieux/hermes/internal/summary/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SummaryRepository interface {
	// CreatePending inserts s unless the user has a pending summary created at or after since.
	// It reports false when the row was not created.
	CreatePending(s *summarydomain.Summary, since time.Time) (bool, error)
	FindByID(userID, id string) (*summarydomain.Summary, error)
	List(userID string, limit, offset int) ([]summarydomain.Summary, int64, error)
	LastCompleted(userID string) (*summarydomain.Summary, error)
	// Complete writes the content of a pending summary and flips it to completed
	Complete(s *summarydomain.Summary) error
	// UpdateContent rewrites title, key points and sections of a completed summary
	UpdateContent(s *summarydomain.Summary) error
	DeletePending(id string) error
	DeleteStalePending(before time.Time) (int64, error)
	SetHasAudio(userID, id string, hasAudio bool) error
}

type summaryRepository struct {
	db *gorm.DB
}

func NewSummaryRepository(db *gorm.DB) SummaryRepository {
	return &summaryRepository{db: db}
}

func (r *summaryRepository) CreatePending(s *summarydomain.Summary, since time.Time) (bool, error) {
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		err := tx.Model(&summarydomain.Summary{}).
			Where("user_id = ? AND status = ? AND created_at >= ?", s.UserID, summarydomain.StatusPending, since).
			Count(&n).Error
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := tx.Omit(clause.Associations).Create(s).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (r *summaryRepository) FindByID(userID, id string) (*summarydomain.Summary, error) {
	var s summarydomain.Summary
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *summaryRepository) List(userID string, limit, offset int) ([]summarydomain.Summary, int64, error) {
	var total int64
	if err := r.db.Model(&summarydomain.Summary{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []summarydomain.Summary
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *summaryRepository) LastCompleted(userID string) (*summarydomain.Summary, error) {
	var s summarydomain.Summary
	err := r.db.Where("user_id = ? AND status = ?", userID, summarydomain.StatusCompleted).
		Order("to_date DESC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *summaryRepository) Complete(s *summarydomain.Summary) error {
	res := r.db.Model(s).
		Where("status = ?", summarydomain.StatusPending).
		Select("status", "title", "from_to_date", "key_points", "sections", "sources",
			"newsletter_names", "source_email_ids", "date_published", "updated_at").
		Updates(s)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return summarydomain.ErrSummaryNotFound
	}
	return nil
}

func (r *summaryRepository) UpdateContent(s *summarydomain.Summary) error {
	res := r.db.Model(s).
		Where("status = ?", summarydomain.StatusCompleted).
		Select("title", "key_points", "sections", "updated_at").
		Updates(s)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return summarydomain.ErrSummaryNotFound
	}
	return nil
}

func (r *summaryRepository) DeletePending(id string) error {
	return r.db.Where("id = ? AND status = ?", id, summarydomain.StatusPending).
		Delete(&summarydomain.Summary{}).Error
}

func (r *summaryRepository) DeleteStalePending(before time.Time) (int64, error) {
	res := r.db.Where("status = ? AND created_at < ?", summarydomain.StatusPending, before).
		Delete(&summarydomain.Summary{})
	return res.RowsAffected, res.Error
}

func (r *summaryRepository) SetHasAudio(userID, id string, hasAudio bool) error {
	res := r.db.Model(&summarydomain.Summary{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"has_audio": hasAudio, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return summarydomain.ErrSummaryNotFound
	}
	return nil
}
