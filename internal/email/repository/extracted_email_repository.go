package repository

import (
	"errors"
	"time"

	emaildomain "github.com/jalemieux/hermes/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NameSighting is a newsletter name with the most recent email date it was seen on
type NameSighting struct {
	Name     string
	LastSeen time.Time
}

// ExtractedEmailRepository is the deduplication ledger plus the read paths over it.
// The (user_id, fingerprint) unique index is what makes Record safe under concurrent workers.
type ExtractedEmailRepository interface {
	FindByFingerprint(userID, fingerprint string) (*emaildomain.ExtractedEmail, error)
	// Record inserts the email and its content. It returns false, without
	// writing anything, when the user already has a row with the same fingerprint.
	Record(email *emaildomain.ExtractedEmail) (bool, error)
	FindByID(userID, id string) (*emaildomain.ExtractedEmail, error)
	// FindByIDs loads the user's emails with content, in the order of ids.
	// Ids that are unknown or owned by someone else are left out.
	FindByIDs(userID string, ids []string) ([]emaildomain.ExtractedEmail, error)
	// FindForDigest returns non-excluded emails received in [from, to), oldest first
	FindForDigest(userID string, from, to time.Time) ([]emaildomain.ExtractedEmail, error)
	List(userID string, limit, offset int) ([]emaildomain.ExtractedEmail, int64, error)
	MarkSummarized(userID string, ids []string) error
	SetHasAudio(userID, id string, hasAudio bool) error
	DistinctNewsletterNames(userID string) ([]NameSighting, error)
	// PurgeWithoutAudio deletes emails received before cutoff that never got audio
	PurgeWithoutAudio(cutoff time.Time) (int64, error)
}

type extractedEmailRepository struct {
	db *gorm.DB
}

func NewExtractedEmailRepository(db *gorm.DB) ExtractedEmailRepository {
	return &extractedEmailRepository{db: db}
}

func (r *extractedEmailRepository) FindByFingerprint(userID, fingerprint string) (*emaildomain.ExtractedEmail, error) {
	var email emaildomain.ExtractedEmail
	err := r.db.Where("user_id = ? AND fingerprint = ?", userID, fingerprint).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

func (r *extractedEmailRepository) Record(email *emaildomain.ExtractedEmail) (bool, error) {
	now := time.Now()
	if email.ID == "" {
		email.ID = uuid.New().String()
	}
	email.CreatedAt = now
	email.UpdatedAt = now
	assignChildIDs(email)

	inserted := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// INSERT ... ON CONFLICT (user_id, fingerprint) DO NOTHING
		res := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "fingerprint"}},
			DoNothing: true,
		}).Create(email)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true

		if len(email.Topics) > 0 {
			if err := tx.Create(&email.Topics).Error; err != nil {
				return err
			}
		}
		if len(email.Sources) > 0 {
			if err := tx.Create(&email.Sources).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func assignChildIDs(email *emaildomain.ExtractedEmail) {
	for i := range email.Topics {
		t := &email.Topics[i]
		t.ID = uuid.New().String()
		t.EmailID = email.ID
		t.Position = i
		for j := range t.NewsItems {
			n := &t.NewsItems[j]
			n.ID = uuid.New().String()
			n.TopicID = t.ID
			n.Position = j
		}
	}
	for i := range email.Sources {
		s := &email.Sources[i]
		s.ID = uuid.New().String()
		s.EmailID = email.ID
		s.Position = i
	}
}

func withContent(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Topics", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Topics.NewsItems", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Sources", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
}

func (r *extractedEmailRepository) FindByID(userID, id string) (*emaildomain.ExtractedEmail, error) {
	var email emaildomain.ExtractedEmail
	err := withContent(r.db).Where("user_id = ? AND id = ?", userID, id).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

func (r *extractedEmailRepository) FindByIDs(userID string, ids []string) ([]emaildomain.ExtractedEmail, error) {
	if len(ids) == 0 {
		return []emaildomain.ExtractedEmail{}, nil
	}

	var rows []emaildomain.ExtractedEmail
	if err := withContent(r.db).Where("user_id = ? AND id IN ?", userID, ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]emaildomain.ExtractedEmail, len(rows))
	for _, e := range rows {
		byID[e.ID] = e
	}
	ordered := make([]emaildomain.ExtractedEmail, 0, len(rows))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			ordered = append(ordered, e)
			delete(byID, id)
		}
	}
	return ordered, nil
}

func (r *extractedEmailRepository) FindForDigest(userID string, from, to time.Time) ([]emaildomain.ExtractedEmail, error) {
	var emails []emaildomain.ExtractedEmail
	err := r.db.
		Where("user_id = ? AND is_excluded = ? AND email_date >= ? AND email_date < ?", userID, false, from, to).
		Order("email_date ASC").
		Find(&emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

func (r *extractedEmailRepository) List(userID string, limit, offset int) ([]emaildomain.ExtractedEmail, int64, error) {
	var total int64
	base := r.db.Model(&emaildomain.ExtractedEmail{}).Where("user_id = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var emails []emaildomain.ExtractedEmail
	err := r.db.Where("user_id = ?", userID).
		Order("email_date DESC").
		Limit(limit).
		Offset(offset).
		Find(&emails).Error
	if err != nil {
		return nil, 0, err
	}
	return emails, total, nil
}

func (r *extractedEmailRepository) MarkSummarized(userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&emaildomain.ExtractedEmail{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Updates(map[string]interface{}{"is_summarized": true, "updated_at": time.Now()}).Error
}

func (r *extractedEmailRepository) SetHasAudio(userID, id string, hasAudio bool) error {
	return r.db.Model(&emaildomain.ExtractedEmail{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(map[string]interface{}{"has_audio": hasAudio, "updated_at": time.Now()}).Error
}

func (r *extractedEmailRepository) DistinctNewsletterNames(userID string) ([]NameSighting, error) {
	var rows []struct {
		Name     string
		LastSeen time.Time
	}
	err := r.db.Model(&emaildomain.ExtractedEmail{}).
		Select("newsletter_name AS name, MAX(email_date) AS last_seen").
		Where("user_id = ? AND newsletter_name <> ''", userID).
		Group("newsletter_name").
		Order("name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]NameSighting, len(rows))
	for i, row := range rows {
		out[i] = NameSighting{Name: row.Name, LastSeen: row.LastSeen}
	}
	return out, nil
}

func (r *extractedEmailRepository) PurgeWithoutAudio(cutoff time.Time) (int64, error) {
	res := r.db.Where("email_date < ? AND has_audio = ?", cutoff, false).Delete(&emaildomain.ExtractedEmail{})
	return res.RowsAffected, res.Error
}
