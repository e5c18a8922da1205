package repository

import (
	"errors"
	"time"

	newsletterdomain "github.com/jalemieux/hermes/internal/newsletter/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository interface {
	Find(userID, name string) (*newsletterdomain.Subscription, error)
	ListByUser(userID string) ([]newsletterdomain.Subscription, error)
	// Observe creates an active subscription or raises latest_seen_date to seenAt,
	// whichever applies, in one statement
	Observe(userID, name string, seenAt time.Time) error
	// SetActive creates or updates the subscription with the given flag
	SetActive(userID, name string, active bool) (*newsletterdomain.Subscription, error)
	InactiveNames(userID string) ([]string, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Find(userID, name string) (*newsletterdomain.Subscription, error) {
	var sub newsletterdomain.Subscription
	err := r.db.Where("user_id = ? AND name = ?", userID, name).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByUser(userID string) ([]newsletterdomain.Subscription, error) {
	var subs []newsletterdomain.Subscription
	err := r.db.Where("user_id = ?", userID).
		Order("latest_seen_date DESC NULLS LAST").
		Order("name").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) Observe(userID, name string, seenAt time.Time) error {
	now := time.Now()
	sub := &newsletterdomain.Subscription{
		ID:             uuid.New().String(),
		UserID:         userID,
		Name:           name,
		IsActive:       true,
		LatestSeenDate: &seenAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"latest_seen_date": gorm.Expr("GREATEST(newsletter_subscriptions.latest_seen_date, EXCLUDED.latest_seen_date)"),
			"updated_at":       now,
		}),
	}).Create(sub).Error
}

func (r *subscriptionRepository) SetActive(userID, name string, active bool) (*newsletterdomain.Subscription, error) {
	now := time.Now()
	sub := &newsletterdomain.Subscription{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_active", "updated_at"}),
	}).Create(sub).Error
	if err != nil {
		return nil, err
	}
	return r.Find(userID, name)
}

func (r *subscriptionRepository) InactiveNames(userID string) ([]string, error) {
	var names []string
	err := r.db.Model(&newsletterdomain.Subscription{}).
		Where("user_id = ? AND is_active = ?", userID, false).
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
