package domain

import (
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
)

// Subscription is a user's view of one newsletter: seen at least once,
// included in digests unless the user turned it off
type Subscription struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	UserID         string     `json:"user_id" gorm:"not null;uniqueIndex:idx_user_newsletter,priority:1"`
	Name           string     `json:"name" gorm:"not null;uniqueIndex:idx_user_newsletter,priority:2"`
	IsActive       bool       `json:"is_active" gorm:"not null"`
	LatestSeenDate *time.Time `json:"latest_seen_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	User *authdomain.User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (Subscription) TableName() string {
	return "newsletter_subscriptions"
}
