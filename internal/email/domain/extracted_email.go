package domain

import (
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
)

// ExtractedEmail is the persisted, structured form of one newsletter message.
// (UserID, Fingerprint) is unique: a message is recorded at most once per user.
type ExtractedEmail struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	UserID         string    `json:"user_id" gorm:"not null;uniqueIndex:idx_user_fingerprint,priority:1;index:idx_user_email_date,priority:1"`
	Fingerprint    string    `json:"fingerprint" gorm:"size:64;not null;uniqueIndex:idx_user_fingerprint,priority:2"`
	NewsletterName string    `json:"newsletter_name" gorm:"index"`
	Sender         string    `json:"sender"`
	Subject        string    `json:"subject"`
	EmailDate      time.Time `json:"email_date" gorm:"index:idx_user_email_date,priority:2"`
	TextContent    string    `json:"-" gorm:"type:text"`
	IsExcluded     bool      `json:"is_excluded" gorm:"not null"`
	HasAudio       bool      `json:"has_audio" gorm:"not null"`
	IsSummarized   bool      `json:"is_summarized" gorm:"not null"`
	Topics         []Topic   `json:"topics" gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE"`
	Sources        []Source  `json:"sources" gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	User *authdomain.User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (ExtractedEmail) TableName() string {
	return "extracted_emails"
}

type Topic struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	EmailID   string     `json:"-" gorm:"index;not null"`
	Position  int        `json:"-"`
	Header    string     `json:"header"`
	Summary   string     `json:"summary" gorm:"type:text"`
	NewsItems []NewsItem `json:"news" gorm:"foreignKey:TopicID;constraint:OnDelete:CASCADE"`
}

type NewsItem struct {
	ID       string `json:"id" gorm:"primaryKey"`
	TopicID  string `json:"-" gorm:"index;not null"`
	Position int    `json:"-"`
	Title    string `json:"title"`
	Content  string `json:"content" gorm:"type:text"`
}

type Source struct {
	ID        string `json:"id" gorm:"primaryKey"`
	EmailID   string `json:"-" gorm:"index;not null"`
	Position  int    `json:"-"`
	URL       string `json:"url"`
	Date      string `json:"date"`
	Title     string `json:"title"`
	Publisher string `json:"publisher"`
}
