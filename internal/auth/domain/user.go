package domain

import (
	"errors"
	"time"
)

const (
	InboxGmail = "gmail"
	InboxIMAP  = "imap"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("email already registered")
	ErrInboxNotConfigured = errors.New("no inbox connected")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type User struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-"` // Never return password in JSON
	Name     string `json:"name"`

	// Inbox the newsletters are read from
	InboxProvider     string     `json:"inbox_provider,omitempty"`
	InboxAddress      string     `json:"inbox_address,omitempty" gorm:"index"`
	GmailAccessToken  string     `json:"-"`
	GmailRefreshToken string     `json:"-"`
	GmailHistoryID    uint64     `json:"-"`
	ImapServer        string     `json:"imap_server,omitempty"`
	ImapPort          int        `json:"imap_port,omitempty"`
	ImapPassword      string     `json:"-"` // sealed
	InboxSyncedAt     *time.Time `json:"inbox_synced_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) HasInbox() bool {
	switch u.InboxProvider {
	case InboxGmail:
		return u.GmailRefreshToken != "" || u.GmailAccessToken != ""
	case InboxIMAP:
		return u.ImapServer != "" && u.ImapPassword != ""
	}
	return false
}

type RefreshToken struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	ExpiresAt time.Time `json:"expires_at"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
