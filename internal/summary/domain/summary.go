package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	ErrSummaryInProgress   = errors.New("a summary is already being generated")
	ErrNothingToSummarize  = errors.New("no emails found to summarize")
	ErrGenerationFailed    = errors.New("summary generation failed")
	ErrSummaryNotFound     = errors.New("summary not found")
	ErrSummaryNotCompleted = errors.New("summary is not completed")
	ErrUnknownSourceEmail  = errors.New("source email not found")
)

type KeyPoint struct {
	Text string `json:"text"`
}

type Section struct {
	Header  string `json:"header"`
	Content string `json:"content"`
}

// Source is unique by URL within one summary
type Source struct {
	URL       string `json:"url"`
	Date      string `json:"date"`
	Title     string `json:"title"`
	Publisher string `json:"publisher"`
}

// Summary is one digest over the emails received in [FromDate, ToDate).
// Once completed only Title, KeyPoints, Sections and the audio fields change.
type Summary struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	UserID          string     `json:"user_id" gorm:"index:idx_user_status_created,priority:1;not null"`
	Status          string     `json:"status" gorm:"size:16;index:idx_user_status_created,priority:2;not null"`
	Title           string     `json:"title"`
	FromToDate      string     `json:"from_to_date"`
	FromDate        time.Time  `json:"from_date" gorm:"not null"`
	ToDate          time.Time  `json:"to_date" gorm:"not null;index"`
	KeyPoints       []KeyPoint `json:"key_points" gorm:"type:jsonb;serializer:json"`
	Sections        []Section  `json:"sections" gorm:"type:jsonb;serializer:json"`
	Sources         []Source   `json:"sources" gorm:"type:jsonb;serializer:json"`
	NewsletterNames []string   `json:"newsletter_names" gorm:"type:jsonb;serializer:json"`
	SourceEmailIDs  []string   `json:"source_email_ids" gorm:"type:jsonb;serializer:json"`
	DatePublished   *time.Time `json:"date_published,omitempty"`
	HasAudio        bool       `json:"has_audio" gorm:"not null"`
	AudioURL        string     `json:"audio_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index:idx_user_status_created,priority:3"`
	UpdatedAt       time.Time  `json:"updated_at"`

	User *authdomain.User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (Summary) TableName() string {
	return "summaries"
}

func (s *Summary) IsCompleted() bool {
	return s.Status == StatusCompleted
}

// DateRange formats a window the way digests are titled, e.g. "January 02, 2006 to January 09, 2006"
func DateRange(from, to time.Time) string {
	const layout = "January 02, 2006"
	return fmt.Sprintf("%s to %s", from.Format(layout), to.Format(layout))
}

// SpokenScript is the text handed to the voice pipeline
func (s *Summary) SpokenScript() string {
	var b strings.Builder
	b.WriteString(s.Title)
	b.WriteString(".\n\n")
	if s.FromToDate != "" {
		b.WriteString("Covering ")
		b.WriteString(s.FromToDate)
		b.WriteString(".\n\n")
	}
	if len(s.KeyPoints) > 0 {
		b.WriteString("Key points.\n")
		for _, p := range s.KeyPoints {
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	for _, sec := range s.Sections {
		b.WriteString(sec.Header)
		b.WriteString(".\n")
		b.WriteString(sec.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
