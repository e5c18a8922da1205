package domain

import "time"

// IndexEntry tracks which extracted emails have been pushed to the vector index
// so that reindexing only embeds what is missing
type IndexEntry struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	EmailID   string    `json:"email_id" gorm:"uniqueIndex;not null"`
	IndexedAt time.Time `json:"indexed_at"`

	Email *ExtractedEmail `json:"-" gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE"`
}
