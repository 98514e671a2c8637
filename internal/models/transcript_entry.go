package models

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptRole identifies the speaker of a TranscriptEntry.
type TranscriptRole string

const (
	RoleUser      TranscriptRole = "user"
	RoleAssistant TranscriptRole = "assistant"
	RoleSystem    TranscriptRole = "system"
)

// TranscriptEntry is one finalized utterance. Append-only: never
// updated after insert.
type TranscriptEntry struct {
	BaseModel

	CallID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"call_id"`
	Role      TranscriptRole `gorm:"not null" json:"role"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time      `gorm:"not null" json:"timestamp"`
}
