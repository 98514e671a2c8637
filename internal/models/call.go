package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallDirection enumerates how a call was established.
type CallDirection string

const (
	DirectionInbound  CallDirection = "inbound"
	DirectionOutbound CallDirection = "outbound"
	DirectionBrowser  CallDirection = "browser"
)

// CallStatus enumerates the lifecycle of a Call row. Transitions are
// monotonic except for the terminal states.
type CallStatus string

const (
	StatusQueued     CallStatus = "queued"
	StatusConnecting CallStatus = "connecting"
	StatusRinging    CallStatus = "ringing"
	StatusInProgress CallStatus = "in-progress"
	StatusCompleted  CallStatus = "completed"
	StatusFailed     CallStatus = "failed"
)

// Call is one phone or browser session against an Agent.
type Call struct {
	BaseModel

	AgentID uuid.UUID     `gorm:"type:uuid;not null;index" json:"agent_id"`
	Direction CallDirection `gorm:"not null" json:"direction"`

	CallerNumber    string `json:"caller_number,omitempty"`
	ExternalCallSID string `gorm:"index" json:"external_call_sid,omitempty"`

	Status    CallStatus `gorm:"not null;index;default:queued" json:"status"`
	EndReason string     `json:"end_reason,omitempty"`

	StartedAt       time.Time  `gorm:"not null" json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`

	// Relations (loaded manually via repository, no FK constraints)
	Agent             Agent             `gorm:"-" json:"agent,omitempty"`
	TranscriptEntries []TranscriptEntry `gorm:"-" json:"transcript_entries,omitempty"`
}

// BeforeDelete cascades to transcript entries and function call logs.
func (c *Call) BeforeDelete(tx *gorm.DB) error {
	if err := tx.Where("call_id = ?", c.ID).Delete(&TranscriptEntry{}).Error; err != nil {
		return err
	}
	if err := tx.Where("call_id = ?", c.ID).Delete(&FunctionCallLog{}).Error; err != nil {
		return err
	}
	return nil
}
