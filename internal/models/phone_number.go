package models

import "github.com/google/uuid"

// PhoneNumber maps a telephony DID to the Agent that should answer calls
// to it. Used by the inbound webhook's agent-resolution fallback chain:
// resolve by called number, else fall back to the first active agent.
type PhoneNumber struct {
	BaseModel

	Number   string    `gorm:"uniqueIndex;not null" json:"number"`
	AgentID  uuid.UUID `gorm:"type:uuid;not null;index" json:"agent_id"`
	IsActive bool      `gorm:"default:true" json:"is_active"`
}
