package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Agent is the immutable-per-call configuration snapshot the orchestrator
// loads at session start: prompt, voice, model, enabled tools, optional
// knowledge base.
type Agent struct {
	BaseModel

	Name     string `gorm:"not null" json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	SystemPrompt string     `gorm:"type:text;not null" json:"system_prompt"`
	Greeting     string     `json:"greeting,omitempty"`
	Language     string     `gorm:"default:en-US" json:"language"`
	VoiceID      string     `gorm:"default:a0e99841-438c-4a64-b679-ae501e7d6091" json:"voice_id"`
	LLMModel     string     `gorm:"default:gpt-4o-mini" json:"llm_model"`
	Temperature  float64    `gorm:"default:0.7" json:"temperature"`
	MaxTokens    int        `gorm:"default:1024" json:"max_tokens"`
	ToolsEnabled StringList `gorm:"type:jsonb" json:"tools_enabled"`

	KnowledgeBaseID *uuid.UUID `gorm:"type:uuid;index" json:"knowledge_base_id,omitempty"`
	Metadata        JSONMap    `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Relations (loaded manually via repository, no FK constraints)
	KnowledgeBase KnowledgeBase `gorm:"-" json:"knowledge_base,omitempty"`
	Calls         []Call        `gorm:"-" json:"calls,omitempty"`
}

// DefaultAgent is returned when a call's configured agent cannot be
// loaded, mirroring the original implementation's hardcoded fallback.
func DefaultAgent() *Agent {
	return &Agent{
		Name:         "Default Assistant",
		IsActive:     true,
		SystemPrompt: "You are a helpful voice assistant. Keep responses brief and conversational.",
		Greeting:     "Hello! How can I help you today?",
		Language:     "en-US",
		VoiceID:      "a0e99841-438c-4a64-b679-ae501e7d6091",
		LLMModel:     "gpt-4o-mini",
		Temperature:  0.7,
		MaxTokens:    1024,
		ToolsEnabled: StringList{"end_call"},
	}
}

// BeforeDelete cascades to calls (which themselves cascade to transcript
// entries and function call logs).
func (a *Agent) BeforeDelete(tx *gorm.DB) error {
	var calls []Call
	tx.Where("agent_id = ?", a.ID).Find(&calls)
	for _, c := range calls {
		if err := tx.Delete(&c).Error; err != nil {
			return err
		}
	}
	return nil
}
