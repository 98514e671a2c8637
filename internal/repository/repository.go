package repository

import (
	"gorm.io/gorm"
)

// Repositories bundles every entity repository behind a single handle,
// constructed once in cmd/server and threaded through the services that
// need persistence.
type Repositories struct {
	Agent           *AgentRepository
	Call            *CallRepository
	TranscriptEntry *TranscriptEntryRepository
	FunctionCallLog *FunctionCallLogRepository
	CustomFunction  *CustomFunctionRepository
	KnowledgeBase   *KnowledgeBaseRepository
	KBFile          *KBFileRepository
	PhoneNumber     *PhoneNumberRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Agent:           NewAgentRepository(db),
		Call:            NewCallRepository(db),
		TranscriptEntry: NewTranscriptEntryRepository(db),
		FunctionCallLog: NewFunctionCallLogRepository(db),
		CustomFunction:  NewCustomFunctionRepository(db),
		KnowledgeBase:   NewKnowledgeBaseRepository(db),
		KBFile:          NewKBFileRepository(db),
		PhoneNumber:     NewPhoneNumberRepository(db),
	}
}
