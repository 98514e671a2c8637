package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/voxcore/voxcore/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to connect to test database")

	err = db.AutoMigrate(
		&models.Agent{},
		&models.Call{},
		&models.TranscriptEntry{},
		&models.FunctionCallLog{},
		&models.CustomFunction{},
		&models.KnowledgeBase{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func testAgent() *models.Agent {
	return &models.Agent{
		Name:         "Test Agent",
		IsActive:     true,
		SystemPrompt: "You are a helpful assistant",
	}
}

// TestAgentSoftDelete verifies that agent deletion is soft delete.
func TestAgentSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	agentRepo := NewAgentRepository(db)

	agent := testAgent()
	require.NoError(t, agentRepo.Create(agent))

	require.NoError(t, agentRepo.Delete(agent.ID))

	_, err := agentRepo.GetByID(agent.ID)
	assert.Error(t, err, "soft-deleted agent should not be retrievable")

	var deleted models.Agent
	require.NoError(t, db.Unscoped().First(&deleted, "id = ?", agent.ID).Error, "agent should still exist in database")
	assert.True(t, deleted.DeletedAt.Valid, "deleted_at should be set")
}

// TestCallSoftDelete verifies that call deletion is soft delete.
func TestCallSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	agentRepo := NewAgentRepository(db)
	callRepo := NewCallRepository(db)

	agent := testAgent()
	require.NoError(t, agentRepo.Create(agent))

	call := &models.Call{
		AgentID:   agent.ID,
		Direction: models.DirectionBrowser,
		Status:    models.StatusInProgress,
		StartedAt: time.Now(),
	}
	require.NoError(t, callRepo.Create(call))

	require.NoError(t, callRepo.Delete(call.ID))

	_, err := callRepo.GetByID(call.ID)
	assert.Error(t, err, "soft-deleted call should not be retrievable")

	var deleted models.Call
	require.NoError(t, db.Unscoped().First(&deleted, "id = ?", call.ID).Error, "call should still exist in database")
	assert.True(t, deleted.DeletedAt.Valid, "deleted_at should be set")
}

// TestCascadeSoftDelete_Agent verifies that deleting an agent cascades to
// its calls, which in turn cascade to transcript entries and function
// call logs, via Agent.BeforeDelete / Call.BeforeDelete.
func TestCascadeSoftDelete_Agent(t *testing.T) {
	db := setupTestDB(t)
	agentRepo := NewAgentRepository(db)
	callRepo := NewCallRepository(db)
	transcriptRepo := NewTranscriptEntryRepository(db)

	agent := testAgent()
	require.NoError(t, agentRepo.Create(agent))

	call := &models.Call{
		AgentID:   agent.ID,
		Direction: models.DirectionInbound,
		Status:    models.StatusInProgress,
		StartedAt: time.Now(),
	}
	require.NoError(t, callRepo.Create(call))

	entry := &models.TranscriptEntry{
		CallID:    call.ID,
		Role:      models.RoleUser,
		Content:   "hello",
		Timestamp: time.Now(),
	}
	require.NoError(t, transcriptRepo.Create(entry))

	log := &models.FunctionCallLog{
		CallID:       &call.ID,
		FunctionName: "end_call",
		Status:       models.FunctionCallExecuting,
		ExecutedAt:   time.Now(),
	}
	require.NoError(t, db.Create(log).Error)

	require.NoError(t, agentRepo.Delete(agent.ID))

	_, err := agentRepo.GetByID(agent.ID)
	assert.Error(t, err, "agent should not be retrievable")

	_, err = callRepo.GetByID(call.ID)
	assert.Error(t, err, "call should be soft deleted via cascade")

	entries, err := transcriptRepo.ListByCallID(call.ID)
	require.NoError(t, err)
	assert.Empty(t, entries, "transcript entries should be soft deleted via cascade")

	var deletedLog models.FunctionCallLog
	err = db.First(&deletedLog, "id = ?", log.ID).Error
	assert.Error(t, err, "function call log should be soft deleted via cascade")

	var unscopedAgent models.Agent
	require.NoError(t, db.Unscoped().First(&unscopedAgent, "id = ?", agent.ID).Error)
	assert.True(t, unscopedAgent.DeletedAt.Valid)

	var unscopedCall models.Call
	require.NoError(t, db.Unscoped().First(&unscopedCall, "id = ?", call.ID).Error)
	assert.True(t, unscopedCall.DeletedAt.Valid)

	var unscopedLog models.FunctionCallLog
	require.NoError(t, db.Unscoped().First(&unscopedLog, "id = ?", log.ID).Error)
	assert.True(t, unscopedLog.DeletedAt.Valid)
}

// TestListExcludesSoftDeleted verifies that list queries exclude
// soft-deleted records.
func TestListExcludesSoftDeleted(t *testing.T) {
	db := setupTestDB(t)
	agentRepo := NewAgentRepository(db)

	agent1 := testAgent()
	agent1.Name = "Agent 1"
	agent2 := testAgent()
	agent2.Name = "Agent 2"
	agent3 := testAgent()
	agent3.Name = "Agent 3"

	require.NoError(t, agentRepo.Create(agent1))
	require.NoError(t, agentRepo.Create(agent2))
	require.NoError(t, agentRepo.Create(agent3))

	agents, err := agentRepo.List()
	require.NoError(t, err)
	assert.Len(t, agents, 3, "should have 3 agents")

	require.NoError(t, agentRepo.Delete(agent2.ID))

	agents, err = agentRepo.List()
	require.NoError(t, err)
	assert.Len(t, agents, 2, "should have 2 agents after soft delete")

	for _, a := range agents {
		assert.NotEqual(t, agent2.ID, a.ID, "deleted agent should not be in list")
	}
}

// TestTranscriptSoftDelete verifies that deleting a call cascades soft
// delete to its transcript entries.
func TestTranscriptSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	agentRepo := NewAgentRepository(db)
	callRepo := NewCallRepository(db)
	transcriptRepo := NewTranscriptEntryRepository(db)

	agent := testAgent()
	require.NoError(t, agentRepo.Create(agent))

	call := &models.Call{
		AgentID:   agent.ID,
		Direction: models.DirectionOutbound,
		Status:    models.StatusInProgress,
		StartedAt: time.Now(),
	}
	require.NoError(t, callRepo.Create(call))

	entry := &models.TranscriptEntry{
		CallID:    call.ID,
		Role:      models.RoleAssistant,
		Content:   "how can I help",
		Timestamp: time.Now(),
	}
	require.NoError(t, transcriptRepo.Create(entry))

	require.NoError(t, callRepo.Delete(call.ID))

	entries, err := transcriptRepo.ListByCallID(call.ID)
	require.NoError(t, err)
	assert.Empty(t, entries, "transcript entries should be soft deleted via call cascade")

	var found models.TranscriptEntry
	require.NoError(t, db.Unscoped().First(&found, "id = ?", entry.ID).Error)
	assert.Equal(t, entry.ID, found.ID)
}
