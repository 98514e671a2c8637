package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxcore/voxcore/internal/models"
)

type CallRepository struct {
	db *gorm.DB
}

func NewCallRepository(db *gorm.DB) *CallRepository {
	return &CallRepository{db: db}
}

func (r *CallRepository) Create(call *models.Call) error {
	return r.db.Create(call).Error
}

func (r *CallRepository) GetByID(id uuid.UUID) (*models.Call, error) {
	var call models.Call
	if err := r.db.First(&call, "id = ?", id).Error; err != nil {
		return nil, err
	}
	r.loadRelations(&call, true)
	return &call, nil
}

func (r *CallRepository) GetByExternalSID(sid string) (*models.Call, error) {
	var call models.Call
	if err := r.db.First(&call, "external_call_sid = ?", sid).Error; err != nil {
		return nil, err
	}
	r.loadRelations(&call, false)
	return &call, nil
}

func (r *CallRepository) loadRelations(call *models.Call, includeTranscript bool) {
	if call.AgentID != uuid.Nil {
		r.db.First(&call.Agent, "id = ?", call.AgentID)
	}
	if includeTranscript {
		r.db.Where("call_id = ?", call.ID).Order("timestamp ASC").Find(&call.TranscriptEntries)
	}
}

func (r *CallRepository) Update(call *models.Call) error {
	return r.db.Save(call).Error
}

// UpdateStatus sets a call's status by internal id, plus end_reason when
// given, and stamps ended_at for completed/failed. Used at session start
// and by the telephony status webhook once it has resolved the
// provider's external call sid to a row.
func (r *CallRepository) UpdateStatus(id uuid.UUID, status models.CallStatus, endReason string) error {
	updates := map[string]interface{}{"status": status}
	if endReason != "" {
		updates["end_reason"] = endReason
	}
	if status == models.StatusCompleted || status == models.StatusFailed {
		now := time.Now()
		updates["ended_at"] = now
	}
	return r.db.Model(&models.Call{}).Where("id = ?", id).Updates(updates).Error
}

// End marks a call completed and computes duration_seconds = ended_at -
// started_at in whole seconds, per the data model's duration invariant.
func (r *CallRepository) End(id uuid.UUID, reason string) error {
	var call models.Call
	if err := r.db.First(&call, "id = ?", id).Error; err != nil {
		return err
	}
	now := time.Now()
	duration := int(now.Sub(call.StartedAt).Seconds())
	return r.db.Model(&call).Updates(map[string]interface{}{
		"status":           models.StatusCompleted,
		"end_reason":       reason,
		"ended_at":         now,
		"duration_seconds": duration,
	}).Error
}

func (r *CallRepository) Delete(id uuid.UUID) error {
	var call models.Call
	if err := r.db.First(&call, "id = ?", id).Error; err != nil {
		return err
	}
	return r.db.Delete(&call).Error
}
