package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxcore/voxcore/internal/models"
)

type FunctionCallLogRepository struct {
	db *gorm.DB
}

func NewFunctionCallLogRepository(db *gorm.DB) *FunctionCallLogRepository {
	return &FunctionCallLogRepository{db: db}
}

func (r *FunctionCallLogRepository) Create(log *models.FunctionCallLog) error {
	return r.db.Create(log).Error
}

// Complete transitions a log to its terminal state exactly once per the
// data model invariant; callers must not call this twice for one log.
func (r *FunctionCallLogRepository) Complete(id uuid.UUID, result models.JSONMap) error {
	return r.db.Model(&models.FunctionCallLog{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status": models.FunctionCallCompleted,
		"result": result,
	}).Error
}

func (r *FunctionCallLogRepository) Fail(id uuid.UUID, errMsg string) error {
	return r.db.Model(&models.FunctionCallLog{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        models.FunctionCallFailed,
		"error_message": errMsg,
	}).Error
}

func (r *FunctionCallLogRepository) ListByCallID(callID uuid.UUID) ([]models.FunctionCallLog, error) {
	var logs []models.FunctionCallLog
	err := r.db.Where("call_id = ?", callID).Order("executed_at ASC").Find(&logs).Error
	return logs, err
}
