package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxcore/voxcore/internal/models"
)

type TranscriptEntryRepository struct {
	db *gorm.DB
}

func NewTranscriptEntryRepository(db *gorm.DB) *TranscriptEntryRepository {
	return &TranscriptEntryRepository{db: db}
}

func (r *TranscriptEntryRepository) Create(entry *models.TranscriptEntry) error {
	return r.db.Create(entry).Error
}

func (r *TranscriptEntryRepository) ListByCallID(callID uuid.UUID) ([]models.TranscriptEntry, error) {
	var entries []models.TranscriptEntry
	err := r.db.Where("call_id = ?", callID).Order("timestamp ASC").Find(&entries).Error
	return entries, err
}
