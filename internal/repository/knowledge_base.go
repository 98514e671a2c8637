package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voxcore/voxcore/internal/models"
	"github.com/voxcore/voxcore/internal/vectorstore"
)

type KnowledgeBaseRepository struct {
	db *gorm.DB
}

func NewKnowledgeBaseRepository(db *gorm.DB) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{db: db}
}

func (r *KnowledgeBaseRepository) GetByID(id uuid.UUID) (*models.KnowledgeBase, error) {
	var kb models.KnowledgeBase
	if err := r.db.First(&kb, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &kb, nil
}

func (r *KnowledgeBaseRepository) Create(kb *models.KnowledgeBase) error {
	return r.db.Create(kb).Error
}

type KBFileRepository struct {
	db *gorm.DB
}

func NewKBFileRepository(db *gorm.DB) *KBFileRepository {
	return &KBFileRepository{db: db}
}

func (r *KBFileRepository) GetByID(id uuid.UUID) (*models.KBFile, error) {
	var f models.KBFile
	if err := r.db.First(&f, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *KBFileRepository) Create(f *models.KBFile) error {
	return r.db.Create(f).Error
}

// Delete removes every chunk vector the file owns from store (namespace
// is the owning KnowledgeBase's configured namespace) before deleting
// the row itself, so "<file_id>_0 .. <file_id>_(chunk_count-1)" never
// outlives its KBFile. Idempotent: a second call on an already-deleted
// id finds no row, skips the vector deletes, and no-ops on the row
// delete, per the data model's idempotence invariant.
func (r *KBFileRepository) Delete(ctx context.Context, store vectorstore.Store, namespace string, id uuid.UUID) error {
	var f models.KBFile
	if err := r.db.First(&f, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}

	if store != nil {
		for _, vecID := range f.VectorIDs() {
			if err := store.Delete(ctx, namespace, vecID); err != nil {
				return err
			}
		}
	}

	return r.db.Where("id = ?", id).Delete(&models.KBFile{}).Error
}
