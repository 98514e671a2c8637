package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// kbChunk is the pgvector-backed table: one row per embedded chunk.
type kbChunk struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Namespace string `gorm:"index"`
	Content   string
	Metadata  string
	Embedding pgvector.Vector `gorm:"type:vector(1536)"`
}

func (kbChunk) TableName() string { return "kb_chunks" }

// PGVectorStore stores embeddings alongside the relational data, in the
// same Postgres instance, via the pgvector extension.
type PGVectorStore struct {
	db *gorm.DB
}

func NewPGVectorStore(db *gorm.DB) (*PGVectorStore, error) {
	if err := db.AutoMigrate(&kbChunk{}); err != nil {
		return nil, fmt.Errorf("migrate kb_chunks: %w", err)
	}
	return &PGVectorStore{db: db}, nil
}

func (s *PGVectorStore) Upsert(ctx context.Context, namespace, id string, vector []float32, content string, metadata map[string]string) error {
	meta, _ := json.Marshal(metadata)
	row := kbChunk{
		ID:        id,
		Namespace: namespace,
		Content:   content,
		Metadata:  string(meta),
		Embedding: pgvector.NewVector(vector),
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *PGVectorStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}
	var rows []kbChunk
	err := s.db.WithContext(ctx).
		Where("namespace = ?", namespace).
		Order(gorm.Expr("embedding <-> ?", pgvector.NewVector(vector))).
		Limit(topK).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(rows))
	for _, r := range rows {
		var meta map[string]string
		_ = json.Unmarshal([]byte(r.Metadata), &meta)
		out = append(out, Result{ID: r.ID, Content: r.Content, Metadata: meta})
	}
	return out, nil
}

func (s *PGVectorStore) Delete(ctx context.Context, namespace, id string) error {
	return s.db.WithContext(ctx).Where("namespace = ? AND id = ?", namespace, id).Delete(&kbChunk{}).Error
}
