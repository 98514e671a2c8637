package models

import (
	"strconv"

	"github.com/google/uuid"
)

// KBFileStatus tracks a KnowledgeBase file through parse/chunk/embed.
type KBFileStatus string

const (
	KBFilePending    KBFileStatus = "pending"
	KBFileProcessing KBFileStatus = "processing"
	KBFileCompleted  KBFileStatus = "completed"
	KBFileFailed     KBFileStatus = "failed"
)

// KnowledgeBase names a vector-store provider + namespace an Agent can
// be wired to for RAG. Ingestion (parse/chunk/embed/upsert) is out of
// scope for the orchestrator; only the query-time VectorStore interface
// and this record's provider/config live here.
type KnowledgeBase struct {
	BaseModel

	Name     string  `gorm:"not null" json:"name"`
	Provider string  `gorm:"default:pgvector" json:"provider"`
	Config   JSONMap `gorm:"type:jsonb" json:"config"`
	IsActive bool    `gorm:"default:true" json:"is_active"`

	Files []KBFile `gorm:"-" json:"files,omitempty"`
}

// KBFile is one uploaded document's processing record. Its chunk vector
// ids follow the stable pattern "<file_id>_<chunk_index>".
type KBFile struct {
	BaseModel

	KnowledgeBaseID uuid.UUID    `gorm:"type:uuid;not null;index" json:"knowledge_base_id"`
	Filename        string       `gorm:"not null" json:"filename"`
	FileType        string       `json:"file_type"`
	FileSize        int64        `json:"file_size"`
	ChunkCount      int          `json:"chunk_count"`
	Status          KBFileStatus `gorm:"default:pending" json:"status"`
	ErrorMessage    string       `json:"error_message,omitempty"`
}

// VectorIDs returns the stable per-chunk vector ids for this file,
// used both at upsert time and at delete time so deletion is idempotent.
func (f *KBFile) VectorIDs() []string {
	ids := make([]string, f.ChunkCount)
	for i := 0; i < f.ChunkCount; i++ {
		ids[i] = f.ID.String() + "_" + strconv.Itoa(i)
	}
	return ids
}
