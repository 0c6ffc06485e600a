package studyplan

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

const (
	DocumentSourceUpload = "upload"
	DocumentSourceText   = "text"
)

// EmbeddingDimensions is the width of every stored chunk vector.
const EmbeddingDimensions = 768

// Document is a learner-owned reference material used for retrieval.
type Document struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title        string     `gorm:"column:title;size:200;not null" json:"title"`
	Source       string     `gorm:"column:source;size:20;not null;default:'upload'" json:"source"`
	StorageKey   string     `gorm:"column:storage_key;size:500" json:"storage_key,omitempty"`
	MimeType     string     `gorm:"column:mime_type;size:120" json:"mime_type,omitempty"`
	IngestStatus string     `gorm:"column:ingest_status;size:20;not null;default:'pending'" json:"ingest_status"`
	JobID        string     `gorm:"column:job_id;size:100" json:"job_id,omitempty"`
	LastError    string     `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	ChunkCount   int        `gorm:"column:chunk_count;not null;default:0" json:"chunk_count"`
	IngestedAt   *time.Time `gorm:"column:ingested_at" json:"ingested_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

func (Document) TableName() string { return "study_document" }

func (d *Document) BeforeCreate(tx *gorm.DB) error { return ensureID(&d.ID) }

type Chunk struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID       `gorm:"type:uuid;not null;index:idx_study_chunk_doc_order,priority:1" json:"document_id"`
	Document   *Document       `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"-"`
	Position   int             `gorm:"column:position;not null;index:idx_study_chunk_doc_order,priority:2" json:"position"`
	Text       string          `gorm:"column:text;type:text;not null" json:"text"`
	Embedding  pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"-"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
}

func (Chunk) TableName() string { return "study_chunk" }

func (c *Chunk) BeforeCreate(tx *gorm.DB) error { return ensureID(&c.ID) }
