package studyplan

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(dbc dbctx.Context, doc *domain.Document) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]domain.Document, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// ReplaceChunks drops the document's chunks and inserts the given ones.
	ReplaceChunks(dbc dbctx.Context, docID uuid.UUID, chunks []*domain.Chunk) error
	ListChunks(dbc dbctx.Context, docID uuid.UUID) ([]*domain.Chunk, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(dbc dbctx.Context, doc *domain.Document) error {
	return dbc.DB(r.db).Create(doc).Error
}

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var doc domain.Document
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&doc).Error; err != nil {
		return nil, err
	}
	if doc.ID == uuid.Nil {
		return nil, nil
	}
	return &doc, nil
}

func (r *documentRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]domain.Document, error) {
	var out []domain.Document
	if ownerID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("owner_id = ?", ownerID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&domain.Document{}).Where("id = ?", id).Updates(updates).Error
}

func (r *documentRepo) ReplaceChunks(dbc dbctx.Context, docID uuid.UUID, chunks []*domain.Chunk) error {
	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", docID).Delete(&domain.Chunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		for _, c := range chunks {
			c.DocumentID = docID
		}
		// chunk rows carry large text and a vector
		const batchSize = 100
		return tx.CreateInBatches(chunks, batchSize).Error
	})
}

func (r *documentRepo) ListChunks(dbc dbctx.Context, docID uuid.UUID) ([]*domain.Chunk, error) {
	var out []*domain.Chunk
	if err := dbc.DB(r.db).Where("document_id = ?", docID).Order("position ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
