// Package ingest turns learner materials into embedded chunks for retrieval.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/studyplan-backend/internal/pkg/errors"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/platform/objectstore"
	"github.com/yungbote/studyplan-backend/internal/retrieval"
)

const (
	embedBatchSize   = 32
	embedConcurrency = 4
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Service struct {
	db        *gorm.DB
	log       *logger.Logger
	docs      repos.DocumentRepo
	store     objectstore.Store
	embed     retrieval.Embedder
	chunkSize int
}

func NewService(db *gorm.DB, baseLog *logger.Logger, docs repos.DocumentRepo, store objectstore.Store, embed retrieval.Embedder) *Service {
	return &Service{
		db:        db,
		log:       baseLog.With("component", "IngestService"),
		docs:      docs,
		store:     store,
		embed:     embed,
		chunkSize: DefaultChunkSize,
	}
}

// Upload stores the raw file and creates a pending document row.
func (s *Service) Upload(ctx context.Context, ownerID uuid.UUID, title, filename, mimeType string, raw []byte) (*studyplan.Document, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, ErrEmptyDocument)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(filename)
	}
	if title == "" {
		title = "Material"
	}
	doc := &studyplan.Document{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Title:        truncate(title, 200),
		Source:       studyplan.DocumentSourceUpload,
		MimeType:     mimeType,
		IngestStatus: StatusPending,
	}
	doc.StorageKey = fmt.Sprintf("materials/%s/%s", ownerID, doc.ID)
	if err := s.store.Put(ctx, doc.StorageKey, bytes.NewReader(raw), mimeType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := s.docs.Create(dbctx.Context{Ctx: ctx}, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// IngestDocument extracts, chunks and embeds a stored document, then links
// it to planID when one is given. Failures are recorded on the document.
func (s *Service) IngestDocument(ctx context.Context, docID uuid.UUID, planID *uuid.UUID, jobID string) (int, error) {
	dbc := dbctx.Context{Ctx: ctx}
	doc, err := s.docs.GetByID(dbc, docID)
	if err != nil {
		return 0, err
	}
	if doc == nil {
		return 0, fmt.Errorf("document %s: %w", docID, pkgerrors.ErrNotFound)
	}
	if err := s.docs.UpdateFields(dbc, doc.ID, map[string]interface{}{
		"ingest_status": StatusRunning,
		"job_id":        jobID,
		"last_error":    "",
		"updated_at":    time.Now(),
	}); err != nil {
		return 0, err
	}

	n, err := s.ingest(ctx, doc, planID)
	if err != nil {
		s.log.Warn("document ingest failed", "document_id", doc.ID, "error", err)
		_ = s.docs.UpdateFields(dbc, doc.ID, map[string]interface{}{
			"ingest_status": StatusFailed,
			"last_error":    err.Error(),
			"updated_at":    time.Now(),
		})
		return 0, err
	}
	return n, nil
}

func (s *Service) ingest(ctx context.Context, doc *studyplan.Document, planID *uuid.UUID) (int, error) {
	if doc.StorageKey == "" {
		return 0, fmt.Errorf("document %s has no stored file", doc.ID)
	}
	raw, err := objectstore.ReadAll(ctx, s.store, doc.StorageKey)
	if err != nil {
		return 0, err
	}
	text, err := Extract(raw, doc.MimeType)
	if err != nil {
		return 0, err
	}
	n, err := s.indexText(ctx, doc, text)
	if err != nil {
		return 0, err
	}
	if planID != nil && *planID != uuid.Nil {
		if err := s.linkToPlan(ctx, *planID, doc); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// IndexText indexes raw text directly. An existing document of the owner is
// reindexed when id is set; otherwise a new text document is created.
func (s *Service) IndexText(ctx context.Context, ownerID uuid.UUID, id *uuid.UUID, title, text string) (*studyplan.Document, int, error) {
	if ownerID == uuid.Nil {
		return nil, 0, pkgerrors.ErrUnauthorized
	}
	if strings.TrimSpace(text) == "" {
		return nil, 0, fmt.Errorf("text is required: %w", pkgerrors.ErrInvalidArgument)
	}
	dbc := dbctx.Context{Ctx: ctx}
	var doc *studyplan.Document
	if id != nil && *id != uuid.Nil {
		existing, err := s.docs.GetByID(dbc, *id)
		if err != nil {
			return nil, 0, err
		}
		if existing != nil && existing.OwnerID != ownerID {
			return nil, 0, fmt.Errorf("document %s: %w", *id, pkgerrors.ErrNotFound)
		}
		doc = existing
	}
	if doc == nil {
		doc = &studyplan.Document{
			OwnerID:      ownerID,
			Title:        truncate(firstNonEmpty(title, "Texto"), 200),
			Source:       studyplan.DocumentSourceText,
			IngestStatus: StatusRunning,
		}
		if id != nil {
			doc.ID = *id
		}
		if err := s.docs.Create(dbc, doc); err != nil {
			return nil, 0, err
		}
	}
	n, err := s.indexText(ctx, doc, text)
	if err != nil {
		_ = s.docs.UpdateFields(dbc, doc.ID, map[string]interface{}{"ingest_status": StatusFailed, "last_error": err.Error()})
		return nil, 0, err
	}
	doc.IngestStatus = StatusSucceeded
	doc.ChunkCount = n
	return doc, n, nil
}

func (s *Service) indexText(ctx context.Context, doc *studyplan.Document, text string) (int, error) {
	parts := Chunk(text, s.chunkSize)
	if len(parts) == 0 {
		return 0, ErrEmptyDocument
	}
	vecs, err := s.embedBatches(ctx, parts)
	if err != nil {
		return 0, err
	}
	chunks := make([]*studyplan.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = &studyplan.Chunk{Position: i, Text: p, Embedding: pgvector.NewVector(vecs[i])}
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.docs.ReplaceChunks(dbc, doc.ID, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	now := time.Now()
	if err := s.docs.UpdateFields(dbc, doc.ID, map[string]interface{}{
		"ingest_status": StatusSucceeded,
		"chunk_count":   len(chunks),
		"ingested_at":   now,
		"last_error":    "",
		"updated_at":    now,
	}); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// embedBatches embeds parts in fixed-size batches, a few batches at a time,
// and returns the vectors in input order.
func (s *Service) embedBatches(ctx context.Context, parts []string) ([][]float32, error) {
	vecs := make([][]float32, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for start := 0; start < len(parts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(parts))
		g.Go(func() error {
			out, err := s.embed.Embed(gctx, parts[start:end])
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
			}
			if len(out) != end-start {
				return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(out), end-start)
			}
			copy(vecs[start:end], out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vecs, nil
}

func (s *Service) linkToPlan(ctx context.Context, planID uuid.UUID, doc *studyplan.Document) error {
	plan := &studyplan.StudyPlan{ID: planID}
	if err := s.db.WithContext(ctx).Model(plan).Association("RagDocuments").Append(doc); err != nil {
		return fmt.Errorf("link document to plan: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
