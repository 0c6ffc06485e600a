package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	jobdomain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/ingest"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/studyplan-backend/internal/pkg/errors"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/retrieval"
)

type UploadRequest struct {
	Title    string
	Filename string
	MimeType string
	Raw      []byte
	PlanID   *uuid.UUID
}

// DocumentService fronts the learner's reference materials: uploads are
// stored and handed to a document_ingest job, plain text is indexed inline.
type DocumentService interface {
	Upload(ctx context.Context, req UploadRequest) (*studyplan.Document, *jobdomain.JobRun, error)
	IndexText(ctx context.Context, id *uuid.UUID, title, text string) (*studyplan.Document, int, error)
	ListForRequestUser(ctx context.Context) ([]studyplan.Document, error)
	Search(ctx context.Context, query string, k int) ([]retrieval.Hit, error)
}

type documentService struct {
	db       *gorm.DB
	log      *logger.Logger
	ingest   *ingest.Service
	docs     repos.DocumentRepo
	profiles repos.ProfileRepo
	plans    repos.PlanRepo
	search   retrieval.Searcher
	jobs     JobService
}

func NewDocumentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	ing *ingest.Service,
	docs repos.DocumentRepo,
	profiles repos.ProfileRepo,
	plans repos.PlanRepo,
	search retrieval.Searcher,
	jobs JobService,
) DocumentService {
	return &documentService{
		db:       db,
		log:      baseLog.With("service", "DocumentService"),
		ingest:   ing,
		docs:     docs,
		profiles: profiles,
		plans:    plans,
		search:   search,
		jobs:     jobs,
	}
}

func (s *documentService) Upload(ctx context.Context, req UploadRequest) (*studyplan.Document, *jobdomain.JobRun, error) {
	userID, err := requestUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	if req.PlanID != nil && *req.PlanID != uuid.Nil {
		profile, err := s.profiles.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
		if err != nil {
			return nil, nil, err
		}
		if profile == nil {
			return nil, nil, fmt.Errorf("plan %s: %w", *req.PlanID, pkgerrors.ErrNotFound)
		}
		plan, err := s.plans.GetForProfile(dbctx.Context{Ctx: ctx}, profile.ID, *req.PlanID)
		if err != nil {
			return nil, nil, err
		}
		if plan == nil {
			return nil, nil, fmt.Errorf("plan %s: %w", *req.PlanID, pkgerrors.ErrNotFound)
		}
	}

	doc, err := s.ingest.Upload(ctx, userID, req.Title, req.Filename, req.MimeType, req.Raw)
	if err != nil {
		return nil, nil, err
	}

	payload := map[string]any{"document_id": doc.ID.String()}
	if req.PlanID != nil && *req.PlanID != uuid.Nil {
		payload["plan_id"] = req.PlanID.String()
	}
	var job *jobdomain.JobRun
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		docID := doc.ID
		j, err := s.jobs.Enqueue(dbc, userID, jobdomain.TypeDocumentIngest, jobdomain.EntityDocument, &docID, payload)
		if err != nil {
			return err
		}
		job = j
		return s.docs.UpdateFields(dbc, doc.ID, map[string]interface{}{"job_id": j.ID.String()})
	})
	if err != nil {
		return nil, nil, err
	}
	doc.JobID = job.ID.String()
	if err := s.jobs.Dispatch(dbctx.Context{Ctx: ctx}, job.ID); err != nil {
		s.log.Warn("document ingest dispatch failed", "document_id", doc.ID, "job_id", job.ID, "error", err)
		return doc, job, err
	}
	return doc, job, nil
}

func (s *documentService) IndexText(ctx context.Context, id *uuid.UUID, title, text string) (*studyplan.Document, int, error) {
	userID, err := requestUser(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.ingest.IndexText(ctx, userID, id, title, text)
}

func (s *documentService) ListForRequestUser(ctx context.Context) ([]studyplan.Document, error) {
	userID, err := requestUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.docs.ListByOwner(dbctx.Context{Ctx: ctx}, userID)
}

func (s *documentService) Search(ctx context.Context, query string, k int) ([]retrieval.Hit, error) {
	userID, err := requestUser(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("q is required: %w", pkgerrors.ErrInvalidArgument)
	}
	if s.search == nil {
		return []retrieval.Hit{}, nil
	}
	return s.search.Search(ctx, query, k, retrieval.WithOwner(userID))
}
