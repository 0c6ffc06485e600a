package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/studyplan-backend/internal/pkg/errors"
	"github.com/yungbote/studyplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type JobService interface {
	// Enqueue stores a queued job_run row. Inside a transaction the caller must
	// call Dispatch after commit; outside one the job is dispatched right away.
	Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*domain.JobRun, error)
	Dispatch(dbc dbctx.Context, jobID uuid.UUID) error
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*domain.JobRun, error)
	GetByIDForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*domain.JobRun, error)
	GetLatestForEntityForRequestUser(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*domain.JobRun, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.JobRunRepo
	notify JobNotifier
	starts *workflowStarter
}

// NewJobService builds the job service. With a nil Temporal client, queued
// rows are left for the database worker pool to claim.
func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.JobRunRepo,
	notify JobNotifier,
	tc temporalsdkclient.Client,
	taskQueue string,
) JobService {
	if notify == nil {
		notify = NopJobNotifier()
	}
	return &jobService{
		db:     db,
		log:    baseLog.With("service", "JobService"),
		repo:   repo,
		notify: notify,
		starts: newWorkflowStarter(tc, taskQueue),
	}
}

// withRequestIDs copies the caller's trace and request ids into payload so the
// worker can log under them.
func withRequestIDs(dbc dbctx.Context, payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		out[k] = v
	}
	if dbc.Ctx == nil {
		return out
	}
	td := ctxutil.GetTraceData(dbc.Ctx)
	if td == nil {
		return out
	}
	for key, val := range map[string]string{"trace_id": td.TraceID, "request_id": td.RequestID} {
		if _, set := out[key]; !set && val != "" {
			out[key] = val
		}
	}
	return out
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*domain.JobRun, error) {
	switch {
	case ownerUserID == uuid.Nil:
		return nil, fmt.Errorf("enqueue: missing owner: %w", pkgerrors.ErrInvalidArgument)
	case jobType == "":
		return nil, fmt.Errorf("enqueue: missing job type: %w", pkgerrors.ErrInvalidArgument)
	}
	raw, err := json.Marshal(withRequestIDs(dbc, payload))
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: encode payload: %w", jobType, err)
	}

	now := time.Now()
	job := &domain.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      domain.StatusQueued,
		Stage:       "queued",
		Message:     "Queued",
		Payload:     datatypes.JSON(raw),
		Result:      datatypes.JSON(`{}`),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(dbc, []*domain.JobRun{job}); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	s.notify.JobCreated(ownerUserID, job)

	if inTransaction(dbc.Tx) {
		s.log.Debug("Job stored inside transaction; dispatch deferred to commit", "job_id", job.ID, "job_type", jobType)
		return job, nil
	}
	return job, s.Dispatch(dbctx.Context{Ctx: dbc.Ctx}, job.ID)
}

// inTransaction reports whether db is bound to an open transaction. gorm
// clones *gorm.DB freely, so the check looks at the connection pool type.
func inTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil || db.Statement.ConnPool == nil {
		return false
	}
	_, ok := db.Statement.ConnPool.(interface {
		Commit() error
		Rollback() error
	})
	return ok
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*domain.JobRun, error) {
	job, err := s.repo.GetByID(dbc, jobID)
	switch {
	case err != nil:
		return nil, err
	case job == nil:
		return nil, fmt.Errorf("job %s: %w", jobID, pkgerrors.ErrNotFound)
	}
	return job, nil
}

// GetByIDForRequestUser hides jobs owned by someone else behind ErrNotFound.
func (s *jobService) GetByIDForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*domain.JobRun, error) {
	userID := ctxutil.UserID(dbc.Ctx)
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	job, err := s.GetByID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerUserID != userID {
		return nil, fmt.Errorf("job %s: %w", jobID, pkgerrors.ErrNotFound)
	}
	return job, nil
}

func (s *jobService) GetLatestForEntityForRequestUser(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*domain.JobRun, error) {
	userID := ctxutil.UserID(dbc.Ctx)
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	if entityType == "" || entityID == uuid.Nil || jobType == "" {
		return nil, fmt.Errorf("latest job: missing entity or job type: %w", pkgerrors.ErrInvalidArgument)
	}
	return s.repo.GetLatestByEntity(dbc, userID, entityType, entityID, jobType)
}
