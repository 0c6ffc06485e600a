package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

// JobRunRepo persists the job_run ledger. Lookups that find nothing return
// (nil, nil).
type JobRunRepo interface {
	Create(dbc dbctx.Context, jobs []*domain.JobRun) ([]*domain.JobRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.JobRun, error)
	GetLatestByEntity(dbc dbctx.Context, ownerUserID uuid.UUID, entityType string, entityID uuid.UUID, jobType string) (*domain.JobRun, error)
	ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*domain.JobRun, error)
	ClaimQueued(dbc dbctx.Context, id uuid.UUID) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	FailStaleRunning(dbc dbctx.Context, olderThan time.Duration, reason string) (int64, error)
}

// runnable matches queued rows, failed rows with attempts left whose backoff
// elapsed, and running rows whose worker stopped heartbeating.
const runnable = `status = @queued
	OR (status = @failed AND attempts < @max AND (last_error_at IS NULL OR last_error_at < @retry))
	OR (status = @running AND attempts < @max AND heartbeat_at IS NOT NULL AND heartbeat_at < @stale)`

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{db: db, log: baseLog.With("repo", "JobRunRepo")}
}

func (r *jobRunRepo) rows(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.db).Model(&domain.JobRun{})
}

func claimFields(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"status":       domain.StatusRunning,
		"attempts":     gorm.Expr("attempts + 1"),
		"locked_at":    now,
		"heartbeat_at": now,
		"updated_at":   now,
	}
}

func touched(updates map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		out[k] = v
	}
	if _, ok := out["updated_at"]; !ok {
		out["updated_at"] = time.Now()
	}
	return out
}

func (r *jobRunRepo) Create(dbc dbctx.Context, jobs []*domain.JobRun) ([]*domain.JobRun, error) {
	if len(jobs) == 0 {
		return []*domain.JobRun{}, nil
	}
	if err := dbc.DB(r.db).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// one runs q and returns the single matched row or nil.
func one(q *gorm.DB) (*domain.JobRun, error) {
	var job domain.JobRun
	if err := q.Limit(1).Find(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.JobRun, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return one(dbc.DB(r.db).Where("id = ?", id))
}

func (r *jobRunRepo) GetLatestByEntity(dbc dbctx.Context, ownerUserID uuid.UUID, entityType string, entityID uuid.UUID, jobType string) (*domain.JobRun, error) {
	if ownerUserID == uuid.Nil || entityID == uuid.Nil || entityType == "" || jobType == "" {
		return nil, nil
	}
	return one(dbc.DB(r.db).
		Where(&domain.JobRun{OwnerUserID: ownerUserID, EntityType: entityType, JobType: jobType}).
		Where("entity_id = ?", entityID).
		Order("created_at DESC"))
}

// ClaimNextRunnable locks the oldest runnable row, skipping rows other
// workers hold, and moves it to running.
func (r *jobRunRepo) ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*domain.JobRun, error) {
	now := time.Now()
	var claimed *domain.JobRun
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		var job domain.JobRun
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(runnable, map[string]interface{}{
				"queued":  domain.StatusQueued,
				"failed":  domain.StatusFailed,
				"running": domain.StatusRunning,
				"max":     maxAttempts,
				"retry":   now.Add(-retryDelay),
				"stale":   now.Add(-staleRunning),
			}).
			Order("created_at ASC").
			First(&job).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil
		case err != nil:
			return err
		}
		if err := tx.Model(&domain.JobRun{}).Where("id = ?", job.ID).Updates(claimFields(now)).Error; err != nil {
			return err
		}
		job.Status = domain.StatusRunning
		job.Attempts++
		job.LockedAt, job.HeartbeatAt = &now, &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ClaimQueued reports false when the row already left the queued state.
func (r *jobRunRepo) ClaimQueued(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := r.rows(dbc).
		Where("id = ? AND status = ?", id, domain.StatusQueued).
		Updates(claimFields(time.Now()))
	return res.RowsAffected > 0, res.Error
}

func (r *jobRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	return r.rows(dbc).Where("id = ?", id).Updates(touched(updates)).Error
}

// UpdateFieldsUnlessStatus applies updates only while the row is in none of
// disallowedStatuses and reports whether it did.
func (r *jobRunRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	q := r.rows(dbc).Where("id = ?", id)
	if len(disallowedStatuses) > 0 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}
	res := q.Updates(touched(updates))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return r.rows(dbc).
		Where("id = ? AND status = ?", id, domain.StatusRunning).
		Updates(map[string]interface{}{"heartbeat_at": now, "updated_at": now}).Error
}

func (r *jobRunRepo) FailStaleRunning(dbc dbctx.Context, olderThan time.Duration, reason string) (int64, error) {
	now := time.Now()
	res := r.rows(dbc).
		Where("status = ?", domain.StatusRunning).
		Where("heartbeat_at IS NULL OR heartbeat_at < ?", now.Add(-olderThan)).
		Updates(map[string]interface{}{
			"status":        domain.StatusFailed,
			"stage":         "stale",
			"error":         reason,
			"last_error_at": now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		r.log.Warn("failed stale running jobs", "count", res.RowsAffected, "older_than", olderThan.String())
	}
	return res.RowsAffected, nil
}
