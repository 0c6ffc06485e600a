package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/studyplan-backend/internal/data/repos/testutil"
	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
)

func newJob(owner uuid.UUID, jobType, status string, createdAt time.Time) *domain.JobRun {
	entityID := uuid.New()
	return &domain.JobRun{
		OwnerUserID: owner,
		JobType:     jobType,
		EntityType:  "study_plan",
		EntityID:    &entityID,
		Status:      status,
		Stage:       status,
		Payload:     datatypes.JSON([]byte("{}")),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestJobRunRepoClaimOrder(t *testing.T) {
	db := testutil.DB(t)
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	now := time.Now().UTC()
	owner := uuid.New()

	queued := newJob(owner, "plan_outline", domain.StatusQueued, now.Add(-3*time.Hour))
	failed := newJob(owner, "plan_outline", domain.StatusFailed, now.Add(-2*time.Hour))
	failed.LastErrorAt = ptrTime(now.Add(-2 * time.Hour))
	stale := newJob(owner, "plan_outline", domain.StatusRunning, now.Add(-1*time.Hour))
	stale.HeartbeatAt = ptrTime(now.Add(-10 * time.Hour))
	exhausted := newJob(owner, "plan_outline", domain.StatusFailed, now.Add(-4*time.Hour))
	exhausted.Attempts = 3

	created, err := repo.Create(dbc, []*domain.JobRun{queued, failed, stale, exhausted})
	require.NoError(t, err)
	require.Len(t, created, 4)

	for _, want := range []uuid.UUID{queued.ID, failed.ID, stale.ID} {
		claimed, err := repo.ClaimNextRunnable(dbc, 3, time.Hour, time.Hour)
		require.NoError(t, err)
		require.NotNil(t, claimed)
		assert.Equal(t, want, claimed.ID)
		assert.Equal(t, domain.StatusRunning, claimed.Status)
	}

	claimed, err := repo.ClaimNextRunnable(dbc, 3, time.Hour, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	got, err := repo.GetByID(dbc, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
	assert.NotNil(t, got.HeartbeatAt)
}

func TestJobRunRepoSingleAttempt(t *testing.T) {
	db := testutil.DB(t)
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	job := newJob(uuid.New(), "day_generate", domain.StatusQueued, time.Now().Add(-time.Minute))
	_, err := repo.Create(dbc, []*domain.JobRun{job})
	require.NoError(t, err)

	claimed, err := repo.ClaimNextRunnable(dbc, 1, 0, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	require.NoError(t, repo.UpdateFields(dbc, job.ID, map[string]interface{}{
		"status":        domain.StatusFailed,
		"last_error_at": time.Now().Add(-time.Hour),
	}))

	again, err := repo.ClaimNextRunnable(dbc, 1, 0, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, again, "a failed job must not be claimed again once its single attempt is spent")
}

func TestJobRunRepoUpdateUnlessStatusAndLatest(t *testing.T) {
	db := testutil.DB(t)
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	owner := uuid.New()
	entityID := uuid.New()
	older := newJob(owner, "section_tasks", domain.StatusQueued, time.Now().Add(-5*time.Hour))
	older.EntityID = &entityID
	newer := newJob(owner, "section_tasks", domain.StatusCanceled, time.Now().Add(-4*time.Hour))
	newer.EntityID = &entityID
	_, err := repo.Create(dbc, []*domain.JobRun{older, newer})
	require.NoError(t, err)

	latest, err := repo.GetLatestByEntity(dbc, owner, "study_plan", entityID, "section_tasks")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)

	ok, err := repo.UpdateFieldsUnlessStatus(dbc, newer.ID, []string{domain.StatusCanceled}, map[string]interface{}{"status": domain.StatusRunning})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UpdateFieldsUnlessStatus(dbc, older.ID, []string{domain.StatusCanceled}, map[string]interface{}{"progress": 50})
	require.NoError(t, err)
	assert.True(t, ok)

	none, err := repo.GetLatestByEntity(dbc, owner, "study_plan", entityID, "plan_outline")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestJobRunRepoFailStaleRunning(t *testing.T) {
	db := testutil.DB(t)
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	stale := newJob(uuid.New(), "plan_outline", domain.StatusRunning, time.Now().Add(-2*time.Hour))
	stale.HeartbeatAt = ptrTime(time.Now().Add(-time.Hour))
	fresh := newJob(uuid.New(), "plan_outline", domain.StatusRunning, time.Now())
	fresh.HeartbeatAt = ptrTime(time.Now())
	_, err := repo.Create(dbc, []*domain.JobRun{stale, fresh})
	require.NoError(t, err)

	n, err := repo.FailStaleRunning(dbc, 30*time.Minute, "stale")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.GetByID(dbc, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)

	got, err = repo.GetByID(dbc, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, got.Status)
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestJobRunRepoClaimQueuedOnlyOnce(t *testing.T) {
	db := testutil.DB(t)
	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	job := newJob(uuid.New(), "day_tasks", domain.StatusQueued, time.Now().UTC())
	_, err := repo.Create(dbc, []*domain.JobRun{job})
	require.NoError(t, err)

	ok, err := repo.ClaimQueued(dbc, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ClaimQueued(dbc, job.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(dbc, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, got.Status)
	assert.Equal(t, 1, got.Attempts)
}
