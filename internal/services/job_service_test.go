package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	"github.com/yungbote/studyplan-backend/internal/data/repos/testutil"
	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/studyplan-backend/internal/pkg/errors"
	"github.com/yungbote/studyplan-backend/internal/platform/ctxutil"
)

type recordingNotifier struct {
	nopNotifier
	created []uuid.UUID
}

func (n *recordingNotifier) JobCreated(_ uuid.UUID, job *domain.JobRun) {
	n.created = append(n.created, job.ID)
}

func TestEnqueueStoresQueuedJobWithTrace(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	notify := &recordingNotifier{}
	svc := NewJobService(db, log, repos.NewJobRunRepo(db, log), notify, nil, "")

	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{TraceID: "t-1", RequestID: "r-1"})
	owner := uuid.New()
	planID := uuid.New()
	job, err := svc.Enqueue(dbctx.Context{Ctx: ctx}, owner, domain.TypePlanOutline, domain.EntityPlan, &planID, map[string]any{"plan_id": planID.String()})
	require.NoError(t, err)

	got, err := svc.GetByID(dbctx.Context{Ctx: ctx}, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, got.Status)
	assert.Equal(t, "pending", got.PublicStatus())

	var payload map[string]any
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, "t-1", payload["trace_id"])
	assert.Equal(t, "r-1", payload["request_id"])
	assert.Equal(t, []uuid.UUID{job.ID}, notify.created)
}

func TestEnqueueInsideTransactionIsRolledBackWithIt(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)
	svc := NewJobService(db, log, repo, nil, nil, "")

	var jobID uuid.UUID
	sentinel := errors.New("abort")
	err := db.Transaction(func(tx *gorm.DB) error {
		assert.True(t, inTransaction(tx))
		job, err := svc.Enqueue(dbctx.Context{Ctx: context.Background(), Tx: tx}, uuid.New(), domain.TypeDayTasks, domain.EntityDay, nil, nil)
		require.NoError(t, err)
		jobID = job.ID
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.False(t, inTransaction(db))

	got, err := repo.GetByID(dbctx.Context{Ctx: context.Background()}, jobID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetByIDForRequestUserHidesOtherOwners(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewJobService(db, log, repos.NewJobRunRepo(db, log), nil, nil, "")

	owner := uuid.New()
	job, err := svc.Enqueue(dbctx.Context{Ctx: context.Background()}, owner, domain.TypePlanOutline, domain.EntityPlan, nil, nil)
	require.NoError(t, err)

	_, err = svc.GetByIDForRequestUser(dbctx.Context{Ctx: context.Background()}, job.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrUnauthorized)

	other := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: uuid.New()})
	_, err = svc.GetByIDForRequestUser(dbctx.Context{Ctx: other}, job.ID)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	mine := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: owner})
	got, err := svc.GetByIDForRequestUser(dbctx.Context{Ctx: mine}, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = svc.GetByIDForRequestUser(dbctx.Context{Ctx: mine}, uuid.New())
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}
