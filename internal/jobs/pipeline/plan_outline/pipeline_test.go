package plan_outline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	"github.com/yungbote/studyplan-backend/internal/data/repos/testutil"
	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/jobs/runtime"
	"github.com/yungbote/studyplan-backend/internal/jobs/worker"
	"github.com/yungbote/studyplan-backend/internal/llm"
	"github.com/yungbote/studyplan-backend/internal/llm/llmtest"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/services"
	"github.com/yungbote/studyplan-backend/internal/studyplan/generation"
	"github.com/yungbote/studyplan-backend/internal/studyplan/hierarchy"
	"github.com/yungbote/studyplan-backend/internal/studyplan/studyplantest"
)

func TestPlanOutlineJobFillsPlanRow(t *testing.T) {
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	db := testutil.DB(t)
	log := testutil.Logger(t)
	backend := &llmtest.Backend{Steps: []llmtest.Step{{Resp: studyplantest.Outline("Rumo ao ENEM", 5)}}}
	gen := generation.New(generation.Deps{
		DB:        db,
		Log:       log,
		LLM:       llm.NewClient(backend, log),
		Hierarchy: hierarchy.New(db, log),
		Profiles:  repos.NewProfileRepo(db, log),
		Plans:     repos.NewPlanRepo(db, log),
		Days:      repos.NewDayRepo(db, log),
		Tasks:     repos.NewTaskRepo(db, log),
		Docs:      repos.NewDocumentRepo(db, log),
	})
	runs := repos.NewJobRunRepo(db, log)
	reg := runtime.NewRegistry()
	reg.MustRegister(New(log, gen))
	w := worker.NewWorker(db, log, runs, reg, nil, worker.Config{Concurrency: 1, PollInterval: 10 * time.Millisecond})
	jobs := services.NewJobService(db, log, runs, nil, nil, "")

	profile := testutil.SeedProfile(t, ctx, db, "ENEM")
	plan := &studyplan.StudyPlan{UserProfileID: profile.ID, Title: "Rascunho", Status: studyplan.PlanStatusDraft}
	require.NoError(t, db.Create(plan).Error)

	planID := plan.ID
	job, err := jobs.Enqueue(dbc, profile.UserID, domain.TypePlanOutline, domain.EntityPlan, &planID, map[string]any{"goal_override": "Medicina"})
	require.NoError(t, err)
	require.True(t, w.RunOnce(ctx))

	job, err = runs.GetByID(dbc, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSucceeded, job.Status, job.Error)

	var got studyplan.StudyPlan
	require.NoError(t, db.Where("id = ?", plan.ID).First(&got).Error)
	assert.Equal(t, job.ID.String(), got.JobID)
	assert.Equal(t, studyplan.GenerationSucceeded, got.GenerationStatus)
	assert.Equal(t, studyplan.PlanStatusActive, got.Status)
	assert.Equal(t, 5, got.TotalDays)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].History[0].Parts[0].Text, "Objetivo atual: Medicina")

	other, err := jobs.Enqueue(dbc, uuid.New(), domain.TypePlanOutline, domain.EntityPlan, &planID, nil)
	require.NoError(t, err)
	require.True(t, w.RunOnce(ctx))
	other, err = runs.GetByID(dbc, other.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, other.Status)
	assert.Contains(t, other.Error, "user context")
}
