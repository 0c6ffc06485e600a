package day_tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

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

type env struct {
	db      *gorm.DB
	backend *llmtest.Backend
	jobs    services.JobService
	runs    repos.JobRunRepo
	worker  *worker.Worker
	plan    *studyplan.StudyPlan
	owner   *studyplan.UserProfile
}

func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	backend := &llmtest.Backend{}
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

	profile := testutil.SeedProfile(t, ctx, db, "ENEM")
	outline := &studyplan.Outline{Sections: []studyplan.Section{
		{ID: "s1", Title: "Funcoes", Milestone: "Dominar funcoes"},
		{ID: "s2", Title: "Geometria", Milestone: "Areas"},
	}}
	return env{
		db:      db,
		backend: backend,
		jobs:    services.NewJobService(db, log, runs, nil, nil, ""),
		runs:    runs,
		worker:  worker.NewWorker(db, log, runs, reg, nil, worker.Config{Concurrency: 1, PollInterval: 10 * time.Millisecond}),
		plan:    testutil.SeedPlan(t, ctx, db, profile, outline),
		owner:   profile,
	}
}

func (e env) day(t *testing.T, idx int) studyplan.StudyDay {
	t.Helper()
	var d studyplan.StudyDay
	require.NoError(t, e.db.Where("plan_id = ? AND day_index = ?", e.plan.ID, idx).First(&d).Error)
	return d
}

func (e env) run(t *testing.T, payload map[string]any) *domain.JobRun {
	t.Helper()
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	job, err := e.jobs.Enqueue(dbc, e.owner.UserID, domain.TypeDayTasks, domain.EntityDay, nil, payload)
	require.NoError(t, err)
	require.True(t, e.worker.RunOnce(ctx))
	got, err := e.runs.GetByID(dbc, job.ID)
	require.NoError(t, err)
	return got
}

func TestDayTasksJobSucceeds(t *testing.T) {
	e := newEnv(t)
	day := e.day(t, 1)
	e.backend.Steps = []llmtest.Step{{Resp: studyplantest.Day("s1", "Funcoes I", "Aula", "Quiz")}}

	job := e.run(t, map[string]any{"plan_id": e.plan.ID.String(), "day_id": day.ID.String()})
	assert.Equal(t, domain.StatusSucceeded, job.Status)
	assert.Contains(t, string(job.Result), `"tasks":2`)

	got := e.day(t, 1)
	assert.Equal(t, job.ID.String(), got.State().JobID)
	assert.Equal(t, studyplan.GenerationSucceeded, got.State().GenerationStatus)
}

func TestDayTasksJobFailureIsRecorded(t *testing.T) {
	e := newEnv(t)
	day := e.day(t, 2)
	e.backend.Steps = []llmtest.Step{{Err: errors.New("quota")}}

	job := e.run(t, map[string]any{"plan_id": e.plan.ID.String(), "day_id": day.ID.String()})
	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Equal(t, "day", job.Stage)
	assert.Contains(t, job.Error, "quota")

	assert.Equal(t, studyplan.GenerationFailed, e.day(t, 2).State().GenerationStatus)
	assert.Empty(t, e.day(t, 1).State().GenerationStatus)
}

func TestDayTasksJobValidatesPayload(t *testing.T) {
	e := newEnv(t)
	job := e.run(t, map[string]any{"plan_id": e.plan.ID.String()})
	assert.Equal(t, domain.StatusFailed, job.Status)
	assert.Equal(t, "validate", job.Stage)
	assert.Empty(t, e.backend.Calls())
}
