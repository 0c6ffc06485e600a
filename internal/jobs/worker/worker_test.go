package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	"github.com/yungbote/studyplan-backend/internal/data/repos/testutil"
	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/jobs/runtime"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/services"
)

type funcHandler struct {
	typ string
	run func(*runtime.Context) error
}

func (h funcHandler) Type() string { return h.typ }
func (h funcHandler) Run(jc *runtime.Context) error { return h.run(jc) }

type setup struct {
	repo   repos.JobRunRepo
	worker *Worker
	jobs   services.JobService
}

func newSetup(t *testing.T, handlers ...runtime.Handler) setup {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)
	reg := runtime.NewRegistry()
	reg.MustRegister(handlers...)
	w := NewWorker(db, log, repo, reg, nil, Config{Concurrency: 1, PollInterval: 10 * time.Millisecond})
	return setup{
		repo:   repo,
		worker: w,
		jobs:   services.NewJobService(db, log, repo, nil, nil, ""),
	}
}

func (s setup) enqueue(t *testing.T, jobType string, payload map[string]any) *domain.JobRun {
	t.Helper()
	job, err := s.jobs.Enqueue(dbctx.Context{Ctx: context.Background()}, uuid.New(), jobType, domain.EntityPlan, nil, payload)
	require.NoError(t, err)
	return job
}

func (s setup) reload(t *testing.T, id uuid.UUID) *domain.JobRun {
	t.Helper()
	job, err := s.repo.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	require.NoError(t, err)
	require.NotNil(t, job)
	return job
}

func TestRunOnceSucceeds(t *testing.T) {
	var seen string
	s := newSetup(t, funcHandler{typ: "echo", run: func(jc *runtime.Context) error {
		seen = jc.PayloadString("word")
		jc.Progress("working", 50, "half")
		jc.Succeed("done", map[string]any{"word": seen})
		return nil
	}})
	job := s.enqueue(t, "echo", map[string]any{"word": "ola"})

	assert.True(t, s.worker.RunOnce(context.Background()))
	assert.False(t, s.worker.RunOnce(context.Background()))

	got := s.reload(t, job.ID)
	assert.Equal(t, "ola", seen)
	assert.Equal(t, domain.StatusSucceeded, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.JSONEq(t, `{"word":"ola"}`, string(got.Result))
}

func TestRunOnceFailuresAreTerminal(t *testing.T) {
	s := newSetup(t,
		funcHandler{typ: "boom", run: func(*runtime.Context) error { return errors.New("provider down") }},
		funcHandler{typ: "panic", run: func(*runtime.Context) error { panic("bad state") }},
	)
	failing := s.enqueue(t, "boom", nil)
	panicking := s.enqueue(t, "panic", nil)
	orphan := s.enqueue(t, "unknown", nil)

	for s.worker.RunOnce(context.Background()) {
	}

	got := s.reload(t, failing.ID)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "run", got.Stage)
	assert.Equal(t, "provider down", got.Error)

	got = s.reload(t, panicking.ID)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "panic", got.Stage)

	got = s.reload(t, orphan.ID)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "dispatch", got.Stage)

	// failed jobs are never claimed again
	assert.False(t, s.worker.RunOnce(context.Background()))
}

func TestHandlerFailureIsNotOverwritten(t *testing.T) {
	s := newSetup(t, funcHandler{typ: "self_fail", run: func(jc *runtime.Context) error {
		err := errors.New("invalid outline")
		jc.Fail("parse", err)
		return err
	}})
	job := s.enqueue(t, "self_fail", nil)
	require.True(t, s.worker.RunOnce(context.Background()))

	got := s.reload(t, job.ID)
	assert.Equal(t, "parse", got.Stage)
	assert.Equal(t, "invalid outline", got.Error)
}

func TestStartDrainsQueue(t *testing.T) {
	done := make(chan struct{})
	s := newSetup(t, funcHandler{typ: "echo", run: func(jc *runtime.Context) error {
		jc.Succeed("done", nil)
		close(done)
		return nil
	}})
	s.enqueue(t, "echo", nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.worker.Start(ctx)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not picked up")
	}
	cancel()
	s.worker.Wait()
}
