package jobrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/jobs/worker"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type Activities struct {
	Log    *logger.Logger
	Jobs   repos.JobRunRepo
	Worker *worker.Worker
}

// Run claims the queued job and executes it in-process. A job that is
// already running or terminal is reported as is.
func (a *Activities) Run(ctx context.Context, jobID string) (RunResult, error) {
	res := RunResult{JobID: strings.TrimSpace(jobID)}
	if a == nil || a.Jobs == nil || a.Worker == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}
	id, err := uuid.Parse(res.JobID)
	if err != nil || id == uuid.Nil {
		return res, fmt.Errorf("jobrun: invalid job_id %q", jobID)
	}
	dbc := dbctx.Context{Ctx: ctx}

	claimed, err := a.Jobs.ClaimQueued(dbc, id)
	if err != nil {
		return res, err
	}
	if claimed {
		job, err := a.Jobs.GetByID(dbc, id)
		if err != nil {
			return res, err
		}
		if job == nil {
			return res, fmt.Errorf("jobrun: job %s not found", id)
		}
		stop := a.heartbeat(ctx, id)
		a.Worker.Execute(ctx, job)
		stop()
	}

	job, err := a.Jobs.GetByID(dbc, id)
	if err != nil {
		return res, err
	}
	if job == nil {
		return res, fmt.Errorf("jobrun: job %s not found", id)
	}
	if !claimed && !job.Terminal() {
		a.Log.Warn("Job not claimable by workflow", "job_id", id, "status", job.Status)
	}
	res.Status = job.Status
	res.Stage = job.Stage
	res.Error = job.Error
	if !claimed && job.Status == domain.StatusQueued {
		return res, fmt.Errorf("jobrun: job %s still queued", id)
	}
	return res, nil
}

func (a *Activities) heartbeat(ctx context.Context, jobID uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(20 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				if activity.IsActivity(ctx) {
					activity.RecordHeartbeat(ctx)
				}
				_ = a.Jobs.Heartbeat(dbctx.Context{Ctx: ctx}, jobID)
			}
		}
	}()
	return func() { close(done) }
}
