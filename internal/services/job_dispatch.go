package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/studyplan-backend/internal/pkg/errors"
)

// TemporalWorkflowName is the workflow that drives one job_run row.
const TemporalWorkflowName = "job_run"

// workflowStarter starts one single-attempt workflow per job id. A nil
// starter dispatches nothing.
type workflowStarter struct {
	client    temporalsdkclient.Client
	taskQueue string
}

func newWorkflowStarter(tc temporalsdkclient.Client, taskQueue string) *workflowStarter {
	if tc == nil {
		return nil
	}
	taskQueue = strings.TrimSpace(taskQueue)
	if taskQueue == "" {
		taskQueue = "studyplan"
	}
	return &workflowStarter{client: tc, taskQueue: taskQueue}
}

// start treats an already running workflow for the same job as success.
func (w *workflowStarter) start(ctx context.Context, jobID uuid.UUID) error {
	_, err := w.client.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    jobID.String(),
		TaskQueue:             w.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		RetryPolicy:           &temporal.RetryPolicy{MaximumAttempts: 1},
	}, TemporalWorkflowName)
	if errors.As(err, new(*serviceerror.WorkflowExecutionAlreadyStarted)) {
		return nil
	}
	return err
}

// Dispatch hands a queued job to Temporal. When the start fails the row is
// marked failed at stage "dispatch" so it never sits queued forever.
func (s *jobService) Dispatch(dbc dbctx.Context, jobID uuid.UUID) error {
	if s.starts == nil {
		return nil
	}
	if jobID == uuid.Nil {
		return fmt.Errorf("dispatch: missing job id: %w", pkgerrors.ErrInvalidArgument)
	}
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.starts.start(ctx, jobID)
	if err == nil {
		return nil
	}

	plain := dbctx.Context{Ctx: ctx}
	if uerr := s.repo.UpdateFields(plain, jobID, map[string]interface{}{
		"status":        domain.StatusFailed,
		"stage":         "dispatch",
		"message":       "",
		"error":         err.Error(),
		"last_error_at": time.Now(),
		"locked_at":     nil,
	}); uerr != nil {
		s.log.Error("Could not mark undispatched job failed", "job_id", jobID, "error", uerr)
	}
	if job, gerr := s.repo.GetByID(plain, jobID); gerr == nil && job != nil {
		s.notify.JobFailed(job.OwnerUserID, job, "dispatch", err.Error())
	}
	return fmt.Errorf("dispatch job %s: %w", jobID, err)
}
