package jobrun

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/testsuite"

	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
)

func runWorkflow(t *testing.T, out RunResult) error {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.SetStartWorkflowOptions(client.StartWorkflowOptions{ID: "0f8fad5b-d9cb-469f-a165-70867728950e"})

	var gotID string
	env.RegisterActivityWithOptions(func(_ context.Context, jobID string) (RunResult, error) {
		gotID = jobID
		out.JobID = jobID
		return out, nil
	}, activity.RegisterOptions{Name: ActivityRun})

	env.ExecuteWorkflow(Workflow)
	require.True(t, env.IsWorkflowCompleted())
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", gotID)
	return env.GetWorkflowError()
}

func TestWorkflowSucceedsWhenJobSucceeds(t *testing.T) {
	err := runWorkflow(t, RunResult{Status: domain.StatusSucceeded, Stage: "done"})
	assert.NoError(t, err)
}

func TestWorkflowFailsWhenJobFails(t *testing.T) {
	err := runWorkflow(t, RunResult{Status: domain.StatusFailed, Stage: "generate", Error: "boom"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage=generate")
}
