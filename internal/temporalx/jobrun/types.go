package jobrun

import "github.com/yungbote/studyplan-backend/internal/services"

const (
	WorkflowName = services.TemporalWorkflowName
	ActivityRun  = "job_run_execute"
)

type RunResult struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Stage  string `json:"stage,omitempty"`
	Error  string `json:"error,omitempty"`
}
