package services

import (
	"context"

	"github.com/google/uuid"

	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/realtime"
)

type JobNotifier interface {
	JobCreated(userID uuid.UUID, job *domain.JobRun)
	JobProgress(userID uuid.UUID, job *domain.JobRun, stage string, progress int, message string)
	JobFailed(userID uuid.UUID, job *domain.JobRun, stage string, errorMessage string)
	JobDone(userID uuid.UUID, job *domain.JobRun)
}

type jobNotifier struct {
	emitter *realtime.Emitter
}

func NewJobNotifier(emitter *realtime.Emitter) JobNotifier {
	return &jobNotifier{emitter: emitter}
}

func (n *jobNotifier) emit(userID uuid.UUID, event realtime.SSEEvent, data map[string]any) {
	if n == nil || n.emitter == nil || userID == uuid.Nil {
		return
	}
	n.emitter.Emit(context.Background(), realtime.SSEMessage{Channel: userID.String(), Event: event, Data: data})
}

func (n *jobNotifier) JobCreated(userID uuid.UUID, job *domain.JobRun) {
	n.emit(userID, realtime.SSEEventJobCreated, map[string]any{"job": job})
}

func (n *jobNotifier) JobProgress(userID uuid.UUID, job *domain.JobRun, stage string, progress int, message string) {
	n.emit(userID, realtime.SSEEventJobProgress, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"progress": progress,
		"message":  message,
	})
}

func (n *jobNotifier) JobFailed(userID uuid.UUID, job *domain.JobRun, stage string, errorMessage string) {
	n.emit(userID, realtime.SSEEventJobFailed, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"error":    errorMessage,
	})
}

func (n *jobNotifier) JobDone(userID uuid.UUID, job *domain.JobRun) {
	n.emit(userID, realtime.SSEEventJobDone, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"job":      job,
	})
}

type nopNotifier struct{}

// NopJobNotifier drops every notification.
func NopJobNotifier() JobNotifier { return nopNotifier{} }

func (nopNotifier) JobCreated(uuid.UUID, *domain.JobRun) {}
func (nopNotifier) JobProgress(uuid.UUID, *domain.JobRun, string, int, string) {}
func (nopNotifier) JobFailed(uuid.UUID, *domain.JobRun, string, string) {}
func (nopNotifier) JobDone(uuid.UUID, *domain.JobRun) {}
