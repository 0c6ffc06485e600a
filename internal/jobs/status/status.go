// Package status renders job runs for API clients, as a single snapshot or
// as a bounded stream of server-sent events.
package status

import (
	"context"
	"encoding/json"
	"time"

	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/platform/envutil"
)

const (
	EventStatus  = "status"
	EventResult  = "result"
	EventError   = "error"
	EventTimeout = "timeout"
)

type Config struct {
	Interval time.Duration
	MaxPolls int
}

func ConfigFromEnv() Config {
	return Config{
		Interval: envutil.Duration("JOB_STREAM_INTERVAL_MS", time.Second, time.Millisecond),
		MaxPolls: envutil.Int("JOB_STREAM_MAX_POLLS", 120),
	}
}

// View is the public shape of a job.
type View struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func ViewOf(job *domain.JobRun) View {
	v := View{JobID: job.ID.String(), Status: job.PublicStatus()}
	switch job.Status {
	case domain.StatusSucceeded:
		v.Result = decodeResult(job)
	case domain.StatusFailed, domain.StatusCanceled:
		v.Error = job.Error
	}
	return v
}

func decodeResult(job *domain.JobRun) any {
	if len(job.Result) == 0 {
		return map[string]any{}
	}
	var out any
	if err := json.Unmarshal(job.Result, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// Loader fetches the current job row. A nil job means it no longer exists.
type Loader func(ctx context.Context) (*domain.JobRun, error)

type Sink interface {
	Write(event string, data any) error
}

// Stream polls load until the job is terminal or the poll budget runs out.
// It writes a status event whenever the status changes, then exactly one of
// result, error or timeout.
func Stream(ctx context.Context, cfg Config, jobID string, load Loader, sink Sink) error {
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	last := ""
	for poll := 0; poll < cfg.MaxPolls; poll++ {
		if poll > 0 {
			timer := time.NewTimer(cfg.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		job, err := load(ctx)
		if err != nil {
			return sink.Write(EventError, map[string]any{"job_id": jobID, "error": err.Error()})
		}
		if job == nil {
			return sink.Write(EventError, map[string]any{"job_id": jobID, "error": "job not found"})
		}
		v := ViewOf(job)
		if v.Status != last {
			last = v.Status
			if err := sink.Write(EventStatus, map[string]any{"job_id": v.JobID, "status": v.Status}); err != nil {
				return err
			}
		}
		if !job.Terminal() {
			continue
		}
		if job.Status == domain.StatusSucceeded {
			return sink.Write(EventResult, map[string]any{"job_id": v.JobID, "result": v.Result})
		}
		return sink.Write(EventError, map[string]any{"job_id": v.JobID, "error": v.Error})
	}
	return sink.Write(EventTimeout, map[string]any{"job_id": jobID})
}
