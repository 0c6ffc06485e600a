package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/studyplan-backend/internal/services"
)

// Context is what a handler sees of one claimed job run. Handlers report
// through Progress, Fail and Succeed; none of them overwrite a canceled run.
type Context struct {
	Ctx    context.Context
	DB     *gorm.DB
	Job    *domain.JobRun
	Repo   repos.JobRunRepo
	Notify services.JobNotifier

	payload    map[string]any
	payloadErr error
}

func NewContext(ctx context.Context, db *gorm.DB, job *domain.JobRun, repo repos.JobRunRepo, notify services.JobNotifier) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if notify == nil {
		notify = services.NopJobNotifier()
	}
	c := &Context{Ctx: ctx, DB: db, Job: job, Repo: repo, Notify: notify, payload: map[string]any{}}
	if job != nil && len(job.Payload) > 0 {
		var m map[string]any
		if err := json.Unmarshal(job.Payload, &m); err != nil {
			c.payloadErr = err
		} else if m != nil {
			c.payload = m
		}
	}
	// Re-attach the ids of the request that enqueued the job so handler logs
	// correlate with it.
	if traceID, reqID := c.PayloadString("trace_id"), c.PayloadString("request_id"); traceID != "" || reqID != "" {
		c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{TraceID: traceID, RequestID: reqID})
	}
	return c
}

// PayloadError is set when the stored payload was not a JSON object.
func (c *Context) PayloadError() error { return c.payloadErr }

func (c *Context) Payload() map[string]any { return c.payload }

func (c *Context) PayloadString(key string) string {
	if v := c.payload[key]; v != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

func (c *Context) PayloadBool(key string) bool {
	switch v := c.payload[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return false
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.PayloadString(key))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Context) DBC() dbctx.Context { return dbctx.Context{Ctx: c.Ctx} }

// transition is one lifecycle write. Terminal transitions release the lock.
type transition struct {
	status   string
	stage    string
	progress *int
	message  string
	errMsg   string
	result   datatypes.JSON
	terminal bool
}

func (t transition) columns(now time.Time) map[string]interface{} {
	cols := map[string]interface{}{"stage": t.stage, "message": t.message, "updated_at": now}
	if t.status != "" {
		cols["status"] = t.status
	}
	if t.progress != nil {
		cols["progress"] = *t.progress
	}
	if t.status != domain.StatusRunning && t.status != "" {
		cols["error"] = t.errMsg
	}
	if t.status == domain.StatusFailed {
		cols["last_error_at"] = now
	} else {
		cols["heartbeat_at"] = now
	}
	if t.result != nil {
		cols["result"] = t.result
	}
	if t.terminal {
		cols["locked_at"] = nil
	}
	return cols
}

// commit persists t and mirrors it onto c.Job. It reports false when the run
// was canceled underneath the handler.
func (c *Context) commit(t transition) bool {
	if c == nil || c.Job == nil {
		return false
	}
	now := time.Now()
	if c.Repo != nil && c.Job.ID != uuid.Nil {
		ok, err := c.Repo.UpdateFieldsUnlessStatus(c.DBC(), c.Job.ID, []string{domain.StatusCanceled}, t.columns(now))
		if err != nil || !ok {
			return false
		}
	}
	j := c.Job
	if t.status != "" {
		j.Status = t.status
	}
	j.Stage = t.stage
	j.Message = t.message
	if t.progress != nil {
		j.Progress = *t.progress
	}
	if t.status == domain.StatusFailed {
		j.Error = t.errMsg
		j.LastErrorAt = &now
	} else {
		j.HeartbeatAt = &now
	}
	if t.status == domain.StatusSucceeded {
		j.Error = ""
	}
	if t.result != nil {
		j.Result = t.result
	}
	if t.terminal {
		j.LockedAt = nil
	}
	j.UpdatedAt = now
	return true
}

// Progress records a non-terminal stage and doubles as a heartbeat.
func (c *Context) Progress(stage string, pct int, msg string) {
	if c.commit(transition{stage: stage, progress: &pct, message: msg}) {
		c.Notify.JobProgress(c.Job.OwnerUserID, c.Job, stage, pct, msg)
	}
}

// Fail is terminal; runs are never retried.
func (c *Context) Fail(stage string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if c.commit(transition{status: domain.StatusFailed, stage: stage, errMsg: msg, terminal: true}) {
		c.Notify.JobFailed(c.Job.OwnerUserID, c.Job, stage, msg)
	}
}

func (c *Context) Succeed(finalStage string, result any) {
	res := datatypes.JSON(`{}`)
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			res = b
		}
	}
	done := 100
	if c.commit(transition{status: domain.StatusSucceeded, stage: finalStage, progress: &done, result: res, terminal: true}) {
		c.Notify.JobDone(c.Job.OwnerUserID, c.Job)
	}
}
