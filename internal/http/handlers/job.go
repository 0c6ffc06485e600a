package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/http/response"
	"github.com/yungbote/studyplan-backend/internal/jobs/status"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/studyplan-backend/internal/pkg/errors"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/realtime"
	"github.com/yungbote/studyplan-backend/internal/services"
)

type JobHandler struct {
	log  *logger.Logger
	jobs services.JobService
	cfg  status.Config
}

func NewJobHandler(log *logger.Logger, jobs services.JobService, cfg status.Config) *JobHandler {
	return &JobHandler{log: log.With("handler", "JobHandler"), jobs: jobs, cfg: cfg}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.GetByIDForRequestUser(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, status.ViewOf(job))
}

// GET /api/jobs/stream?job_id=
func (h *JobHandler) StreamJob(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("job_id"))
	if raw == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_job_id", fmt.Errorf("job_id is required"))
		return
	}
	jobID, err := uuid.Parse(raw)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.jobs.GetByIDForRequestUser(dbctx.Context{Ctx: ctx}, jobID); err != nil {
		response.RespondAPIError(c, err)
		return
	}

	sw, err := realtime.NewWriter(c.Writer)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "streaming_unsupported", err)
		return
	}
	c.Status(http.StatusOK)
	load := func(ctx context.Context) (*domain.JobRun, error) {
		job, err := h.jobs.GetByIDForRequestUser(dbctx.Context{Ctx: ctx}, jobID)
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, nil
		}
		return job, err
	}
	if err := status.Stream(ctx, h.cfg, jobID.String(), load, sw); err != nil && !errors.Is(err, context.Canceled) {
		h.log.WithContext(ctx).Warn("job stream ended early", "job_id", jobID, "error", err)
	}
}
