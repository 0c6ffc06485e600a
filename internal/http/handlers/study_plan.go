package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/http/response"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/services"
	"github.com/yungbote/studyplan-backend/internal/studyplan/view"
)

const maxUploadBytes = 25 << 20

type StudyPlanHandler struct {
	log   *logger.Logger
	plans services.StudyPlanService
	docs  services.DocumentService
}

func NewStudyPlanHandler(log *logger.Logger, plans services.StudyPlanService, docs services.DocumentService) *StudyPlanHandler {
	return &StudyPlanHandler{log: log.With("handler", "StudyPlanHandler"), plans: plans, docs: docs}
}

// GET /api/ai/study-plans
func (h *StudyPlanHandler) List(c *gin.Context) {
	plans, err := h.plans.ListForRequestUser(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if plans == nil {
		plans = []view.PlanSummary{}
	}
	response.RespondOK(c, gin.H{"plans": plans})
}

// GET /api/ai/study-plans/:plan_id
func (h *StudyPlanHandler) Get(c *gin.Context) {
	planID, ok := uuidParam(c, "plan_id")
	if !ok {
		return
	}
	tree, err := h.plans.GetTreeForRequestUser(c.Request.Context(), planID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, tree)
}

// POST /api/ai/study-plans/generate
func (h *StudyPlanHandler) Generate(c *gin.Context) {
	var req services.OutlineRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	out, err := h.plans.RequestOutline(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, out)
}

type dayGenerateRequest struct {
	Reset *bool `json:"reset"`
}

// POST /api/ai/study-plans/:plan_id/days/:day_id/generate
func (h *StudyPlanHandler) GenerateDay(c *gin.Context) {
	planID, ok := uuidParam(c, "plan_id")
	if !ok {
		return
	}
	dayID, ok := uuidParam(c, "day_id")
	if !ok {
		return
	}
	var req dayGenerateRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	reset := req.Reset == nil || *req.Reset
	out, err := h.plans.RequestDayTasks(c.Request.Context(), planID, dayID, reset)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, out)
}

type sectionTasksRequest struct {
	SectionID string `json:"section_id"`
	Reset     bool   `json:"reset"`
}

// POST /api/ai/study-plans/:plan_id/tasks
func (h *StudyPlanHandler) GenerateSectionTasks(c *gin.Context) {
	planID, ok := uuidParam(c, "plan_id")
	if !ok {
		return
	}
	var req sectionTasksRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	out, err := h.plans.RequestSectionTasks(c.Request.Context(), planID, req.SectionID, req.Reset)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, out)
}

type createDayRequest struct {
	services.CreateDayRequest
	ScheduledDate string `json:"scheduled_date"`
}

// POST /api/ai/study-plans/:plan_id/days
func (h *StudyPlanHandler) CreateDay(c *gin.Context) {
	planID, ok := uuidParam(c, "plan_id")
	if !ok {
		return
	}
	var req createDayRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if s := strings.TrimSpace(req.ScheduledDate); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_scheduled_date", err)
			return
		}
		req.CreateDayRequest.ScheduledDate = &d
	}
	day, enq, err := h.plans.CreateDay(c.Request.Context(), planID, req.CreateDayRequest)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	body := gin.H{"day": view.DayOf(day)}
	if enq != nil {
		body["job_id"] = enq.JobID
	}
	c.JSON(http.StatusCreated, body)
}

// POST /api/ai/study-plans/:plan_id/tasks/:task_id/progress
func (h *StudyPlanHandler) TaskProgress(c *gin.Context) {
	planID, ok := uuidParam(c, "plan_id")
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "task_id")
	if !ok {
		return
	}
	var req studyplan.TaskProgress
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	task, err := h.plans.RecordTaskProgress(c.Request.Context(), planID, taskID, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"task": view.TaskOf(task)})
}

// POST /api/ai/study-plans/:plan_id/days/:day_id/result
func (h *StudyPlanHandler) DayResult(c *gin.Context) {
	planID, ok := uuidParam(c, "plan_id")
	if !ok {
		return
	}
	dayID, ok := uuidParam(c, "day_id")
	if !ok {
		return
	}
	var req studyplan.DayResult
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	day, err := h.plans.RecordDayResult(c.Request.Context(), planID, dayID, req)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"day": view.DayOf(day)})
}

// POST /api/ai/study-plans/:plan_id/materials (multipart: file, title)
func (h *StudyPlanHandler) UploadMaterial(c *gin.Context) {
	planID, ok := uuidParam(c, "plan_id")
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if fh.Size > maxUploadBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Errorf("file exceeds %d bytes", maxUploadBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	doc, job, err := h.docs.Upload(c.Request.Context(), services.UploadRequest{
		Title:    c.PostForm("title"),
		Filename: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Raw:      raw,
		PlanID:   &planID,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	body := gin.H{"document": doc}
	if job != nil {
		body["job_id"] = job.ID
	}
	response.RespondAccepted(c, body)
}
