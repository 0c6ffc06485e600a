package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	jobdomain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/studyplan-backend/internal/pkg/errors"
	"github.com/yungbote/studyplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/studyplan/hierarchy"
	"github.com/yungbote/studyplan-backend/internal/studyplan/view"
)

type OutlineRequest struct {
	PlanID       *uuid.UUID `json:"plan_id"`
	Title        string     `json:"title"`
	GoalOverride string     `json:"goal_override"`
	Mode         string     `json:"mode"`
}

type CreateDayRequest struct {
	WeekID        *uuid.UUID     `json:"week_id"`
	ScheduledDate *time.Time     `json:"scheduled_date"`
	Title         string         `json:"title"`
	Focus         string         `json:"focus"`
	TargetMinutes int            `json:"target_minutes"`
	Metadata      map[string]any `json:"metadata"`
	AutoGenerate  *bool          `json:"auto_generate"`
	ResetExisting *bool          `json:"reset_existing"`
}

// Enqueued names the row a job will write and the job itself.
type Enqueued struct {
	PlanID uuid.UUID         `json:"plan_id"`
	DayID  *uuid.UUID        `json:"day_id,omitempty"`
	JobID  uuid.UUID         `json:"job_id"`
	Job    *jobdomain.JobRun `json:"-"`
}

// StudyPlanService is the request-user facing side of plans: reads, progress
// writes and job requests. Generation itself runs in the job pipelines.
type StudyPlanService interface {
	ListForRequestUser(ctx context.Context) ([]view.PlanSummary, error)
	GetTreeForRequestUser(ctx context.Context, planID uuid.UUID) (*view.Plan, error)
	RequestOutline(ctx context.Context, req OutlineRequest) (*Enqueued, error)
	RequestDayTasks(ctx context.Context, planID, dayID uuid.UUID, reset bool) (*Enqueued, error)
	RequestSectionTasks(ctx context.Context, planID uuid.UUID, sectionID string, reset bool) (*Enqueued, error)
	CreateDay(ctx context.Context, planID uuid.UUID, req CreateDayRequest) (*studyplan.StudyDay, *Enqueued, error)
	RecordTaskProgress(ctx context.Context, planID, taskID uuid.UUID, p studyplan.TaskProgress) (*studyplan.StudyTask, error)
	RecordDayResult(ctx context.Context, planID, dayID uuid.UUID, r studyplan.DayResult) (*studyplan.StudyDay, error)
}

type studyPlanService struct {
	db        *gorm.DB
	log       *logger.Logger
	profiles  repos.ProfileRepo
	plans     repos.PlanRepo
	days      repos.DayRepo
	tasks     repos.TaskRepo
	hierarchy *hierarchy.Repository
	jobs      JobService
	now       func() time.Time
}

func NewStudyPlanService(
	db *gorm.DB,
	baseLog *logger.Logger,
	profiles repos.ProfileRepo,
	plans repos.PlanRepo,
	days repos.DayRepo,
	tasks repos.TaskRepo,
	h *hierarchy.Repository,
	jobs JobService,
) StudyPlanService {
	return &studyPlanService{
		db:        db,
		log:       baseLog.With("service", "StudyPlanService"),
		profiles:  profiles,
		plans:     plans,
		days:      days,
		tasks:     tasks,
		hierarchy: h,
		jobs:      jobs,
		now:       time.Now,
	}
}

func requestUser(ctx context.Context) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, pkgerrors.ErrUnauthorized
	}
	return rd.UserID, nil
}

func (s *studyPlanService) requestProfile(ctx context.Context) (*studyplan.UserProfile, error) {
	userID, err := requestUser(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("user context: %w", pkgerrors.ErrNotFound)
	}
	return profile, nil
}

// ownedPlan returns the plan when it belongs to the request user.
func (s *studyPlanService) ownedPlan(ctx context.Context, planID uuid.UUID) (*studyplan.UserProfile, *studyplan.StudyPlan, error) {
	profile, err := s.requestProfile(ctx)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.plans.GetForProfile(dbctx.Context{Ctx: ctx}, profile.ID, planID)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		return nil, nil, fmt.Errorf("plan %s: %w", planID, pkgerrors.ErrNotFound)
	}
	return profile, plan, nil
}

func (s *studyPlanService) ListForRequestUser(ctx context.Context) ([]view.PlanSummary, error) {
	profile, err := s.requestProfile(ctx)
	if err != nil {
		return nil, err
	}
	plans, err := s.plans.ListForProfile(dbctx.Context{Ctx: ctx}, profile.ID)
	if err != nil {
		return nil, err
	}
	out := make([]view.PlanSummary, 0, len(plans))
	for _, p := range plans {
		out = append(out, view.Summarize(p))
	}
	return out, nil
}

func (s *studyPlanService) GetTreeForRequestUser(ctx context.Context, planID uuid.UUID) (*view.Plan, error) {
	if _, _, err := s.ownedPlan(ctx, planID); err != nil {
		return nil, err
	}
	plan, err := s.plans.GetTree(dbctx.Context{Ctx: ctx}, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("plan %s: %w", planID, pkgerrors.ErrNotFound)
	}
	tree := view.Tree(plan)
	return &tree, nil
}

// enqueueTx stores a job inside fn's transaction and dispatches it after
// commit, so the owning row already carries the job id when the job starts.
func (s *studyPlanService) enqueueTx(ctx context.Context, fn func(tx *gorm.DB) (*jobdomain.JobRun, error)) (*jobdomain.JobRun, error) {
	var job *jobdomain.JobRun
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = fn(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Dispatch(dbctx.Context{Ctx: ctx}, job.ID); err != nil {
		return job, err
	}
	return job, nil
}

// RequestOutline resolves or creates the target plan, records the job on it
// and queues plan_outline.
func (s *studyPlanService) RequestOutline(ctx context.Context, req OutlineRequest) (*Enqueued, error) {
	profile, err := s.requestProfile(ctx)
	if err != nil {
		return nil, err
	}
	var planID uuid.UUID
	job, err := s.enqueueTx(ctx, func(tx *gorm.DB) (*jobdomain.JobRun, error) {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		var plan *studyplan.StudyPlan
		var err error
		if req.PlanID != nil && *req.PlanID != uuid.Nil {
			if plan, err = s.plans.GetForProfile(dbc, profile.ID, *req.PlanID); err != nil {
				return nil, err
			}
			if plan == nil {
				return nil, fmt.Errorf("plan %s: %w", *req.PlanID, pkgerrors.ErrNotFound)
			}
		} else {
			if plan, err = s.plans.LatestForProfile(dbc, profile.ID); err != nil {
				return nil, err
			}
			if plan != nil && plan.Status == studyplan.PlanStatusArchived {
				plan = nil
			}
		}
		if plan == nil {
			plan = &studyplan.StudyPlan{
				UserProfileID:    profile.ID,
				Title:            firstNonBlank(req.Title, profile.PlanLabel, profile.Goal),
				Status:           studyplan.PlanStatusDraft,
				GenerationStatus: studyplan.GenerationPending,
			}
			if err := s.plans.Create(dbc, plan); err != nil {
				return nil, err
			}
		}
		if _, err := s.hierarchy.LockPlan(tx, plan.ID); err != nil {
			return nil, err
		}
		planID = plan.ID
		payload := map[string]any{"plan_id": plan.ID.String()}
		for k, v := range map[string]string{"title": req.Title, "goal_override": req.GoalOverride, "mode": req.Mode} {
			if v = strings.TrimSpace(v); v != "" {
				payload[k] = v
			}
		}
		job, err := s.jobs.Enqueue(dbc, profile.UserID, jobdomain.TypePlanOutline, jobdomain.EntityPlan, &planID, payload)
		if err != nil {
			return nil, err
		}
		return job, s.plans.UpdateFields(dbc, plan.ID, map[string]interface{}{
			"job_id":            job.ID.String(),
			"generation_status": studyplan.GenerationPending,
			"last_error":        "",
		})
	})
	if err != nil {
		return nil, err
	}
	return &Enqueued{PlanID: planID, JobID: job.ID, Job: job}, nil
}

func (s *studyPlanService) RequestDayTasks(ctx context.Context, planID, dayID uuid.UUID, reset bool) (*Enqueued, error) {
	profile, _, err := s.ownedPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	day, err := s.days.GetInPlan(dbctx.Context{Ctx: ctx}, planID, dayID)
	if err != nil {
		return nil, err
	}
	if day == nil {
		return nil, fmt.Errorf("day %s: %w", dayID, pkgerrors.ErrNotFound)
	}
	job, err := s.enqueueTx(ctx, func(tx *gorm.DB) (*jobdomain.JobRun, error) {
		return s.enqueueDay(dbctx.Context{Ctx: ctx, Tx: tx}, profile.UserID, planID, dayID, reset)
	})
	if err != nil {
		return nil, err
	}
	return &Enqueued{PlanID: planID, DayID: &dayID, JobID: job.ID, Job: job}, nil
}

func (s *studyPlanService) enqueueDay(dbc dbctx.Context, owner, planID, dayID uuid.UUID, reset bool) (*jobdomain.JobRun, error) {
	job, err := s.jobs.Enqueue(dbc, owner, jobdomain.TypeDayTasks, jobdomain.EntityDay, &dayID, map[string]any{
		"plan_id": planID.String(),
		"day_id":  dayID.String(),
		"reset":   reset,
	})
	if err != nil {
		return nil, err
	}
	jobID := job.ID.String()
	err = s.days.UpdateState(dbc, dayID, func(st *studyplan.DayGenerationState) {
		st.GenerationStatus = studyplan.GenerationPending
		st.JobID = jobID
	})
	return job, err
}

func (s *studyPlanService) RequestSectionTasks(ctx context.Context, planID uuid.UUID, sectionID string, reset bool) (*Enqueued, error) {
	sectionID = strings.TrimSpace(sectionID)
	if sectionID == "" {
		return nil, fmt.Errorf("missing section_id: %w", pkgerrors.ErrInvalidArgument)
	}
	profile, _, err := s.ownedPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	job, err := s.enqueueTx(ctx, func(tx *gorm.DB) (*jobdomain.JobRun, error) {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		job, err := s.jobs.Enqueue(dbc, profile.UserID, jobdomain.TypeSectionTasks, jobdomain.EntityPlan, &planID, map[string]any{
			"plan_id":    planID.String(),
			"section_id": sectionID,
			"reset":      reset,
		})
		if err != nil {
			return nil, err
		}
		return job, s.plans.UpdateFields(dbc, planID, map[string]interface{}{"job_id": job.ID.String()})
	})
	if err != nil {
		return nil, err
	}
	return &Enqueued{PlanID: planID, JobID: job.ID, Job: job}, nil
}

// CreateDay appends a day after the last one. Unless AutoGenerate is false a
// day_tasks job is queued for it.
func (s *studyPlanService) CreateDay(ctx context.Context, planID uuid.UUID, req CreateDayRequest) (*studyplan.StudyDay, *Enqueued, error) {
	profile, plan, err := s.ownedPlan(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	if req.WeekID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&studyplan.StudyWeek{}).Where("id = ? AND plan_id = ?", *req.WeekID, planID).Count(&n).Error; err != nil {
			return nil, nil, err
		}
		if n == 0 {
			return nil, nil, fmt.Errorf("week %s: %w", *req.WeekID, pkgerrors.ErrNotFound)
		}
	}
	autoGenerate := req.AutoGenerate == nil || *req.AutoGenerate
	reset := req.ResetExisting == nil || *req.ResetExisting

	var day *studyplan.StudyDay
	var job *jobdomain.JobRun
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.hierarchy.LockPlan(tx, plan.ID); err != nil {
			return err
		}
		created, err := s.days.Append(dbc, &studyplan.StudyDay{
			PlanID:        plan.ID,
			WeekID:        req.WeekID,
			ScheduledDate: req.ScheduledDate,
			Title:         strings.TrimSpace(req.Title),
			Focus:         strings.TrimSpace(req.Focus),
			TargetMinutes: req.TargetMinutes,
			Status:        studyplan.ItemStatusPending,
			Metadata:      datatypes.NewJSONType(hierarchy.DayStateFromMap(req.Metadata)),
		})
		if err != nil {
			return err
		}
		day = created
		if err := tx.Model(&studyplan.StudyPlan{}).Where("id = ?", plan.ID).
			Update("total_days", gorm.Expr("total_days + 1")).Error; err != nil {
			return err
		}
		if !autoGenerate {
			return nil
		}
		job, err = s.enqueueDay(dbc, profile.UserID, plan.ID, day.ID, reset)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if job == nil {
		return day, nil, nil
	}
	if err := s.jobs.Dispatch(dbctx.Context{Ctx: ctx}, job.ID); err != nil {
		return day, nil, err
	}
	fresh, err := s.days.GetByID(dbctx.Context{Ctx: ctx}, day.ID)
	if err == nil && fresh != nil {
		day = fresh
	}
	dayID := day.ID
	return day, &Enqueued{PlanID: plan.ID, DayID: &dayID, JobID: job.ID, Job: job}, nil
}

func (s *studyPlanService) RecordTaskProgress(ctx context.Context, planID, taskID uuid.UUID, p studyplan.TaskProgress) (*studyplan.StudyTask, error) {
	if _, _, err := s.ownedPlan(ctx, planID); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	task, err := s.tasks.GetInPlan(dbc, planID, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", taskID, pkgerrors.ErrNotFound)
	}
	if p.MinutesSpent < 0 {
		return nil, fmt.Errorf("minutes_spent must be >= 0: %w", pkgerrors.ErrInvalidArgument)
	}
	p.UpdatedAt = s.now().UTC()
	return s.tasks.UpdateProgress(dbc, taskID, p)
}

func (s *studyPlanService) RecordDayResult(ctx context.Context, planID, dayID uuid.UUID, r studyplan.DayResult) (*studyplan.StudyDay, error) {
	if _, _, err := s.ownedPlan(ctx, planID); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	day, err := s.days.GetInPlan(dbc, planID, dayID)
	if err != nil {
		return nil, err
	}
	if day == nil {
		return nil, fmt.Errorf("day %s: %w", dayID, pkgerrors.ErrNotFound)
	}
	if r.MinutesSpent < 0 {
		return nil, fmt.Errorf("minutes_spent must be >= 0: %w", pkgerrors.ErrInvalidArgument)
	}
	r.RecordedAt = s.now().UTC()
	if err := s.days.UpdateState(dbc, dayID, func(st *studyplan.DayGenerationState) {
		res := r
		st.LastResult = &res
	}); err != nil {
		return nil, err
	}
	if r.Status != "" {
		if err := s.db.WithContext(ctx).Model(&studyplan.StudyDay{}).Where("id = ?", dayID).Update("status", r.Status).Error; err != nil {
			return nil, err
		}
	}
	return s.days.GetByID(dbc, dayID)
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
