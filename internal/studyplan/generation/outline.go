package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/studyplan/hierarchy"
	"github.com/yungbote/studyplan-backend/internal/studyplan/payload"
	"github.com/yungbote/studyplan-backend/internal/studyplan/prompts"
)

// PlanRequest selects the profile by ProfileID, or by UserID when ProfileID
// is unset. Without PlanID the latest non-archived plan of the profile is
// regenerated, or a new one is created.
type PlanRequest struct {
	UserID       uuid.UUID
	ProfileID    uuid.UUID
	PlanID       *uuid.UUID
	Title        string
	GoalOverride string
	JobID        string
	// Mode overrides the configured outline mode.
	Mode string
}

func (s *Service) resolveProfile(ctx context.Context, req PlanRequest) (*studyplan.UserProfile, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if req.ProfileID != uuid.Nil {
		return s.profiles.GetByID(dbc, req.ProfileID)
	}
	return s.profiles.GetByUserID(dbc, req.UserID)
}

// GeneratePlan produces or refreshes the outline of a plan.
func (s *Service) GeneratePlan(ctx context.Context, req PlanRequest) (*Result, error) {
	profile, err := s.resolveProfile(ctx, req)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return failed("user context not found"), nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	var plan *studyplan.StudyPlan
	if req.PlanID != nil && *req.PlanID != uuid.Nil {
		plan, err = s.plans.GetForProfile(dbc, profile.ID, *req.PlanID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return failed("plan %s not found", *req.PlanID), nil
		}
	} else {
		plan, err = s.plans.LatestForProfile(dbc, profile.ID)
		if err != nil {
			return nil, err
		}
		if plan != nil && plan.Status == studyplan.PlanStatusArchived {
			plan = nil
		}
	}

	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = s.cfg.OutlineMode
	}
	if mode == OutlineModeCalendar {
		return s.calendarOutline(ctx, profile, req.JobID)
	}

	if plan != nil {
		if err := s.setPlanStatus(ctx, plan.ID, studyplan.GenerationRunning, strPtr(req.JobID), ""); err != nil {
			return nil, err
		}
	}

	res, genErr := s.generatedOutline(ctx, profile, plan, req)
	if genErr != nil {
		s.log.Warn("outline generation failed", "profile_id", profile.ID, "job_id", req.JobID, "error", genErr)
		out := failed("%s", genErr.Error())
		if plan != nil {
			out.PlanID = plan.ID.String()
			if err := s.setPlanStatus(ctx, plan.ID, studyplan.GenerationFailed, nil, genErr.Error()); err != nil {
				s.log.Error("mark plan failed", "plan_id", plan.ID, "error", err)
			}
		}
		return out, nil
	}
	return res, nil
}

func (s *Service) generatedOutline(ctx context.Context, profile *studyplan.UserProfile, plan *studyplan.StudyPlan, req PlanRequest) (*Result, error) {
	docs := s.documentsFor(ctx, plan, profile.UserID)
	goal := strings.TrimSpace(req.GoalOverride)
	if goal == "" {
		goal = profile.Goal
	}
	ex := s.excerpts(ctx, profile.UserID, docs, goal)

	p, err := prompts.Build(prompts.PromptOutline, prompts.OutlineInput(profile, req.GoalOverride, docs, ex))
	if err != nil {
		return nil, fmt.Errorf("build outline prompt: %w", err)
	}
	resp, err := s.generate(ctx, p)
	if err != nil {
		return nil, err
	}
	outline, err := payload.ParseOutline(resp)
	if err != nil {
		return nil, err
	}
	saved, err := s.hierarchy.PersistPlanFromPayload(dbctx.Context{Ctx: ctx}, hierarchy.OutlineWrite{
		Profile:   profile,
		Plan:      plan,
		Title:     firstNonEmpty(req.Title, outline.Title),
		Outline:   outline,
		Documents: docs,
	})
	if err != nil {
		return nil, err
	}
	if req.JobID != "" {
		if err := s.setPlanStatus(ctx, saved.ID, studyplan.GenerationSucceeded, strPtr(req.JobID), ""); err != nil {
			return nil, err
		}
	}
	sections := len(outline.Outline.Sections)
	return &Result{
		Status: StatusSucceeded,
		PlanID: saved.ID.String(),
		Mode:   OutlineModeGenerated,
		Weeks:  sections,
		Days:   sections,
		Prompt: p.Fingerprint(),
	}, nil
}

func (s *Service) calendarOutline(ctx context.Context, profile *studyplan.UserProfile, jobID string) (*Result, error) {
	plan, err := s.hierarchy.SyncCalendar(dbctx.Context{Ctx: ctx}, profile)
	if err != nil {
		s.log.Warn("calendar outline failed", "profile_id", profile.ID, "error", err)
		return failed("%s", err.Error()), nil
	}
	if jobID != "" {
		if err := s.setPlanStatus(ctx, plan.ID, studyplan.GenerationSucceeded, strPtr(jobID), ""); err != nil {
			return nil, err
		}
	}
	weeks := 0
	if cal := plan.Metadata.Data().Calendar; cal != nil {
		weeks = cal.WeekCount
	}
	return &Result{
		Status: StatusSucceeded,
		PlanID: plan.ID.String(),
		Mode:   OutlineModeCalendar,
		Weeks:  weeks,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
