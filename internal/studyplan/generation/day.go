package generation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/studyplan/payload"
	"github.com/yungbote/studyplan-backend/internal/studyplan/prompts"
)

type DayRequest struct {
	PlanID uuid.UUID
	DayID  uuid.UUID
	Reset  bool
	JobID  string
}

// GenerateDay fills one day with tasks. The day's generation state and the
// plan-level fields both record the attempt; sibling days are never touched.
func (s *Service) GenerateDay(ctx context.Context, req DayRequest) (*Result, error) {
	dbc := dbctx.Context{Ctx: ctx}
	plan, err := s.plans.GetByID(dbc, req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return failed("plan %s not found", req.PlanID), nil
	}
	day, err := s.days.GetInPlan(dbc, plan.ID, req.DayID)
	if err != nil {
		return nil, err
	}
	if day == nil {
		out := failed("day %s not found", req.DayID)
		out.PlanID = plan.ID.String()
		return out, nil
	}

	if err := s.days.UpdateState(dbc, day.ID, func(st *studyplan.DayGenerationState) {
		st.GenerationStatus = studyplan.GenerationRunning
		st.JobID = req.JobID
		st.LastError = ""
	}); err != nil {
		return nil, err
	}
	if err := s.setPlanStatus(ctx, plan.ID, studyplan.GenerationRunning, strPtr(req.JobID), ""); err != nil {
		return nil, err
	}

	res, genErr := s.generateDay(ctx, plan, day, req.Reset)
	if genErr != nil {
		s.log.Warn("day generation failed", "plan_id", plan.ID, "day_id", day.ID, "job_id", req.JobID, "error", genErr)
		msg := genErr.Error()
		if err := s.days.UpdateState(dbc, day.ID, func(st *studyplan.DayGenerationState) {
			st.GenerationStatus = studyplan.GenerationFailed
			st.LastError = msg
		}); err != nil {
			s.log.Error("mark day failed", "day_id", day.ID, "error", err)
		}
		if err := s.setPlanStatus(ctx, plan.ID, studyplan.GenerationFailed, nil, msg); err != nil {
			s.log.Error("mark plan failed", "plan_id", plan.ID, "error", err)
		}
		out := failed("%s", msg)
		out.PlanID = plan.ID.String()
		out.DayID = day.ID.String()
		return out, nil
	}

	if err := s.days.UpdateState(dbc, day.ID, func(st *studyplan.DayGenerationState) {
		st.GenerationStatus = studyplan.GenerationSucceeded
		st.LastError = ""
	}); err != nil {
		return nil, err
	}
	if err := s.setPlanStatus(ctx, plan.ID, studyplan.GenerationSucceeded, nil, ""); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) generateDay(ctx context.Context, plan *studyplan.StudyPlan, day *studyplan.StudyDay, reset bool) (*Result, error) {
	profile, err := s.profileOfPlan(ctx, plan)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("user context not found for plan %s", plan.ID)
	}

	state := day.State()
	section := plan.Metadata.Data().Schema.FindSection(state.SectionID)
	dayTasks, sectionTasks, err := s.existingTasks(ctx, plan.ID, day.ID, state.SectionID)
	if err != nil {
		return nil, err
	}
	docs := s.documentsFor(ctx, plan, profile.UserID)
	query := day.Title
	if section != nil {
		query = firstNonEmpty(section.Title, section.Milestone, day.Title)
	}
	ex := s.excerpts(ctx, profile.UserID, docs, firstNonEmpty(query, day.Focus, profile.Goal))

	p, err := prompts.Build(prompts.PromptDay, prompts.DayInput(prompts.DayContext{
		Profile:      profile,
		Plan:         plan,
		Day:          day,
		Section:      section,
		DayTasks:     dayTasks,
		SectionTasks: sectionTasks,
		Documents:    docs,
		Excerpts:     ex,
	}))
	if err != nil {
		return nil, fmt.Errorf("build day prompt: %w", err)
	}
	resp, err := s.generate(ctx, p)
	if err != nil {
		return nil, err
	}
	parsed, err := payload.ParseDay(resp)
	if err != nil {
		return nil, err
	}
	created, err := s.hierarchy.PersistTasksForDay(dbctx.Context{Ctx: ctx}, day.ID, parsed, reset)
	if err != nil {
		return nil, err
	}
	return &Result{
		Status:    StatusSucceeded,
		PlanID:    plan.ID.String(),
		DayID:     day.ID.String(),
		SectionID: state.SectionID,
		Tasks:     len(created),
		Prompt:    p.Fingerprint(),
	}, nil
}

// existingTasks returns compact views of the tasks already on the day and on
// every day of the same section.
func (s *Service) existingTasks(ctx context.Context, planID, dayID uuid.UUID, sectionID string) (onDay, inSection []prompts.TaskRef, err error) {
	dbc := dbctx.Context{Ctx: ctx}
	dayIDs := []uuid.UUID{dayID}
	if sectionID != "" {
		days, err := s.days.ListByPlan(dbc, planID)
		if err != nil {
			return nil, nil, err
		}
		dayIDs = dayIDs[:0]
		for _, d := range days {
			if d.ID == dayID || d.State().SectionID == sectionID {
				dayIDs = append(dayIDs, d.ID)
			}
		}
	}
	tasks, err := s.tasks.ListByDayIDs(dbc, dayIDs)
	if err != nil {
		return nil, nil, err
	}
	onDay = []prompts.TaskRef{}
	inSection = []prompts.TaskRef{}
	for _, t := range tasks {
		ref := taskRef(t)
		if t.DayID == dayID {
			onDay = append(onDay, ref)
		}
		if sectionID != "" {
			inSection = append(inSection, ref)
		}
	}
	return onDay, inSection, nil
}

func taskRef(t *studyplan.StudyTask) prompts.TaskRef {
	return prompts.TaskRef{
		ID:         t.ID.String(),
		Title:      t.Title,
		Status:     t.Status,
		Difficulty: t.Metadata.Data().Difficulty,
	}
}
