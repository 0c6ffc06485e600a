package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/studyplan/payload"
	"github.com/yungbote/studyplan-backend/internal/studyplan/prompts"
)

type SectionRequest struct {
	PlanID    uuid.UUID
	SectionID string
	Reset     bool
	JobID     string
}

// GenerateSection creates the tasks of one outline section. A section id that
// is not in the stored outline is still generated from the bare id.
func (s *Service) GenerateSection(ctx context.Context, req SectionRequest) (*Result, error) {
	sectionID := strings.TrimSpace(req.SectionID)
	if sectionID == "" {
		return failed("section_id is required"), nil
	}
	plan, err := s.plans.GetByID(dbctx.Context{Ctx: ctx}, req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return failed("plan %s not found", req.PlanID), nil
	}
	if err := s.setPlanStatus(ctx, plan.ID, studyplan.GenerationRunning, strPtr(req.JobID), ""); err != nil {
		return nil, err
	}

	res, genErr := s.generateSection(ctx, plan, sectionID, req.Reset)
	if genErr != nil {
		s.log.Warn("section generation failed", "plan_id", plan.ID, "section_id", sectionID, "job_id", req.JobID, "error", genErr)
		if err := s.setPlanStatus(ctx, plan.ID, studyplan.GenerationFailed, nil, genErr.Error()); err != nil {
			s.log.Error("mark plan failed", "plan_id", plan.ID, "error", err)
		}
		out := failed("%s", genErr.Error())
		out.PlanID = plan.ID.String()
		out.SectionID = sectionID
		return out, nil
	}
	if err := s.setPlanStatus(ctx, plan.ID, studyplan.GenerationSucceeded, nil, ""); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) generateSection(ctx context.Context, plan *studyplan.StudyPlan, sectionID string, reset bool) (*Result, error) {
	profile, err := s.profileOfPlan(ctx, plan)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("user context not found for plan %s", plan.ID)
	}
	section := plan.Metadata.Data().Schema.FindSection(sectionID)
	existing, err := s.sectionTasks(ctx, plan.ID, sectionID)
	if err != nil {
		return nil, err
	}
	docs := s.documentsFor(ctx, plan, profile.UserID)
	query := sectionID
	if section != nil {
		query = firstNonEmpty(section.Title, section.Milestone, sectionID)
	}
	ex := s.excerpts(ctx, profile.UserID, docs, query)

	p, err := prompts.Build(prompts.PromptSectionTasks, prompts.SectionTasksInput(sectionID, section, existing, docs, ex))
	if err != nil {
		return nil, fmt.Errorf("build section prompt: %w", err)
	}
	resp, err := s.generate(ctx, p)
	if err != nil {
		return nil, err
	}
	tasks, err := payload.ParseTasks(resp)
	if err != nil {
		return nil, err
	}
	created, err := s.hierarchy.PersistTasksForSection(dbctx.Context{Ctx: ctx}, plan.ID, sectionID, tasks, reset)
	if err != nil {
		return nil, err
	}
	return &Result{
		Status:    StatusSucceeded,
		PlanID:    plan.ID.String(),
		SectionID: sectionID,
		Tasks:     len(created),
		Prompt:    p.Fingerprint(),
	}, nil
}

func (s *Service) sectionTasks(ctx context.Context, planID uuid.UUID, sectionID string) ([]prompts.TaskRef, error) {
	dbc := dbctx.Context{Ctx: ctx}
	days, err := s.days.ListByPlan(dbc, planID)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, d := range days {
		if d.State().SectionID == sectionID {
			ids = append(ids, d.ID)
		}
	}
	tasks, err := s.tasks.ListByDayIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	out := make([]prompts.TaskRef, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskRef(t))
	}
	return out, nil
}
