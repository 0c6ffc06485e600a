// Package view shapes stored plans for API responses.
package view

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
)

type Plan struct {
	ID               uuid.UUID           `json:"id"`
	Title            string              `json:"title"`
	Summary          string              `json:"summary"`
	Status           string              `json:"status"`
	StartDate        *time.Time          `json:"start_date"`
	EndDate          *time.Time          `json:"end_date"`
	TotalDays        int                 `json:"total_days"`
	GenerationStatus string              `json:"generation_status"`
	JobID            string              `json:"job_id"`
	LastError        string              `json:"last_error"`
	Outline          *studyplan.Outline  `json:"outline,omitempty"`
	Documents        []Document          `json:"documents"`
	Weeks            []Week              `json:"weeks"`
	UnscheduledDays  []Day               `json:"unscheduled_days,omitempty"`
	GeneratedAt      time.Time           `json:"generated_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type Document struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type Week struct {
	ID        uuid.UUID  `json:"id"`
	Index     int        `json:"week_index"`
	Title     string     `json:"title"`
	Focus     string     `json:"focus"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Status    string     `json:"status"`
	Days      []Day      `json:"days"`
}

type Day struct {
	ID            uuid.UUID                    `json:"id"`
	Index         int                          `json:"day_index"`
	ScheduledDate *time.Time                   `json:"scheduled_date"`
	Title         string                       `json:"title"`
	Focus         string                       `json:"focus"`
	TargetMinutes int                          `json:"target_minutes"`
	Status        string                       `json:"status"`
	Summary       string                       `json:"summary"`
	State         studyplan.DayGenerationState `json:"metadata"`
	Tasks         []Task                       `json:"tasks"`
}

type Task struct {
	ID              uuid.UUID            `json:"id"`
	Order           int                  `json:"order"`
	Type            string               `json:"task_type"`
	Status          string               `json:"status"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	DurationMinutes int                  `json:"duration_minutes"`
	Resources       []studyplan.Resource `json:"resources"`
	Meta            studyplan.TaskMeta   `json:"metadata"`
	Content         map[string]any       `json:"content"`
}

// PlanSummary is one row of the plan list.
type PlanSummary struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Status           string    `json:"status"`
	GenerationStatus string    `json:"generation_status"`
	JobID            string    `json:"job_id"`
	TotalDays        int       `json:"total_days"`
	WeekCount        int       `json:"week_count"`
	CurrentWeek      string    `json:"current_week"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Summarize renders a plan row with its weeks preloaded. CurrentWeek reads
// "{title} ({status})" of the first week.
func Summarize(p *studyplan.StudyPlan) PlanSummary {
	s := PlanSummary{
		ID:               p.ID,
		Title:            p.Title,
		Status:           p.Status,
		GenerationStatus: p.GenerationStatus,
		JobID:            p.JobID,
		TotalDays:        p.TotalDays,
		WeekCount:        len(p.Weeks),
		GeneratedAt:      p.GeneratedAt,
	}
	if len(p.Weeks) > 0 {
		w := p.Weeks[0]
		s.CurrentWeek = fmt.Sprintf("%s (%s)", w.Title, w.Status)
	}
	return s
}

// Tree renders a plan loaded with PlanRepo.GetTree. Days without a week are
// listed separately.
func Tree(p *studyplan.StudyPlan) Plan {
	out := Plan{
		ID:               p.ID,
		Title:            p.Title,
		Summary:          p.Summary,
		Status:           p.Status,
		StartDate:        p.StartDate,
		EndDate:          p.EndDate,
		TotalDays:        p.TotalDays,
		GenerationStatus: p.GenerationStatus,
		JobID:            p.JobID,
		LastError:        p.LastError,
		Outline:          p.Metadata.Data().Schema,
		Documents:        make([]Document, 0, len(p.RagDocuments)),
		Weeks:            make([]Week, 0, len(p.Weeks)),
		GeneratedAt:      p.GeneratedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	for _, d := range p.RagDocuments {
		out.Documents = append(out.Documents, Document{ID: d.ID, Title: d.Title})
	}
	byWeek := map[uuid.UUID][]Day{}
	for i := range p.Days {
		d := DayOf(&p.Days[i])
		if p.Days[i].WeekID == nil {
			out.UnscheduledDays = append(out.UnscheduledDays, d)
			continue
		}
		byWeek[*p.Days[i].WeekID] = append(byWeek[*p.Days[i].WeekID], d)
	}
	for _, w := range p.Weeks {
		days := byWeek[w.ID]
		if days == nil {
			days = []Day{}
		}
		out.Weeks = append(out.Weeks, Week{
			ID:        w.ID,
			Index:     w.WeekIndex,
			Title:     w.Title,
			Focus:     w.Focus,
			StartDate: w.StartDate,
			EndDate:   w.EndDate,
			Status:    w.Status,
			Days:      days,
		})
	}
	return out
}

// DayOf renders a day with whatever tasks are preloaded on it.
func DayOf(d *studyplan.StudyDay) Day {
	out := Day{
		ID:            d.ID,
		Index:         d.DayIndex,
		ScheduledDate: d.ScheduledDate,
		Title:         d.Title,
		Focus:         d.Focus,
		TargetMinutes: d.TargetMinutes,
		Status:        d.Status,
		Summary:       d.Summary,
		State:         d.State(),
		Tasks:         make([]Task, 0, len(d.Tasks)),
	}
	for i := range d.Tasks {
		out.Tasks = append(out.Tasks, TaskOf(&d.Tasks[i]))
	}
	return out
}

func TaskOf(t *studyplan.StudyTask) Task {
	return Task{
		ID:              t.ID,
		Order:           t.Order,
		Type:            t.TaskType,
		Status:          t.Status,
		Title:           t.Title,
		Description:     t.Description,
		DurationMinutes: t.DurationMinutes,
		Resources:       []studyplan.Resource(t.Resources),
		Meta:            t.Metadata.Data(),
		Content:         ContentOf(t.Content()),
	}
}

// ContentOf flattens a content variant into a map tagged with content_type.
// A task without content yields nil.
func ContentOf(c studyplan.Content) map[string]any {
	if c == nil {
		return nil
	}
	out := map[string]any{"content_type": c.ContentType()}
	switch v := c.(type) {
	case *studyplan.LessonContent:
		out["summary"] = v.Summary
		out["body"] = v.Body
		out["key_points"] = v.KeyPoints
		out["source_refs"] = v.SourceRefs
	case *studyplan.ReadingContent:
		out["overview"] = v.Overview
		out["instructions"] = v.Instructions
		out["resources"] = v.Resources
		out["generated_text"] = v.GeneratedText
	case *studyplan.PracticeContent:
		out["prompt"] = v.Prompt
		out["expected_output"] = v.ExpectedOutput
		out["rubric"] = v.Rubric
		out["hints"] = v.Hints
	case *studyplan.ProjectContent:
		out["brief"] = v.Brief
		out["deliverables"] = v.Deliverables
		out["evaluation"] = v.Evaluation
		out["resources"] = v.Resources
	case *studyplan.ReflectionContent:
		out["prompt"] = v.Prompt
		out["guidance"] = v.Guidance
	case *studyplan.ReviewSessionContent:
		out["topics"] = v.Topics
		out["strategy"] = v.Strategy
		out["follow_up"] = v.FollowUp
	case *studyplan.FlashcardSet:
		out["title"] = v.Title
		out["description"] = v.Description
		out["tags"] = v.Tags
		out["cards"] = v.Cards
	case *studyplan.Assessment:
		out["title"] = v.Title
		out["description"] = v.Description
		out["assessment_type"] = v.AssessmentType
		out["passing_score"] = v.PassingScore
		out["time_limit_minutes"] = v.TimeLimitMinutes
		out["metadata"] = v.Metadata
		out["items"] = v.Items
	}
	return out
}
