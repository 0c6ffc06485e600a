package payload

import (
	"strings"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/llm"
)

// Task is one generated task. Content stays loosely typed because each raw
// type reads a different subset of keys.
type Task struct {
	ID               string
	SectionID        string
	Type             string
	Title            string
	Description      string
	EstimatedTime    int
	Difficulty       *int
	SuggestedOrder   *int
	ResearchNeeded   *bool
	AssessmentTarget string
	Prerequisites    []string
	Dependencies     []string
	Content          map[string]any
}

// DayFields are the day-level values of a day stage response. Nil or empty
// values leave the stored day untouched.
type DayFields struct {
	Title         string
	Focus         string
	Summary       string
	TargetMinutes *int
	Metadata      map[string]any
}

type DayPayload struct {
	Day   DayFields
	Tasks []Task
}

// ParseTasks decodes a section-tasks stage response.
func ParseTasks(resp *llm.Response) ([]Task, error) {
	raw, err := decodeObject("section_tasks", ExtractText(resp))
	if err != nil {
		return nil, err
	}
	return TasksFromList(raw["tasks"]), nil
}

// ParseDay decodes a day stage response.
func ParseDay(resp *llm.Response) (*DayPayload, error) {
	raw, err := decodeObject("day", ExtractText(resp))
	if err != nil {
		return nil, err
	}
	day := mapOf(raw["day"])
	out := &DayPayload{Tasks: TasksFromList(raw["tasks"])}
	if day != nil {
		out.Day = DayFields{
			Title:         str(day["title"]),
			Focus:         str(day["focus"]),
			Summary:       str(day["summary"]),
			TargetMinutes: optInt(day["target_minutes"]),
			Metadata:      mapOf(day["metadata"]),
		}
	}
	return out, nil
}

func TasksFromList(v any) []Task {
	items := list(v)
	out := make([]Task, 0, len(items))
	for _, it := range items {
		m := mapOf(it)
		if m == nil {
			continue
		}
		out = append(out, TaskFromMap(m))
	}
	return out
}

func TaskFromMap(m map[string]any) Task {
	content := mapOf(m["content"])
	if content == nil {
		content = map[string]any{}
	}
	return Task{
		ID:               str(m["id"]),
		SectionID:        str(m["section_id"]),
		Type:             strings.ToLower(strings.TrimSpace(str(m["type"]))),
		Title:            strings.TrimSpace(str(m["title"])),
		Description:      str(m["description"]),
		EstimatedTime:    SafeInt(m["estimated_time"], 0),
		Difficulty:       optInt(m["difficulty"]),
		SuggestedOrder:   optInt(m["suggested_order"]),
		ResearchNeeded:   optBool(m["research_needed"]),
		AssessmentTarget: str(m["assessment_target"]),
		Prerequisites:    stringList(m["prerequisites"]),
		Dependencies:     stringList(m["dependencies"]),
		Content:          content,
	}
}

var taskTypes = map[string]string{
	"flashcards": studyplan.TaskTypeFlashcards,
	"quiz":       studyplan.TaskTypeAssessment,
	"test":       studyplan.TaskTypeAssessment,
	"assessment": studyplan.TaskTypeAssessment,
	"lecture":    studyplan.TaskTypeLesson,
	"summary":    studyplan.TaskTypeLesson,
	"lesson":     studyplan.TaskTypeLesson,
	"project":    studyplan.TaskTypeProject,
	"practice":   studyplan.TaskTypePractice,
	"review":     studyplan.TaskTypeReview,
}

// MapTaskType maps a raw model type onto the stored task_type. Unknown and
// empty types map to "other".
func MapTaskType(raw string) string {
	if t, ok := taskTypes[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return studyplan.TaskTypeOther
}

// Resources returns the resource entries a task contributes. Only
// external_resource tasks carry any.
func (t Task) Resources() []studyplan.Resource {
	out := []studyplan.Resource{}
	if t.Type != "external_resource" {
		return out
	}
	if url := str(t.Content["url"]); url != "" {
		out = append(out, studyplan.Resource{URL: url, Title: orDefault(str(t.Content["title"]), t.Title)})
	}
	if fb := str(t.Content["fallback_if_unavailable"]); fb != "" {
		out = append(out, studyplan.Resource{Fallback: fb})
	}
	return out
}

// Meta builds the task's metadata side-record.
func (t Task) Meta() studyplan.TaskMeta {
	prereqs := t.Prerequisites
	if prereqs == nil {
		prereqs = []string{}
	}
	deps := t.Dependencies
	if deps == nil {
		deps = []string{}
	}
	content := t.Content
	if content == nil {
		content = map[string]any{}
	}
	return studyplan.TaskMeta{
		SectionID:        t.SectionID,
		TaskSchemaID:     t.ID,
		Difficulty:       t.Difficulty,
		ResearchNeeded:   t.ResearchNeeded,
		AssessmentTarget: t.AssessmentTarget,
		Prerequisites:    prereqs,
		Dependencies:     deps,
		Content:          content,
	}
}
