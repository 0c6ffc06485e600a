package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
)

const noDocuments = "Nenhum material proprio enviado pelo usuario."

// TaskRef is the compact view of an existing task shown to the model so it
// avoids repeating work.
type TaskRef struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Difficulty *int   `json:"difficulty"`
}

// Excerpt is one retrieved passage from the learner's materials.
type Excerpt struct {
	Text  string
	Score float64
}

func FormatUserContext(p *studyplan.UserProfile) string {
	if p == nil {
		return ""
	}
	deadline := ""
	if p.Deadline != nil {
		deadline = p.Deadline.Format("2006-01-02")
	}
	lines := []string{
		"- Persona: " + p.Persona,
		"- Objetivo: " + p.Goal,
		"- Prazo: " + deadline,
		fmt.Sprintf("- Tempo semanal (h): %d", p.WeeklyTimeHours),
		"- Rotina: " + p.StudyRoutine,
		"- Background: " + p.BackgroundLevel,
		"- Interesses: " + strings.Join(p.Interests, ", "),
		"- Preferencias de formato: " + strings.Join(p.PreferencesFormats, ", "),
		"- Idioma: " + p.PreferencesLanguage,
	}
	return strings.Join(lines, "\n")
}

func FormatDocuments(docs []studyplan.Document) string {
	if len(docs) == 0 {
		return noDocuments
	}
	lines := make([]string, 0, len(docs))
	for _, d := range docs {
		lines = append(lines, fmt.Sprintf("- %s (%s)", d.Title, d.ID))
	}
	return strings.Join(lines, "\n")
}

func FormatExcerpts(hits []Excerpt) string {
	if len(hits) == 0 {
		return ""
	}
	var b strings.Builder
	for i, h := range hits {
		text := strings.TrimSpace(h.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%d] %s\n", i+1, text)
	}
	return strings.TrimSpace(b.String())
}

func FormatTasks(refs []TaskRef) string {
	if refs == nil {
		refs = []TaskRef{}
	}
	return toJSON(refs)
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// OutlineInput assembles the outline stage input. goalOverride replaces the
// profile goal when set.
func OutlineInput(p *studyplan.UserProfile, goalOverride string, docs []studyplan.Document, excerpts []Excerpt) Input {
	goal := strings.TrimSpace(goalOverride)
	if goal == "" && p != nil {
		goal = p.Goal
	}
	return Input{
		UserContext: FormatUserContext(p),
		Goal:        goal,
		Documents:   FormatDocuments(docs),
		Excerpts:    FormatExcerpts(excerpts),
	}
}

// SectionTasksInput assembles the section-tasks stage input. section is nil
// when the id is not present in the stored outline.
func SectionTasksInput(sectionID string, section *studyplan.Section, existing []TaskRef, docs []studyplan.Document, excerpts []Excerpt) Input {
	in := Input{
		SectionID:    sectionID,
		SectionTasks: FormatTasks(existing),
		Documents:    FormatDocuments(docs),
		Excerpts:     FormatExcerpts(excerpts),
	}
	if section != nil {
		in.SectionJSON = toJSON(section)
	}
	return in
}

type DayContext struct {
	Profile      *studyplan.UserProfile
	Plan         *studyplan.StudyPlan
	Day          *studyplan.StudyDay
	Section      *studyplan.Section
	DayTasks     []TaskRef
	SectionTasks []TaskRef
	Documents    []studyplan.Document
	Excerpts     []Excerpt
}

// DayInput assembles the day stage input. Section context lines are left out
// entirely when the day's section is unknown.
func DayInput(c DayContext) Input {
	state := c.Day.State()
	prereqs := state.Prerequisites
	if prereqs == nil {
		prereqs = []string{}
	}
	in := Input{
		UserContext:      FormatUserContext(c.Profile),
		Documents:        FormatDocuments(c.Documents),
		Excerpts:         FormatExcerpts(c.Excerpts),
		SectionID:        state.SectionID,
		DayIndex:         c.Day.DayIndex,
		DayTitle:         c.Day.Title,
		DayFocus:         c.Day.Focus,
		DayTargetMinutes: c.Day.TargetMinutes,
		DayPrerequisites: toJSON(prereqs),
		DayTasks:         FormatTasks(c.DayTasks),
		SectionTasks:     FormatTasks(c.SectionTasks),
	}
	if c.Plan != nil {
		in.PlanTitle = c.Plan.Title
	}
	if state.LastResult != nil {
		in.LastResult = toJSON(state.LastResult)
	}
	if s := c.Section; s != nil {
		in.SectionJSON = toJSON(s)
		in.SectionMetrics = toJSON(s.SuccessMetrics)
		in.ReleaseCriteria = toJSON(s.ReleaseCriteria)
		in.FocusQuestions = toJSON(s.FocusQuestions)
		in.SectionMaterials = toJSON(s.RecommendedMaterials)
	}
	return in
}
