package payload

import (
	"errors"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/llm"
)

// OutlinePayload is the decoded outline stage response. Raw keeps the whole
// model object for the plan's metadata snapshot.
type OutlinePayload struct {
	Title   string
	Outline studyplan.Outline
	Raw     map[string]any
}

// ParseOutline decodes an outline stage response.
func ParseOutline(resp *llm.Response) (*OutlinePayload, error) {
	raw, err := decodeObject("outline", ExtractText(resp))
	if err != nil {
		return nil, err
	}
	return OutlineFromMap(raw)
}

func OutlineFromMap(raw map[string]any) (*OutlinePayload, error) {
	plan := mapOf(raw["plan"])
	if plan == nil {
		return nil, &MalformedGenerationError{Stage: "outline", Err: errors.New("missing plan object")}
	}
	out := &OutlinePayload{
		Title: str(plan["title"]),
		Raw:   raw,
		Outline: studyplan.Outline{
			Sections:         []studyplan.Section{},
			GlobalGuidelines: stringList(plan["global_guidelines"]),
		},
	}
	for _, item := range list(plan["sections"]) {
		m := mapOf(item)
		if m == nil {
			continue
		}
		out.Outline.Sections = append(out.Outline.Sections, sectionFromMap(m))
	}
	return out, nil
}

func sectionFromMap(m map[string]any) studyplan.Section {
	sec := studyplan.Section{
		ID:                str(m["id"]),
		Title:             str(m["title"]),
		Theme:             str(m["theme"]),
		Milestone:         str(m["milestone"]),
		SuccessMetrics:    stringList(m["success_metrics"]),
		ReleaseCriteria:   stringList(m["release_criteria"]),
		FocusQuestions:    stringList(m["focus_questions"]),
		SuggestedDayCount: SafeInt(m["suggested_day_count"], 0),
		Prerequisites:     stringList(m["prerequisites"]),
		CheckpointPrompt:  str(m["checkpoint_prompt"]),
		TargetMinutes:     SafeInt(m["target_minutes"], 0),
	}
	for _, mat := range list(m["recommended_materials"]) {
		mm := mapOf(mat)
		if mm == nil {
			continue
		}
		sec.RecommendedMaterials = append(sec.RecommendedMaterials, studyplan.Material{
			Title: str(mm["title"]),
			Type:  str(mm["type"]),
			URL:   str(mm["url"]),
			Notes: str(mm["notes"]),
		})
	}
	return sec
}

// TotalDays sums each section's suggested day count, counting absent or
// non-positive values as 1. An outline without sections spans one day.
func TotalDays(o studyplan.Outline) int {
	total := 0
	for _, s := range o.Sections {
		total += max(1, s.SuggestedDayCount)
	}
	if total == 0 {
		return 1
	}
	return total
}
