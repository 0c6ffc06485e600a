package payload

import (
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
)

var contentKinds = map[string]string{
	"lesson":            studyplan.ContentLesson,
	"lecture":           studyplan.ContentLesson,
	"summary":           studyplan.ContentLesson,
	"reading":           studyplan.ContentReading,
	"external_resource": studyplan.ContentReading,
	"practice":          studyplan.ContentPractice,
	"project":           studyplan.ContentProject,
	"reflection":        studyplan.ContentReflection,
	"review":            studyplan.ContentReview,
	"flashcards":        studyplan.ContentFlashcards,
	"quiz":              studyplan.ContentAssessment,
	"test":              studyplan.ContentAssessment,
	"assessment":        studyplan.ContentAssessment,
}

// ContentKindFor maps a raw model task type to its content variant, or ""
// when the type carries no structured content.
func ContentKindFor(raw string) string {
	return contentKinds[strings.ToLower(strings.TrimSpace(raw))]
}

// BuildContent derives the typed content record for a generated task, or nil
// when its type has no variant. The result is not yet linked to a task row.
func BuildContent(t Task) studyplan.Content {
	c := t.Content
	if c == nil {
		c = map[string]any{}
	}
	switch ContentKindFor(t.Type) {
	case studyplan.ContentLesson:
		return &studyplan.LessonContent{
			Summary:    orDefault(first(c, "summary_markdown", "summary"), t.Description),
			Body:       first(c, "body_markdown", "body", "text"),
			KeyPoints:  datatypes.JSONSlice[any](firstList(c, "key_points", "takeaways")),
			SourceRefs: datatypes.JSONSlice[any](list(c["source_refs"])),
		}
	case studyplan.ContentReading:
		resources := list(c["resources"])
		if len(resources) == 0 && (str(c["url"]) != "" || str(c["title"]) != "") {
			resources = []any{c}
		}
		return &studyplan.ReadingContent{
			Overview:      orDefault(first(c, "rationale", "overview", "summary_markdown"), t.Description),
			Instructions:  first(c, "how_to_use", "instructions_markdown"),
			Resources:     datatypes.JSONSlice[any](resources),
			GeneratedText: first(c, "body_markdown", "summary_markdown"),
		}
	case studyplan.ContentPractice:
		return &studyplan.PracticeContent{
			Prompt:         orDefault(orDefault(first(c, "prompt_markdown", "prompt"), t.Description), t.Title),
			ExpectedOutput: str(c["expected_output"]),
			Rubric:         datatypes.JSONMap(objectOrEmpty(c["rubric"])),
			Hints:          datatypes.JSONSlice[any](list(c["hints"])),
		}
	case studyplan.ContentProject:
		return &studyplan.ProjectContent{
			Brief:        orDefault(orDefault(first(c, "brief", "brief_markdown"), t.Description), t.Title),
			Deliverables: datatypes.JSONSlice[any](list(c["deliverables"])),
			Evaluation:   datatypes.JSONMap(objectOrEmpty(c["evaluation"])),
			Resources:    datatypes.JSONSlice[any](list(c["resources"])),
		}
	case studyplan.ContentReflection:
		return &studyplan.ReflectionContent{
			Prompt:   orDefault(orDefault(str(c["prompt"]), t.Description), t.Title),
			Guidance: first(c, "guidance", "instructions"),
		}
	case studyplan.ContentReview:
		return &studyplan.ReviewSessionContent{
			Topics:   datatypes.JSONSlice[any](list(c["topics"])),
			Strategy: first(c, "strategy_markdown", "strategy", "instructions"),
			FollowUp: datatypes.JSONSlice[any](list(c["follow_up"])),
		}
	case studyplan.ContentFlashcards:
		return buildFlashcards(t, c)
	case studyplan.ContentAssessment:
		return buildAssessment(t, c)
	}
	return nil
}

func buildFlashcards(t Task, c map[string]any) *studyplan.FlashcardSet {
	set := &studyplan.FlashcardSet{
		Title:       orDefault(str(c["title"]), t.Title),
		Description: orDefault(str(c["description"]), t.Description),
		Tags:        datatypes.JSONSlice[string](stringList(c["tags"])),
		Cards:       []studyplan.Flashcard{},
	}
	for i, it := range list(c["cards"]) {
		card := mapOf(it)
		if card == nil {
			continue
		}
		hints := stringList(card["hints"])
		if len(hints) == 0 {
			hints = stringList(card["hint"])
		}
		set.Cards = append(set.Cards, studyplan.Flashcard{
			Position:   i,
			Front:      str(card["front"]),
			Back:       str(card["back"]),
			Hints:      datatypes.JSONSlice[string](hints),
			Tags:       datatypes.JSONSlice[string](stringList(card["tags"])),
			Difficulty: SafeInt(card["difficulty"], 1),
		})
	}
	return set
}

var itemKnownKeys = []string{"type", "question", "prompt", "choices", "answer", "explanation", "difficulty"}

func buildAssessment(t Task, c map[string]any) *studyplan.Assessment {
	kind := studyplan.AssessmentQuiz
	if t.Type == "test" {
		kind = studyplan.AssessmentTest
	}
	var timeLimit *int
	if tl := SafeInt(c["time_limit_minutes"], 0); tl != 0 {
		timeLimit = &tl
	}
	a := &studyplan.Assessment{
		Title:            t.Title,
		Description:      t.Description,
		AssessmentType:   kind,
		PassingScore:     optFloat(c["passing_score"]),
		TimeLimitMinutes: timeLimit,
		Metadata:         datatypes.JSONMap(without(c, "items")),
		Items:            []studyplan.AssessmentItem{},
	}
	for i, it := range list(c["items"]) {
		item := mapOf(it)
		if item == nil {
			continue
		}
		a.Items = append(a.Items, studyplan.AssessmentItem{
			Position:    i,
			ItemType:    orDefault(str(item["type"]), "mcq"),
			Prompt:      first(item, "question", "prompt"),
			Choices:     datatypes.JSONSlice[any](list(item["choices"])),
			Answer:      datatypes.JSONMap{"answer": item["answer"], "explanation": item["explanation"]},
			Explanation: str(item["explanation"]),
			Difficulty:  SafeInt(item["difficulty"], 1),
			Metadata:    datatypes.JSONMap(without(item, itemKnownKeys...)),
		})
	}
	return a
}

func objectOrEmpty(v any) map[string]any {
	if m := mapOf(v); m != nil {
		return m
	}
	return map[string]any{}
}
