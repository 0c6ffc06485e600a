// Package studyplantest builds canned model responses for the plan stages.
package studyplantest

import (
	"fmt"

	"github.com/yungbote/studyplan-backend/internal/llm"
	"github.com/yungbote/studyplan-backend/internal/llm/llmtest"
)

// Outline returns an outline response with n sections s1..sn.
func Outline(title string, n int) *llm.Response {
	sections := make([]any, 0, n)
	for i := 1; i <= n; i++ {
		sections = append(sections, map[string]any{
			"id":                  fmt.Sprintf("s%d", i),
			"title":               fmt.Sprintf("Semana %d", i),
			"milestone":           fmt.Sprintf("Marco %d", i),
			"success_metrics":     []any{"acertar 70% do quiz"},
			"release_criteria":    []any{"concluir tarefas"},
			"focus_questions":     []any{"o que ficou dificil?"},
			"suggested_day_count": 1,
			"recommended_materials": []any{
				map[string]any{"title": "Apostila", "type": "book"},
			},
		})
	}
	return llmtest.JSON(map[string]any{
		"plan": map[string]any{
			"title":             title,
			"sections":          sections,
			"global_guidelines": []any{"revise toda semana"},
		},
	})
}

func task(sectionID, title string) map[string]any {
	return map[string]any{
		"section_id": sectionID,
		"type":       "lesson",
		"title":      title,
		"content": map[string]any{
			"summary_markdown": "Resumo de " + title,
			"body_markdown":    "# " + title,
		},
	}
}

// Day returns a day stage response with one lesson per title.
func Day(sectionID, dayTitle string, titles ...string) *llm.Response {
	tasks := make([]any, 0, len(titles))
	for _, t := range titles {
		tasks = append(tasks, task(sectionID, t))
	}
	return llmtest.JSON(map[string]any{
		"day":   map[string]any{"title": dayTitle, "focus": "Foco " + dayTitle, "target_minutes": 60},
		"tasks": tasks,
	})
}

// Tasks returns a section-tasks stage response with one lesson per title.
func Tasks(sectionID string, titles ...string) *llm.Response {
	tasks := make([]any, 0, len(titles))
	for _, t := range titles {
		tasks = append(tasks, task(sectionID, t))
	}
	return llmtest.JSON(map[string]any{"tasks": tasks})
}
