package payload

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/llm"
)

func TestExtractTextFallsBackToFirstCandidate(t *testing.T) {
	resp := &llm.Response{Candidates: []llm.Candidate{{Content: llm.Message{
		Role:  llm.RoleModel,
		Parts: []llm.Part{{Text: `{"plan":`}, {Text: `{"sections":[]}}`}},
	}}}}
	assert.Equal(t, "{\"plan\":\n{\"sections\":[]}}", ExtractText(resp))

	resp.Text = `{"tasks":[]}`
	assert.Equal(t, `{"tasks":[]}`, ExtractText(resp))
	assert.Equal(t, "", ExtractText(nil))
}

func TestParseOutlineMalformed(t *testing.T) {
	_, err := ParseOutline(&llm.Response{Text: "not json"})
	var mge *MalformedGenerationError
	require.True(t, errors.As(err, &mge))
	assert.Equal(t, "outline", mge.Stage)

	_, err = ParseOutline(&llm.Response{Text: `{"other":1}`})
	require.True(t, errors.As(err, &mge))
}

func TestParseOutlineSections(t *testing.T) {
	resp := &llm.Response{Text: "```json\n" + `{"plan":{"sections":[
		{"id":"s1","title":"Bio","milestone":"Celulas","suggested_day_count":3,
		 "recommended_materials":[{"title":"Khan","url":"http://k"}]},
		{"id":"s2","title":"Quim","milestone":"Ligacoes","suggested_day_count":"2"},
		{"id":"s3","title":"Fis","milestone":"Cinematica"}
	],"global_guidelines":["revisar"]}}` + "\n```"}
	out, err := ParseOutline(resp)
	require.NoError(t, err)
	require.Len(t, out.Outline.Sections, 3)
	assert.Equal(t, 3, out.Outline.Sections[0].SuggestedDayCount)
	assert.Equal(t, 2, out.Outline.Sections[1].SuggestedDayCount)
	assert.Equal(t, "Khan", out.Outline.Sections[0].RecommendedMaterials[0].Title)
	assert.Equal(t, []string{"revisar"}, out.Outline.GlobalGuidelines)
	assert.Equal(t, 6, TotalDays(out.Outline))
}

func TestTotalDays(t *testing.T) {
	cases := []struct {
		name string
		in   []int
		want int
	}{
		{"none", nil, 1},
		{"all absent", []int{0, 0, 0, 0}, 4},
		{"negative counts as one", []int{-2, 3}, 4},
		{"sum", []int{2, 2, 1}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var o studyplan.Outline
			for _, n := range tc.in {
				o.Sections = append(o.Sections, studyplan.Section{SuggestedDayCount: n})
			}
			assert.Equal(t, tc.want, TotalDays(o))
		})
	}
}

func TestMapTaskType(t *testing.T) {
	cases := map[string]string{
		"flashcards":        studyplan.TaskTypeFlashcards,
		"QUIZ":              studyplan.TaskTypeAssessment,
		"test":              studyplan.TaskTypeAssessment,
		"lecture":           studyplan.TaskTypeLesson,
		"summary":           studyplan.TaskTypeLesson,
		"project":           studyplan.TaskTypeProject,
		"practice":          studyplan.TaskTypePractice,
		"review":            studyplan.TaskTypeReview,
		"external_resource": studyplan.TaskTypeOther,
		"":                  studyplan.TaskTypeOther,
		"dance":             studyplan.TaskTypeOther,
	}
	for raw, want := range cases {
		assert.Equal(t, want, MapTaskType(raw), raw)
	}
}

func TestResourcesOnlyForExternalResource(t *testing.T) {
	ext := TaskFromMap(map[string]any{
		"type":  "external_resource",
		"title": "Video aula",
		"content": map[string]any{
			"url":                     "https://example.com/v",
			"fallback_if_unavailable": "Use o livro",
		},
	})
	assert.Equal(t, []studyplan.Resource{
		{URL: "https://example.com/v", Title: "Video aula"},
		{Fallback: "Use o livro"},
	}, ext.Resources())

	lesson := TaskFromMap(map[string]any{"type": "lecture", "content": map[string]any{"url": "https://x"}})
	assert.Empty(t, lesson.Resources())
}

func TestParseDayDefaults(t *testing.T) {
	resp := &llm.Response{Text: `{"day":{"title":"Dia 1","target_minutes":"60"},"tasks":[
		{"id":"t1","section_id":"s1","type":"quiz","title":"Quiz 1","content":{"items":[
			{"type":"mcq","question":"2+2?","choices":[{"label":"A","text":"4"},{"label":"B","text":"5"}],"answer":"A","explanation":"soma","source":"livro"}
		],"passing_score":0.7}},
		{"id":"t2","section_id":"s1","type":"flashcards","title":"Cards","content":{"cards":[{"front":"F","back":"B","hint":"h"}]}}
	]}`}
	day, err := ParseDay(resp)
	require.NoError(t, err)
	assert.Equal(t, "Dia 1", day.Day.Title)
	require.NotNil(t, day.Day.TargetMinutes)
	assert.Equal(t, 60, *day.Day.TargetMinutes)
	require.Len(t, day.Tasks, 2)
	assert.Nil(t, day.Tasks[0].Difficulty)

	quiz, ok := BuildContent(day.Tasks[0]).(*studyplan.Assessment)
	require.True(t, ok)
	assert.Equal(t, studyplan.AssessmentQuiz, quiz.AssessmentType)
	assert.Nil(t, quiz.TimeLimitMinutes)
	require.NotNil(t, quiz.PassingScore)
	assert.InDelta(t, 0.7, *quiz.PassingScore, 1e-9)
	assert.NotContains(t, quiz.Metadata, "items")
	require.Len(t, quiz.Items, 1)
	item := quiz.Items[0]
	assert.Equal(t, "2+2?", item.Prompt)
	assert.Equal(t, 1, item.Difficulty)
	assert.Equal(t, "A", item.Answer["answer"])
	assert.Equal(t, map[string]any{"source": "livro"}, map[string]any(item.Metadata))

	cards, ok := BuildContent(day.Tasks[1]).(*studyplan.FlashcardSet)
	require.True(t, ok)
	assert.Equal(t, "Cards", cards.Title)
	require.Len(t, cards.Cards, 1)
	assert.Equal(t, []string{"h"}, []string(cards.Cards[0].Hints))
	assert.Equal(t, 1, cards.Cards[0].Difficulty)
}

func TestBuildContentVariants(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"lesson", studyplan.ContentLesson},
		{"lecture", studyplan.ContentLesson},
		{"summary", studyplan.ContentLesson},
		{"reading", studyplan.ContentReading},
		{"external_resource", studyplan.ContentReading},
		{"practice", studyplan.ContentPractice},
		{"project", studyplan.ContentProject},
		{"reflection", studyplan.ContentReflection},
		{"review", studyplan.ContentReview},
		{"flashcards", studyplan.ContentFlashcards},
		{"quiz", studyplan.ContentAssessment},
		{"test", studyplan.ContentAssessment},
	}
	for _, tc := range cases {
		c := BuildContent(Task{Type: tc.raw, Title: "T", Description: "D"})
		require.NotNil(t, c, tc.raw)
		assert.Equal(t, tc.want, c.ContentType(), tc.raw)
	}
	assert.Nil(t, BuildContent(Task{Type: "dance"}))
	assert.Nil(t, BuildContent(Task{}))
}

func TestBuildContentFallbacks(t *testing.T) {
	lesson := BuildContent(Task{Type: "summary", Description: "desc", Content: map[string]any{
		"body": "corpo", "takeaways": []any{"a", "b"},
	}}).(*studyplan.LessonContent)
	assert.Equal(t, "desc", lesson.Summary)
	assert.Equal(t, "corpo", lesson.Body)
	assert.Len(t, lesson.KeyPoints, 2)
	assert.NotNil(t, lesson.SourceRefs)

	practice := BuildContent(Task{Type: "practice", Title: "Exercicio"}).(*studyplan.PracticeContent)
	assert.Equal(t, "Exercicio", practice.Prompt)
	assert.NotNil(t, practice.Rubric)

	reading := BuildContent(Task{Type: "external_resource", Content: map[string]any{
		"url": "https://x", "how_to_use": "assista",
	}}).(*studyplan.ReadingContent)
	assert.Equal(t, "assista", reading.Instructions)
	assert.Len(t, reading.Resources, 1)

	test := BuildContent(Task{Type: "test", Content: map[string]any{"time_limit_minutes": 0}}).(*studyplan.Assessment)
	assert.Equal(t, studyplan.AssessmentTest, test.AssessmentType)
	assert.Nil(t, test.TimeLimitMinutes)

	timed := BuildContent(Task{Type: "quiz", Content: map[string]any{"time_limit_minutes": float64(15)}}).(*studyplan.Assessment)
	require.NotNil(t, timed.TimeLimitMinutes)
	assert.Equal(t, 15, *timed.TimeLimitMinutes)
}

func TestTaskMetaDefaults(t *testing.T) {
	meta := TaskFromMap(map[string]any{"id": "t1", "section_id": "s1", "difficulty": float64(3)}).Meta()
	assert.Equal(t, "t1", meta.TaskSchemaID)
	require.NotNil(t, meta.Difficulty)
	assert.Equal(t, 3, *meta.Difficulty)
	assert.Equal(t, []string{}, meta.Prerequisites)
	assert.Equal(t, map[string]any{}, meta.Content)
	assert.Nil(t, meta.ResearchNeeded)
}
