package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
)

func testProfile() *studyplan.UserProfile {
	return &studyplan.UserProfile{
		Persona:            studyplan.PersonaStudent,
		Goal:               "ENEM",
		WeeklyTimeHours:    20,
		Interests:          datatypes.JSONSlice[string]{"biologia", "quimica"},
		PreferencesFormats: datatypes.JSONSlice[string]{"video"},
	}
}

func TestOutlinePromptCarriesProfileAndDocuments(t *testing.T) {
	p, err := Build(PromptOutline, OutlineInput(testProfile(), "", nil, nil))
	require.NoError(t, err)

	assert.Equal(t, "outline", p.Name)
	assert.Equal(t, "study_plan_outline", p.SchemaName)
	assert.Equal(t, SystemPrompt, p.System)
	assert.Contains(t, p.User, "ETAPA: OUTLINE")
	assert.Contains(t, p.User, "- Objetivo: ENEM")
	assert.Contains(t, p.User, "- Interesses: biologia, quimica")
	assert.Contains(t, p.User, "Objetivo atual: ENEM")
	assert.Contains(t, p.User, noDocuments)
	assert.NotContains(t, p.User, "Trechos relevantes")
	assert.Contains(t, p.Schema["required"], "plan")
}

func TestOutlinePromptGoalOverrideAndExcerpts(t *testing.T) {
	docs := []studyplan.Document{{Title: "Apostila"}}
	p, err := Build(PromptOutline, OutlineInput(testProfile(), "Fuvest", docs, []Excerpt{{Text: "celulas"}}))
	require.NoError(t, err)
	assert.Contains(t, p.User, "Objetivo atual: Fuvest")
	assert.Contains(t, p.User, "- Apostila (")
	assert.Contains(t, p.User, "[1] celulas")
}

func TestOutlinePromptRequiresUserContext(t *testing.T) {
	_, err := Build(PromptOutline, Input{})
	require.Error(t, err)
}

func TestSectionPromptFallsBackToBareID(t *testing.T) {
	p, err := Build(PromptSectionTasks, SectionTasksInput("s9", nil, nil, nil, nil))
	require.NoError(t, err)
	assert.Contains(t, p.User, "Secao alvo: s9")
	assert.Contains(t, p.User, "Tarefas existentes na secao: []")

	sec := &studyplan.Section{ID: "s1", Title: "Biologia", Milestone: "Celulas"}
	p, err = Build(PromptSectionTasks, SectionTasksInput("s1", sec, []TaskRef{{ID: "t1", Title: "Quiz"}}, nil, nil))
	require.NoError(t, err)
	assert.Contains(t, p.User, `"milestone":"Celulas"`)
	assert.Contains(t, p.User, `"title":"Quiz"`)
}

func TestDayPromptOmitsUnknownSectionContext(t *testing.T) {
	day := &studyplan.StudyDay{
		DayIndex: 3,
		Title:    "Dia 3",
		Metadata: datatypes.NewJSONType(studyplan.DayGenerationState{SectionID: "missing"}),
	}
	p, err := Build(PromptDay, DayInput(DayContext{Profile: testProfile(), Plan: &studyplan.StudyPlan{Title: "ENEM"}, Day: day}))
	require.NoError(t, err)
	assert.Contains(t, p.User, "Secao alvo: missing")
	assert.Contains(t, p.User, "Dia indexado: 3")
	assert.Contains(t, p.User, "Prerequisitos do dia: []")
	assert.NotContains(t, p.User, "Metas da secao")
	assert.NotContains(t, p.User, "Criterios de liberacao")
}

func TestDayPromptIncludesKnownSection(t *testing.T) {
	day := &studyplan.StudyDay{
		DayIndex: 1,
		Metadata: datatypes.NewJSONType(studyplan.DayGenerationState{SectionID: "s1"}),
	}
	sec := &studyplan.Section{ID: "s1", Title: "Bio", SuccessMetrics: []string{"80% no quiz"}}
	p, err := Build(PromptDay, DayInput(DayContext{Profile: testProfile(), Day: day, Section: sec}))
	require.NoError(t, err)
	assert.Contains(t, p.User, `Metas da secao: ["80% no quiz"]`)
}

func TestFingerprintStable(t *testing.T) {
	in := OutlineInput(testProfile(), "", nil, nil)
	a, err := Build(PromptOutline, in)
	require.NoError(t, err)
	b, err := Build(PromptOutline, in)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestBuildUnknownPrompt(t *testing.T) {
	_, err := Build(PromptName("nope"), Input{})
	assert.Error(t, err)
}
