package view

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
)

func TestSummarizeCurrentWeek(t *testing.T) {
	p := &studyplan.StudyPlan{
		ID:    uuid.New(),
		Title: "ENEM",
		Weeks: []studyplan.StudyWeek{
			{Title: "Semana 1", Status: studyplan.WeekStatusActive},
			{Title: "Semana 2", Status: studyplan.WeekStatusPending},
		},
	}
	s := Summarize(p)
	assert.Equal(t, "Semana 1 (active)", s.CurrentWeek)
	assert.Equal(t, 2, s.WeekCount)

	assert.Empty(t, Summarize(&studyplan.StudyPlan{}).CurrentWeek)
}

func TestTreeGroupsDaysAndTagsContent(t *testing.T) {
	weekID := uuid.New()
	p := &studyplan.StudyPlan{
		ID:    uuid.New(),
		Weeks: []studyplan.StudyWeek{{ID: weekID, WeekIndex: 1, Title: "Semana 1"}, {ID: uuid.New(), WeekIndex: 2}},
		Days: []studyplan.StudyDay{
			{
				ID: uuid.New(), WeekID: &weekID, DayIndex: 1,
				Metadata: datatypes.NewJSONType(studyplan.DayGenerationState{SectionID: "s1"}),
				Tasks: []studyplan.StudyTask{
					{Title: "Aula", TaskType: studyplan.TaskTypeLesson, Lesson: &studyplan.LessonContent{Summary: "resumo"}},
					{Title: "Livre", TaskType: studyplan.TaskTypeOther},
				},
			},
			{ID: uuid.New(), DayIndex: 2},
		},
	}
	tree := Tree(p)
	require.Len(t, tree.Weeks, 2)
	require.Len(t, tree.Weeks[0].Days, 1)
	assert.NotNil(t, tree.Weeks[1].Days)
	assert.Empty(t, tree.Weeks[1].Days)
	assert.Len(t, tree.UnscheduledDays, 1)

	day := tree.Weeks[0].Days[0]
	assert.Equal(t, "s1", day.State.SectionID)
	require.Len(t, day.Tasks, 2)
	assert.Equal(t, studyplan.ContentLesson, day.Tasks[0].Content["content_type"])
	assert.Equal(t, "resumo", day.Tasks[0].Content["summary"])
	assert.Nil(t, day.Tasks[1].Content)
}

func TestContentOfAssessment(t *testing.T) {
	c := ContentOf(&studyplan.Assessment{Title: "Simulado", AssessmentType: studyplan.AssessmentTest})
	assert.Equal(t, studyplan.ContentAssessment, c["content_type"])
	assert.Equal(t, studyplan.AssessmentTest, c["assessment_type"])
}
