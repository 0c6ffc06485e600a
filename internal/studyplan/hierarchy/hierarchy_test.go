package hierarchy

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	"github.com/yungbote/studyplan-backend/internal/data/repos/testutil"
	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/studyplan/payload"
)

func ptr[T any](v T) *T { return &v }

func testOutline() *studyplan.Outline {
	return &studyplan.Outline{Sections: []studyplan.Section{
		{ID: "s1", Title: "Funcoes", Milestone: "Dominar funcoes", SuggestedDayCount: 2},
		{ID: "s2", Title: "Geometria", Milestone: "Areas e volumes"},
	}}
}

func setup(t *testing.T) (*gorm.DB, *Repository, dbctx.Context) {
	t.Helper()
	db := testutil.DB(t)
	return db, New(db, testutil.Logger(t)), dbctx.Context{Ctx: context.Background()}
}

func dayTasks(t *testing.T, db *gorm.DB, dayID uuid.UUID) []studyplan.StudyTask {
	t.Helper()
	var out []studyplan.StudyTask
	require.NoError(t, db.Where("day_id = ?", dayID).Order("task_order ASC").Find(&out).Error)
	return out
}

func firstDay(t *testing.T, db *gorm.DB, planID uuid.UUID) studyplan.StudyDay {
	t.Helper()
	var day studyplan.StudyDay
	require.NoError(t, db.Where("plan_id = ?", planID).Order("day_index ASC").First(&day).Error)
	return day
}

func titles(tasks []studyplan.StudyTask) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestPersistPlanFromPayloadCreatesWeeksAndDays(t *testing.T) {
	db, repo, dbc := setup(t)
	profile := testutil.SeedProfile(t, dbc.Ctx, db, "ENEM 2026")
	profile.WeeklyTimeHours = 6

	out := &payload.OutlinePayload{Outline: *testOutline(), Raw: map[string]any{"plan": map[string]any{}}}
	plan, err := repo.PersistPlanFromPayload(dbc, OutlineWrite{Profile: profile, Outline: out})
	require.NoError(t, err)

	assert.Equal(t, "ENEM 2026", plan.Title)
	assert.Equal(t, studyplan.PlanStatusActive, plan.Status)
	assert.Equal(t, studyplan.GenerationSucceeded, plan.GenerationStatus)
	assert.Equal(t, 3, plan.TotalDays)

	var weeks []studyplan.StudyWeek
	require.NoError(t, db.Where("plan_id = ?", plan.ID).Order("week_index").Find(&weeks).Error)
	require.Len(t, weeks, 2)
	assert.Equal(t, "Week 1", weeks[0].Title)
	assert.Equal(t, studyplan.WeekStatusActive, weeks[0].Status)
	assert.Equal(t, studyplan.WeekStatusPending, weeks[1].Status)

	var days []studyplan.StudyDay
	require.NoError(t, db.Where("plan_id = ?", plan.ID).Order("day_index").Find(&days).Error)
	require.Len(t, days, 2)
	assert.Equal(t, "Funcoes", days[0].Title)
	assert.Equal(t, "Dominar funcoes", days[0].Focus)
	assert.Equal(t, "s1", days[0].State().SectionID)
	assert.Equal(t, 2, days[0].State().SuggestedDayCount)
	// 6h * 60 / 3 days = 120
	assert.Equal(t, 120, days[0].TargetMinutes)
	require.NotNil(t, days[1].WeekID)
	assert.Equal(t, weeks[1].ID, *days[1].WeekID)

	stored := plan.Metadata.Data()
	require.NotNil(t, stored.Schema)
	assert.Len(t, stored.Schema.Sections, 2)
}

func TestPersistPlanFromPayloadRegenerationReplacesCalendar(t *testing.T) {
	db, repo, dbc := setup(t)
	profile := testutil.SeedProfile(t, dbc.Ctx, db, "Calculo")

	plan, err := repo.PersistPlanFromPayload(dbc, OutlineWrite{Profile: profile, Outline: &payload.OutlinePayload{Outline: *testOutline()}})
	require.NoError(t, err)
	day := firstDay(t, db, plan.ID)
	_, err = repo.PersistTasksForDay(dbc, day.ID, &payload.DayPayload{Tasks: []payload.Task{{Title: "Quiz", Type: "quiz", Content: map[string]any{
		"items": []any{map[string]any{"question": "1+1?", "choices": []any{"1", "2"}, "answer": "2"}},
	}}}}, true)
	require.NoError(t, err)
	var items int64
	require.NoError(t, db.Model(&studyplan.AssessmentItem{}).Count(&items).Error)
	require.EqualValues(t, 1, items)

	smaller := &payload.OutlinePayload{Outline: studyplan.Outline{Sections: []studyplan.Section{{ID: "x", Title: "Limites", TargetMinutes: 30}}}}
	again, err := repo.PersistPlanFromPayload(dbc, OutlineWrite{Profile: profile, Plan: plan, Title: "Novo titulo", Outline: smaller})
	require.NoError(t, err)
	assert.Equal(t, plan.ID, again.ID)
	assert.Equal(t, "Novo titulo", again.Title)
	assert.Equal(t, 1, again.TotalDays)

	var weekCount, dayCount, taskCount, itemCount int64
	require.NoError(t, db.Model(&studyplan.StudyWeek{}).Where("plan_id = ?", plan.ID).Count(&weekCount).Error)
	require.NoError(t, db.Model(&studyplan.StudyDay{}).Where("plan_id = ?", plan.ID).Count(&dayCount).Error)
	require.NoError(t, db.Model(&studyplan.StudyTask{}).Count(&taskCount).Error)
	require.NoError(t, db.Model(&studyplan.AssessmentItem{}).Count(&itemCount).Error)
	assert.EqualValues(t, 1, weekCount)
	assert.EqualValues(t, 1, dayCount)
	assert.Zero(t, taskCount)
	assert.Zero(t, itemCount)

	d := firstDay(t, db, plan.ID)
	assert.Equal(t, 30, d.TargetMinutes)
}

func TestPersistPlanFromPayloadWithoutPlanReusesCurrent(t *testing.T) {
	db, repo, dbc := setup(t)
	profile := testutil.SeedProfile(t, dbc.Ctx, db, "ENEM")

	first, err := repo.PersistPlanFromPayload(dbc, OutlineWrite{Profile: profile, Outline: &payload.OutlinePayload{Outline: *testOutline()}})
	require.NoError(t, err)
	second, err := repo.PersistPlanFromPayload(dbc, OutlineWrite{Profile: profile, Outline: &payload.OutlinePayload{Outline: *testOutline()}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var plans int64
	require.NoError(t, db.Model(&studyplan.StudyPlan{}).Where("user_profile_id = ?", profile.ID).Count(&plans).Error)
	assert.EqualValues(t, 1, plans)

	require.NoError(t, db.Model(&studyplan.StudyPlan{}).Where("id = ?", first.ID).Update("status", studyplan.PlanStatusArchived).Error)
	third, err := repo.PersistPlanFromPayload(dbc, OutlineWrite{Profile: profile, Outline: &payload.OutlinePayload{Outline: *testOutline()}})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)

	_, err = repo.PersistPlanFromPayload(dbc, OutlineWrite{Profile: &studyplan.UserProfile{ID: uuid.New()}, Outline: &payload.OutlinePayload{Outline: *testOutline()}})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPersistTasksForDayResetIsIdempotent(t *testing.T) {
	db, repo, dbc := setup(t)
	profile := testutil.SeedProfile(t, dbc.Ctx, db, "ENEM")
	plan := testutil.SeedPlan(t, dbc.Ctx, db, profile, testOutline())
	day := firstDay(t, db, plan.ID)

	p := &payload.DayPayload{
		Day: payload.DayFields{Title: "Dia de funcoes", Summary: "resumo", TargetMinutes: ptr(90), Metadata: map[string]any{"notes": "x"}},
		Tasks: []payload.Task{
			{Title: "Aula", Type: "lecture", Content: map[string]any{"summary": "s", "body": "b"}},
			{Title: "Cartoes", Type: "flashcards", Content: map[string]any{"cards": []any{map[string]any{"front": "f", "back": "b"}}}},
			{Title: "Aula", Type: "practice"},
		},
	}
	_, err := repo.PersistTasksForDay(dbc, day.ID, p, true)
	require.NoError(t, err)
	first := dayTasks(t, db, day.ID)

	_, err = repo.PersistTasksForDay(dbc, day.ID, p, true)
	require.NoError(t, err)
	second := dayTasks(t, db, day.ID)

	assert.Equal(t, titles(first), titles(second))
	assert.Len(t, second, 3)

	var sets, cards, lessons int64
	require.NoError(t, db.Model(&studyplan.FlashcardSet{}).Count(&sets).Error)
	require.NoError(t, db.Model(&studyplan.Flashcard{}).Count(&cards).Error)
	require.NoError(t, db.Model(&studyplan.LessonContent{}).Count(&lessons).Error)
	assert.EqualValues(t, 1, sets)
	assert.EqualValues(t, 1, cards)
	assert.EqualValues(t, 1, lessons)

	var stored studyplan.StudyDay
	require.NoError(t, db.First(&stored, "id = ?", day.ID).Error)
	assert.Equal(t, "Dia de funcoes", stored.Title)
	assert.Equal(t, "resumo", stored.Summary)
	assert.Equal(t, 90, stored.TargetMinutes)
	assert.Equal(t, studyplan.ItemStatusReady, stored.Status)
	assert.Equal(t, "s1", stored.State().SectionID)
	assert.Equal(t, "x", stored.State().Extra["notes"])
}

func TestPersistTasksForDayKeepsRecordedResult(t *testing.T) {
	db, repo, dbc := setup(t)
	profile := testutil.SeedProfile(t, dbc.Ctx, db, "ENEM")
	plan, err := repo.PersistPlanFromPayload(dbc, OutlineWrite{Profile: profile, Outline: &payload.OutlinePayload{Outline: *testOutline()}})
	require.NoError(t, err)
	day := firstDay(t, db, plan.ID)

	days := repos.NewDayRepo(db, testutil.Logger(t))
	require.NoError(t, days.UpdateState(dbc, day.ID, func(st *studyplan.DayGenerationState) {
		st.LastResult = &studyplan.DayResult{Status: "completed", MinutesSpent: 40}
	}))

	_, err = repo.PersistTasksForDay(dbc, day.ID, &payload.DayPayload{
		Day:   payload.DayFields{Metadata: map[string]any{"checkpoint_prompt": "Revise", "mood": "ok"}},
		Tasks: []payload.Task{{Title: "Aula"}},
	}, true)
	require.NoError(t, err)

	got := firstDay(t, db, plan.ID).State()
	require.NotNil(t, got.LastResult)
	assert.Equal(t, "completed", got.LastResult.Status)
	assert.Equal(t, 40, got.LastResult.MinutesSpent)
	assert.Equal(t, "Revise", got.CheckpointPrompt)
	assert.Equal(t, "ok", got.Extra["mood"])
	assert.Equal(t, "s1", got.SectionID)
}

func TestPersistTasksForDayMergeSkipsExistingTitles(t *testing.T) {
	db, repo, dbc := setup(t)
	profile := testutil.SeedProfile(t, dbc.Ctx, db, "ENEM")
	plan := testutil.SeedPlan(t, dbc.Ctx, db, profile, testOutline())
	day := firstDay(t, db, plan.ID)

	_, err := repo.PersistTasksForDay(dbc, day.ID, &payload.DayPayload{Tasks: []payload.Task{{Title: "A"}, {Title: "B"}}}, false)
	require.NoError(t, err)
	created, err := repo.PersistTasksForDay(dbc, day.ID, &payload.DayPayload{Tasks: []payload.Task{{Title: "B"}, {Title: "C"}}}, false)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "C", created[0].Title)

	tasks := dayTasks(t, db, day.ID)
	assert.Equal(t, []string{"A", "B", "C"}, titles(tasks))
	assert.Equal(t, []int{1, 2, 4}, []int{tasks[0].Order, tasks[1].Order, tasks[2].Order})
}

func TestPersistTasksForSectionCollidingOrders(t *testing.T) {
	db, repo, dbc := setup(t)
	profile := testutil.SeedProfile(t, dbc.Ctx, db, "ENEM")
	plan := testutil.SeedPlan(t, dbc.Ctx, db, profile, testOutline())

	tasks := []payload.Task{
		{Title: "Um", SuggestedOrder: ptr(1)},
		{Title: "Dois", SuggestedOrder: ptr(1)},
		{Title: "Tres", SuggestedOrder: ptr(1)},
	}
	created, err := repo.PersistTasksForSection(dbc, plan.ID, "s2", tasks, false)
	require.NoError(t, err)
	require.Len(t, created, 3)

	seen := map[int]bool{}
	for _, task := range created {
		assert.False(t, seen[task.Order], "order %d reused", task.Order)
		seen[task.Order] = true
		assert.Equal(t, "s2", task.Metadata.Data().SectionID)
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, seen)
}

func TestPersistTasksForSectionMergeNeverDuplicatesTitles(t *testing.T) {
	db, repo, dbc := setup(t)
	profile := testutil.SeedProfile(t, dbc.Ctx, db, "ENEM")
	plan := testutil.SeedPlan(t, dbc.Ctx, db, profile, testOutline())

	batch := []payload.Task{{Title: "Revisao"}, {Title: "Simulado"}, {Title: "Revisao"}}
	_, err := repo.PersistTasksForSection(dbc, plan.ID, "s1", batch, false)
	require.NoError(t, err)
	_, err = repo.PersistTasksForSection(dbc, plan.ID, "s1", batch, false)
	require.NoError(t, err)

	var all []studyplan.StudyTask
	require.NoError(t, db.Find(&all).Error)
	assert.ElementsMatch(t, []string{"Revisao", "Simulado"}, titles(all))

	_, err = repo.PersistTasksForSection(dbc, plan.ID, "s1", []payload.Task{{Title: "Nova"}}, true)
	require.NoError(t, err)
	all = nil
	require.NoError(t, db.Find(&all).Error)
	assert.Equal(t, []string{"Nova"}, titles(all))
}

func TestPersistTasksForSectionCreatesDayAndWeek(t *testing.T) {
	db, repo, dbc := setup(t)
	profile := testutil.SeedProfile(t, dbc.Ctx, db, "ENEM")
	plan := testutil.SeedPlan(t, dbc.Ctx, db, profile, nil)

	created, err := repo.PersistTasksForSection(dbc, plan.ID, "extra", []payload.Task{{Title: ""}}, false)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, defaultTaskTitle, created[0].Title)

	var day studyplan.StudyDay
	require.NoError(t, db.First(&day, "id = ?", created[0].DayID).Error)
	assert.Equal(t, 1, day.DayIndex)
	assert.Equal(t, "Secao extra", day.Title)
	assert.Equal(t, studyplan.ItemStatusReady, day.Status)
	require.NotNil(t, day.WeekID)

	var week studyplan.StudyWeek
	require.NoError(t, db.First(&week, "id = ?", *day.WeekID).Error)
	assert.Equal(t, 1, week.WeekIndex)
	assert.Equal(t, studyplan.WeekStatusActive, week.Status)
}

func TestSyncCalendarBuildsAndPrunesWeeks(t *testing.T) {
	db, repo, dbc := setup(t)
	today := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	repo = repo.WithClock(func() time.Time { return today })

	profile := testutil.SeedProfile(t, dbc.Ctx, db, "OAB")
	profile.StartDate = testutil.Date(2026, time.March, 2)
	profile.Deadline = testutil.Date(2026, time.March, 20)

	plan, err := repo.SyncCalendar(dbc, profile)
	require.NoError(t, err)
	assert.Equal(t, 19, plan.TotalDays)
	assert.Equal(t, "Plano base dinamico para OAB", plan.Summary)
	assert.Equal(t, studyplan.PlanStatusDraft, plan.Status)

	var weeks []studyplan.StudyWeek
	require.NoError(t, db.Where("plan_id = ?", plan.ID).Order("week_index").Find(&weeks).Error)
	require.Len(t, weeks, 3)
	assert.Equal(t, "Semana 1", weeks[0].Title)
	assert.Equal(t, studyplan.WeekStatusScheduled, weeks[0].Status)
	assert.Equal(t, studyplan.WeekStatusPending, weeks[1].Status)
	assert.Contains(t, weeks[1].Focus, "checkpoint 2/3")
	assert.Contains(t, weeks[2].Focus, "Consolidacao")
	require.NotNil(t, weeks[2].EndDate)
	assert.True(t, weeks[2].EndDate.Equal(*testutil.Date(2026, time.March, 20)))

	profile.Deadline = testutil.Date(2026, time.March, 5)
	again, err := repo.SyncCalendar(dbc, profile)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, again.ID)
	assert.Equal(t, 1, again.Metadata.Data().Calendar.WeekCount)

	var count int64
	require.NoError(t, db.Model(&studyplan.StudyWeek{}).Where("plan_id = ?", plan.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	activated, _, err := repo.RefreshWeekStatuses(dbc)
	require.NoError(t, err)
	assert.EqualValues(t, 1, activated)
}

func TestWindowForClampsEnd(t *testing.T) {
	today := time.Date(2026, time.May, 10, 8, 0, 0, 0, time.UTC)
	p := &studyplan.UserProfile{Deadline: testutil.Date(2026, time.May, 1)}
	w := WindowFor(p, today)
	assert.True(t, w.End.Equal(w.Start))
	assert.Equal(t, 1, w.TotalDays)
	assert.Equal(t, 1, w.WeekCount)
}
