package hierarchy

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/studyplan/payload"
)

const defaultTaskTitle = "Tarefa"

// taskBatch allocates orders and filters titles for one persistence call.
type taskBatch struct {
	dayID      uuid.UUID
	sectionID  string
	usedOrders map[int]bool
	base       int
	titles     map[string]bool
	skipTitles bool
}

func newTaskBatch(dayID uuid.UUID, sectionID string, existing []studyplan.StudyTask, titles []string, skipTitles bool) *taskBatch {
	b := &taskBatch{
		dayID:      dayID,
		sectionID:  sectionID,
		usedOrders: map[int]bool{},
		titles:     map[string]bool{},
		skipTitles: skipTitles,
	}
	for _, t := range existing {
		b.usedOrders[t.Order] = true
		b.base = max(b.base, t.Order)
	}
	for _, t := range titles {
		b.titles[t] = true
	}
	return b
}

// nextOrder returns the first free order at or after the desired one.
func (b *taskBatch) nextOrder(desired int) int {
	for b.usedOrders[desired] {
		desired++
	}
	b.usedOrders[desired] = true
	return desired
}

func (b *taskBatch) create(tx *gorm.DB, tasks []payload.Task) ([]*studyplan.StudyTask, error) {
	out := make([]*studyplan.StudyTask, 0, len(tasks))
	for i, t := range tasks {
		pos := i + 1
		title := t.Title
		if title == "" {
			title = defaultTaskTitle
		}
		if b.skipTitles && b.titles[title] {
			continue
		}
		desired := b.base + pos
		if t.SuggestedOrder != nil {
			desired = *t.SuggestedOrder
		}
		meta := t.Meta()
		if meta.SectionID == "" {
			meta.SectionID = b.sectionID
		}
		task := &studyplan.StudyTask{
			DayID:           b.dayID,
			Order:           b.nextOrder(desired),
			TaskType:        payload.MapTaskType(t.Type),
			Status:          studyplan.ItemStatusPending,
			Title:           title,
			Description:     t.Description,
			DurationMinutes: t.EstimatedTime,
			Resources:       datatypes.JSONSlice[studyplan.Resource](t.Resources()),
			Metadata:        datatypes.NewJSONType(meta),
		}
		if err := tx.Omit(contentAssociations...).Create(task).Error; err != nil {
			return nil, fmt.Errorf("create task %q: %w", title, err)
		}
		if err := createContent(tx, task, payload.BuildContent(t)); err != nil {
			return nil, err
		}
		b.titles[title] = true
		out = append(out, task)
	}
	return out, nil
}

var contentAssociations = []string{
	"Lesson", "Reading", "Practice", "Project", "Reflection", "Review", "FlashcardSet", "Assessment",
}

// createContent stores c as the task's single content row and attaches it.
func createContent(tx *gorm.DB, task *studyplan.StudyTask, c studyplan.Content) error {
	if c == nil {
		return nil
	}
	switch v := c.(type) {
	case *studyplan.LessonContent:
		v.TaskID = task.ID
		task.Lesson = v
	case *studyplan.ReadingContent:
		v.TaskID = task.ID
		task.Reading = v
	case *studyplan.PracticeContent:
		v.TaskID = task.ID
		task.Practice = v
	case *studyplan.ProjectContent:
		v.TaskID = task.ID
		task.Project = v
	case *studyplan.ReflectionContent:
		v.TaskID = task.ID
		task.Reflection = v
	case *studyplan.ReviewSessionContent:
		v.TaskID = task.ID
		task.Review = v
	case *studyplan.FlashcardSet:
		v.TaskID = task.ID
		task.FlashcardSet = v
	case *studyplan.Assessment:
		v.TaskID = task.ID
		task.Assessment = v
	default:
		return fmt.Errorf("unsupported content %T", c)
	}
	if err := tx.Create(c).Error; err != nil {
		return fmt.Errorf("create %s content: %w", c.ContentType(), err)
	}
	return nil
}

// PersistTasksForDay applies a day stage payload. Reset replaces every task of
// the day; merge skips titles the day already has. The day ends ready.
func (r *Repository) PersistTasksForDay(dbc dbctx.Context, dayID uuid.UUID, p *payload.DayPayload, reset bool) ([]*studyplan.StudyTask, error) {
	if p == nil {
		p = &payload.DayPayload{}
	}
	var created []*studyplan.StudyTask
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		var day studyplan.StudyDay
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", dayID).First(&day).Error; err != nil {
			return fmt.Errorf("load day: %w", err)
		}

		state := day.State()
		mergeDayMetadata(&state, p.Day.Metadata)
		day.Metadata = datatypes.NewJSONType(state)
		if p.Day.Title != "" {
			day.Title = p.Day.Title
		}
		if p.Day.Focus != "" {
			day.Focus = p.Day.Focus
		}
		if p.Day.Summary != "" {
			day.Summary = p.Day.Summary
		}
		if p.Day.TargetMinutes != nil {
			day.TargetMinutes = *p.Day.TargetMinutes
		}
		if day.WeekID == nil {
			week, err := firstWeekOrCreate(tx, day.PlanID)
			if err != nil {
				return err
			}
			day.WeekID = &week.ID
		}

		var batch *taskBatch
		if reset {
			if err := deleteTasksOfDays(tx, []uuid.UUID{day.ID}); err != nil {
				return err
			}
			batch = newTaskBatch(day.ID, state.SectionID, nil, nil, false)
		} else {
			existing, err := loadTasks(tx, []uuid.UUID{day.ID})
			if err != nil {
				return err
			}
			batch = newTaskBatch(day.ID, state.SectionID, existing, titlesOf(existing), true)
		}

		out, err := batch.create(tx, p.Tasks)
		if err != nil {
			return err
		}
		created = out

		day.Status = studyplan.ItemStatusReady
		return tx.Model(&day).
			Select("title", "focus", "summary", "target_minutes", "week_id", "status", "metadata", "updated_at").
			Updates(&day).Error
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("day tasks persisted", "day_id", dayID, "created", len(created), "reset", reset)
	return created, nil
}

// PersistTasksForSection attaches section-stage tasks to the first day of the
// section, creating that day when the plan has none. Titles already present
// on any day of the section are skipped unless reset clears them first.
func (r *Repository) PersistTasksForSection(dbc dbctx.Context, planID uuid.UUID, sectionID string, tasks []payload.Task, reset bool) ([]*studyplan.StudyTask, error) {
	var created []*studyplan.StudyTask
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		var days []studyplan.StudyDay
		if err := tx.Where("plan_id = ?", planID).Order("day_index ASC").Find(&days).Error; err != nil {
			return fmt.Errorf("load days: %w", err)
		}
		var sectionDays []studyplan.StudyDay
		maxIndex := 0
		for _, d := range days {
			maxIndex = max(maxIndex, d.DayIndex)
			if d.State().SectionID == sectionID {
				sectionDays = append(sectionDays, d)
			}
		}

		var target *studyplan.StudyDay
		if len(sectionDays) == 0 {
			week, err := firstWeekOrCreate(tx, planID)
			if err != nil {
				return err
			}
			weekID := week.ID
			target = &studyplan.StudyDay{
				PlanID:   planID,
				WeekID:   &weekID,
				DayIndex: maxIndex + 1,
				Title:    fmt.Sprintf("Secao %s", sectionID),
				Status:   studyplan.ItemStatusReady,
				Metadata: datatypes.NewJSONType(studyplan.DayGenerationState{SectionID: sectionID}),
			}
			if err := tx.Create(target).Error; err != nil {
				return fmt.Errorf("create section day: %w", err)
			}
			sectionDays = append(sectionDays, *target)
		} else {
			target = &sectionDays[0]
			if target.WeekID == nil {
				week, err := firstWeekOrCreate(tx, planID)
				if err != nil {
					return err
				}
				if err := tx.Model(target).Update("week_id", week.ID).Error; err != nil {
					return fmt.Errorf("attach week: %w", err)
				}
				target.WeekID = &week.ID
			}
		}

		sectionDayIDs := make([]uuid.UUID, 0, len(sectionDays))
		for _, d := range sectionDays {
			sectionDayIDs = append(sectionDayIDs, d.ID)
		}
		if reset {
			if err := deleteTasksOfDays(tx, sectionDayIDs); err != nil {
				return err
			}
		}
		sectionTasks, err := loadTasks(tx, sectionDayIDs)
		if err != nil {
			return err
		}
		var dayTasks []studyplan.StudyTask
		for _, t := range sectionTasks {
			if t.DayID == target.ID {
				dayTasks = append(dayTasks, t)
			}
		}

		batch := newTaskBatch(target.ID, sectionID, dayTasks, titlesOf(sectionTasks), true)
		out, err := batch.create(tx, tasks)
		if err != nil {
			return err
		}
		created = out
		if len(out) > 0 && target.Status != studyplan.ItemStatusReady {
			if err := tx.Model(target).Update("status", studyplan.ItemStatusReady).Error; err != nil {
				return fmt.Errorf("mark day ready: %w", err)
			}
			target.Status = studyplan.ItemStatusReady
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("section tasks persisted", "plan_id", planID, "section_id", sectionID, "created", len(created), "reset", reset)
	return created, nil
}

func loadTasks(tx *gorm.DB, dayIDs []uuid.UUID) ([]studyplan.StudyTask, error) {
	var out []studyplan.StudyTask
	if len(dayIDs) == 0 {
		return out, nil
	}
	if err := tx.Where("day_id IN ?", dayIDs).Order("task_order ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return out, nil
}

func titlesOf(tasks []studyplan.StudyTask) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if !slices.Contains(out, t.Title) {
			out = append(out, t.Title)
		}
	}
	return out
}

// mergeDayMetadata folds a day payload's metadata into the typed state.
// Known list keys replace their typed field; everything else lands in Extra.
func mergeDayMetadata(state *studyplan.DayGenerationState, m map[string]any) {
	if len(m) == 0 {
		return
	}
	for k, v := range m {
		switch k {
		case "prerequisites":
			state.Prerequisites = stringsOf(v)
		case "success_metrics":
			state.SuccessMetrics = stringsOf(v)
		case "focus_questions":
			state.FocusQuestions = stringsOf(v)
		case "release_criteria":
			state.ReleaseCriteria = stringsOf(v)
		case "checkpoint_prompt":
			if s, ok := v.(string); ok {
				state.CheckpointPrompt = s
			}
		default:
			if state.Extra == nil {
				state.Extra = map[string]any{}
			}
			state.Extra[k] = v
		}
	}
}

func stringsOf(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		} else if it != nil {
			out = append(out, fmt.Sprint(it))
		}
	}
	return out
}

// DayStateFromMap builds the typed day state from free-form request metadata.
func DayStateFromMap(m map[string]any) studyplan.DayGenerationState {
	var state studyplan.DayGenerationState
	rest := make(map[string]any, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok && k == "section_id" {
			state.SectionID = s
			continue
		}
		rest[k] = v
	}
	mergeDayMetadata(&state, rest)
	return state
}
