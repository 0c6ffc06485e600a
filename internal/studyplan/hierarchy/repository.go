// Package hierarchy owns every write to the plan -> week -> day -> task ->
// content tree. Each exported mutation runs in one transaction.
package hierarchy

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/studyplan/payload"
)

const defaultWeeklyHours = 5

type Repository struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func New(db *gorm.DB, baseLog *logger.Logger) *Repository {
	return &Repository{
		db:  db,
		log: baseLog.With("component", "PlanHierarchy"),
		now: time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	cp := *r
	cp.now = now
	return &cp
}

// OutlineWrite is the input of PersistPlanFromPayload. Plan nil creates a new plan.
type OutlineWrite struct {
	Profile   *studyplan.UserProfile
	Plan      *studyplan.StudyPlan
	Title     string
	Outline   *payload.OutlinePayload
	Documents []studyplan.Document
}

// PersistPlanFromPayload writes an outline into the hierarchy. An existing
// plan is updated in place under a row lock and all of its weeks and days are
// replaced by one week and one day per section.
func (r *Repository) PersistPlanFromPayload(dbc dbctx.Context, in OutlineWrite) (*studyplan.StudyPlan, error) {
	if in.Profile == nil || in.Outline == nil {
		return nil, errors.New("persist outline: profile and outline are required")
	}
	outline := in.Outline.Outline
	totalDays := payload.TotalDays(outline)
	meta := datatypes.NewJSONType(studyplan.PlanMeta{Schema: &outline, RawPayload: in.Outline.Raw})

	var plan *studyplan.StudyPlan
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		target := in.Plan
		if target == nil {
			current, err := currentPlan(tx, in.Profile.ID)
			if err != nil {
				return err
			}
			target = current
		}
		if target == nil {
			plan = &studyplan.StudyPlan{
				UserProfileID:    in.Profile.ID,
				Title:            firstNonEmpty(in.Title, in.Profile.Goal),
				Status:           studyplan.PlanStatusActive,
				TotalDays:        totalDays,
				Metadata:         meta,
				GenerationStatus: studyplan.GenerationSucceeded,
			}
			if err := tx.Create(plan).Error; err != nil {
				return fmt.Errorf("create plan: %w", err)
			}
		} else {
			locked, err := lockPlan(tx, target.ID)
			if err != nil {
				return err
			}
			plan = locked
			plan.Title = firstNonEmpty(in.Title, plan.Title, in.Profile.Goal)
			plan.Status = studyplan.PlanStatusActive
			plan.TotalDays = totalDays
			plan.Metadata = meta
			plan.GenerationStatus = studyplan.GenerationSucceeded
			plan.LastError = ""
			if err := tx.Model(plan).Select("title", "status", "total_days", "metadata", "generation_status", "last_error", "updated_at").Updates(plan).Error; err != nil {
				return fmt.Errorf("update plan: %w", err)
			}
			if err := deletePlanCalendar(tx, plan.ID); err != nil {
				return err
			}
		}

		if len(in.Documents) > 0 {
			docs := append([]studyplan.Document(nil), in.Documents...)
			if err := tx.Model(plan).Association("RagDocuments").Replace(docs); err != nil {
				return fmt.Errorf("link documents: %w", err)
			}
		}

		hours := in.Profile.WeeklyTimeHours
		if hours <= 0 {
			hours = defaultWeeklyHours
		}
		defaultMinutes := max(45, hours*60/max(totalDays, 1))

		for i, sec := range outline.Sections {
			idx := i + 1
			week, err := ensureWeek(tx, plan.ID, idx, fmt.Sprintf("Week %d", idx))
			if err != nil {
				return err
			}
			target := sec.TargetMinutes
			if target <= 0 {
				target = defaultMinutes
			}
			weekID := week.ID
			day := &studyplan.StudyDay{
				PlanID:        plan.ID,
				WeekID:        &weekID,
				DayIndex:      idx,
				Title:         sec.Title,
				Focus:         sec.Milestone,
				Status:        studyplan.ItemStatusPending,
				TargetMinutes: target,
				Metadata: datatypes.NewJSONType(studyplan.DayGenerationState{
					SectionID:            sec.ID,
					Prerequisites:        nonNil(sec.Prerequisites),
					SuccessMetrics:       nonNil(sec.SuccessMetrics),
					ReleaseCriteria:      nonNil(sec.ReleaseCriteria),
					FocusQuestions:       nonNil(sec.FocusQuestions),
					RecommendedMaterials: sec.RecommendedMaterials,
					CheckpointPrompt:     sec.CheckpointPrompt,
					SuggestedDayCount:    sec.SuggestedDayCount,
				}),
			}
			if err := tx.Create(day).Error; err != nil {
				return fmt.Errorf("create day %d: %w", idx, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("outline persisted", "plan_id", plan.ID, "sections", len(outline.Sections), "total_days", totalDays)
	return plan, nil
}

// LockPlan loads the plan row with SELECT ... FOR UPDATE inside tx.
func (r *Repository) LockPlan(tx *gorm.DB, id uuid.UUID) (*studyplan.StudyPlan, error) {
	return lockPlan(tx, id)
}

// lockProfile serializes plan creation for one profile.
func lockProfile(tx *gorm.DB, profileID uuid.UUID) error {
	var p studyplan.UserProfile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where("id = ?", profileID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("profile %s: %w", profileID, gorm.ErrRecordNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock profile: %w", err)
	}
	return nil
}

// currentPlan locks the profile and returns its latest non-archived plan, or
// nil when a new one has to be created.
func currentPlan(tx *gorm.DB, profileID uuid.UUID) (*studyplan.StudyPlan, error) {
	if err := lockProfile(tx, profileID); err != nil {
		return nil, err
	}
	var plan studyplan.StudyPlan
	err := tx.Where("user_profile_id = ? AND status <> ?", profileID, studyplan.PlanStatusArchived).
		Order("generated_at DESC").
		Limit(1).
		Find(&plan).Error
	if err != nil {
		return nil, fmt.Errorf("load current plan: %w", err)
	}
	if plan.ID == uuid.Nil {
		return nil, nil
	}
	return &plan, nil
}

func lockPlan(tx *gorm.DB, id uuid.UUID) (*studyplan.StudyPlan, error) {
	var plan studyplan.StudyPlan
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("plan %s: %w", id, gorm.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock plan: %w", err)
	}
	return &plan, nil
}

// ensureWeek returns week idx of the plan, creating it when missing. Week 1
// starts active, later weeks pending.
func ensureWeek(tx *gorm.DB, planID uuid.UUID, idx int, title string) (*studyplan.StudyWeek, error) {
	var week studyplan.StudyWeek
	if err := tx.Where("plan_id = ? AND week_index = ?", planID, idx).Limit(1).Find(&week).Error; err != nil {
		return nil, fmt.Errorf("load week %d: %w", idx, err)
	}
	if week.ID != uuid.Nil {
		return &week, nil
	}
	status := studyplan.WeekStatusPending
	if idx == 1 {
		status = studyplan.WeekStatusActive
	}
	week = studyplan.StudyWeek{
		PlanID:    planID,
		WeekIndex: idx,
		Title:     firstNonEmpty(title, fmt.Sprintf("Week %d", idx)),
		Status:    status,
	}
	if err := tx.Create(&week).Error; err != nil {
		return nil, fmt.Errorf("create week %d: %w", idx, err)
	}
	return &week, nil
}

// firstWeekOrCreate returns the lowest-index week of the plan, or week 1.
func firstWeekOrCreate(tx *gorm.DB, planID uuid.UUID) (*studyplan.StudyWeek, error) {
	var week studyplan.StudyWeek
	if err := tx.Where("plan_id = ?", planID).Order("week_index ASC").Limit(1).Find(&week).Error; err != nil {
		return nil, fmt.Errorf("load first week: %w", err)
	}
	if week.ID != uuid.Nil {
		return &week, nil
	}
	return ensureWeek(tx, planID, 1, "")
}

// deletePlanCalendar removes every week and day of the plan with their tasks.
func deletePlanCalendar(tx *gorm.DB, planID uuid.UUID) error {
	var dayIDs []uuid.UUID
	if err := tx.Model(&studyplan.StudyDay{}).Where("plan_id = ?", planID).Pluck("id", &dayIDs).Error; err != nil {
		return fmt.Errorf("list days: %w", err)
	}
	if err := deleteTasksOfDays(tx, dayIDs); err != nil {
		return err
	}
	if err := tx.Where("plan_id = ?", planID).Delete(&studyplan.StudyDay{}).Error; err != nil {
		return fmt.Errorf("delete days: %w", err)
	}
	if err := tx.Where("plan_id = ?", planID).Delete(&studyplan.StudyWeek{}).Error; err != nil {
		return fmt.Errorf("delete weeks: %w", err)
	}
	return nil
}

func deleteTasksOfDays(tx *gorm.DB, dayIDs []uuid.UUID) error {
	if len(dayIDs) == 0 {
		return nil
	}
	var taskIDs []uuid.UUID
	if err := tx.Model(&studyplan.StudyTask{}).Where("day_id IN ?", dayIDs).Pluck("id", &taskIDs).Error; err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if err := deleteContent(tx, taskIDs); err != nil {
		return err
	}
	if err := tx.Where("day_id IN ?", dayIDs).Delete(&studyplan.StudyTask{}).Error; err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	return nil
}

// deleteContent removes every content variant and child row of the tasks.
func deleteContent(tx *gorm.DB, taskIDs []uuid.UUID) error {
	if len(taskIDs) == 0 {
		return nil
	}
	var setIDs, assessmentIDs []uuid.UUID
	if err := tx.Model(&studyplan.FlashcardSet{}).Where("task_id IN ?", taskIDs).Pluck("id", &setIDs).Error; err != nil {
		return fmt.Errorf("list flashcard sets: %w", err)
	}
	if err := tx.Model(&studyplan.Assessment{}).Where("task_id IN ?", taskIDs).Pluck("id", &assessmentIDs).Error; err != nil {
		return fmt.Errorf("list assessments: %w", err)
	}
	if len(setIDs) > 0 {
		if err := tx.Where("set_id IN ?", setIDs).Delete(&studyplan.Flashcard{}).Error; err != nil {
			return fmt.Errorf("delete flashcards: %w", err)
		}
	}
	if len(assessmentIDs) > 0 {
		if err := tx.Where("assessment_id IN ?", assessmentIDs).Delete(&studyplan.AssessmentItem{}).Error; err != nil {
			return fmt.Errorf("delete assessment items: %w", err)
		}
	}
	for _, model := range []any{
		&studyplan.LessonContent{},
		&studyplan.ReadingContent{},
		&studyplan.PracticeContent{},
		&studyplan.ProjectContent{},
		&studyplan.ReflectionContent{},
		&studyplan.ReviewSessionContent{},
		&studyplan.FlashcardSet{},
		&studyplan.Assessment{},
	} {
		if err := tx.Where("task_id IN ?", taskIDs).Delete(model).Error; err != nil {
			return fmt.Errorf("delete content: %w", err)
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
