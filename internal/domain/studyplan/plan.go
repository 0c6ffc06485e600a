package studyplan

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PlanStatusDraft    = "draft"
	PlanStatusActive   = "active"
	PlanStatusArchived = "archived"

	WeekStatusPending   = "pending"
	WeekStatusScheduled = "scheduled"
	WeekStatusActive    = "active"
	WeekStatusCompleted = "completed"

	// Day and task statuses share one vocabulary.
	ItemStatusPending    = "pending"
	ItemStatusReady      = "ready"
	ItemStatusInProgress = "in_progress"
	ItemStatusCompleted  = "completed"

	GenerationPending   = "pending"
	GenerationRunning   = "running"
	GenerationFailed    = "failed"
	GenerationSucceeded = "succeeded"
)

type StudyPlan struct {
	ID               uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"id"`
	UserProfileID    uuid.UUID                    `gorm:"type:uuid;not null;index" json:"user_profile_id"`
	UserProfile      *UserProfile                 `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserProfileID;references:ID" json:"-"`
	Title            string                       `gorm:"column:title;size:200" json:"title"`
	Summary          string                       `gorm:"column:summary;type:text" json:"summary"`
	Status           string                       `gorm:"column:status;size:20;not null;default:'draft';index" json:"status"`
	StartDate        *time.Time                   `gorm:"column:start_date;type:date" json:"start_date"`
	EndDate          *time.Time                   `gorm:"column:end_date;type:date" json:"end_date"`
	TotalDays        int                          `gorm:"column:total_days;not null;default:0" json:"total_days"`
	Metadata         datatypes.JSONType[PlanMeta] `gorm:"column:metadata" json:"metadata"`
	RagDocuments     []Document                   `gorm:"many2many:study_plan_rag_documents;" json:"-"`
	GenerationStatus string                       `gorm:"column:generation_status;size:20;not null;default:'pending'" json:"generation_status"`
	LastError        string                       `gorm:"column:last_error;type:text" json:"last_error"`
	JobID            string                       `gorm:"column:job_id;size:100" json:"job_id"`
	Weeks            []StudyWeek                  `gorm:"foreignKey:PlanID" json:"-"`
	Days             []StudyDay                   `gorm:"foreignKey:PlanID" json:"-"`
	GeneratedAt      time.Time                    `gorm:"column:generated_at;autoCreateTime;index" json:"generated_at"`
	UpdatedAt        time.Time                    `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (StudyPlan) TableName() string { return "study_plan" }

func (p *StudyPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type StudyWeek struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	PlanID    uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_study_week_plan_index,priority:1" json:"plan_id"`
	WeekIndex int               `gorm:"column:week_index;not null;uniqueIndex:idx_study_week_plan_index,priority:2" json:"week_index"`
	Title     string            `gorm:"column:title;size:200" json:"title"`
	Focus     string            `gorm:"column:focus;type:text" json:"focus"`
	StartDate *time.Time        `gorm:"column:start_date;type:date" json:"start_date"`
	EndDate   *time.Time        `gorm:"column:end_date;type:date" json:"end_date"`
	Status    string            `gorm:"column:status;size:20;not null;default:'pending'" json:"status"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata" json:"metadata"`
	Days      []StudyDay        `gorm:"foreignKey:WeekID" json:"-"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

func (StudyWeek) TableName() string { return "study_week" }

func (w *StudyWeek) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

type StudyDay struct {
	ID            uuid.UUID                              `gorm:"type:uuid;primaryKey" json:"id"`
	PlanID        uuid.UUID                              `gorm:"type:uuid;not null;uniqueIndex:idx_study_day_plan_index,priority:1" json:"plan_id"`
	WeekID        *uuid.UUID                             `gorm:"type:uuid;index" json:"week_id"`
	Week          *StudyWeek                             `gorm:"foreignKey:WeekID;references:ID" json:"-"`
	DayIndex      int                                    `gorm:"column:day_index;not null;uniqueIndex:idx_study_day_plan_index,priority:2" json:"day_index"`
	ScheduledDate *time.Time                             `gorm:"column:scheduled_date;type:date" json:"scheduled_date"`
	Title         string                                 `gorm:"column:title;size:200" json:"title"`
	Focus         string                                 `gorm:"column:focus;type:text" json:"focus"`
	TargetMinutes int                                    `gorm:"column:target_minutes;not null;default:0" json:"target_minutes"`
	Status        string                                 `gorm:"column:status;size:20;not null;default:'pending'" json:"status"`
	Summary       string                                 `gorm:"column:summary;type:text" json:"summary"`
	Metadata      datatypes.JSONType[DayGenerationState] `gorm:"column:metadata" json:"metadata"`
	Tasks         []StudyTask                            `gorm:"foreignKey:DayID" json:"-"`
	CreatedAt     time.Time                              `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time                              `gorm:"not null" json:"updated_at"`
}

func (StudyDay) TableName() string { return "study_day" }

func (d *StudyDay) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// State returns a copy of the day's generation side-record.
func (d *StudyDay) State() DayGenerationState {
	return d.Metadata.Data()
}

const (
	TaskTypeLesson     = "lesson"
	TaskTypePractice   = "practice"
	TaskTypeReview     = "review"
	TaskTypeFlashcards = "flashcards"
	TaskTypeAssessment = "assessment"
	TaskTypeProject    = "project"
	TaskTypeOther      = "other"
)

type StudyTask struct {
	ID              uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"id"`
	DayID           uuid.UUID                     `gorm:"type:uuid;not null;uniqueIndex:idx_study_task_day_order,priority:1" json:"day_id"`
	Order           int                           `gorm:"column:task_order;not null;default:1;uniqueIndex:idx_study_task_day_order,priority:2" json:"order"`
	TaskType        string                        `gorm:"column:task_type;size:20;not null;default:'other'" json:"task_type"`
	Status          string                        `gorm:"column:status;size:20;not null;default:'pending'" json:"status"`
	Title           string                        `gorm:"column:title;size:200;not null" json:"title"`
	Description     string                        `gorm:"column:description;type:text" json:"description"`
	DurationMinutes int                           `gorm:"column:duration_minutes;not null;default:0" json:"duration_minutes"`
	Resources       datatypes.JSONSlice[Resource] `gorm:"column:resources" json:"resources"`
	Metadata        datatypes.JSONType[TaskMeta]  `gorm:"column:metadata" json:"metadata"`
	Lesson          *LessonContent                `gorm:"foreignKey:TaskID" json:"-"`
	Reading         *ReadingContent               `gorm:"foreignKey:TaskID" json:"-"`
	Practice        *PracticeContent              `gorm:"foreignKey:TaskID" json:"-"`
	Project         *ProjectContent               `gorm:"foreignKey:TaskID" json:"-"`
	Reflection      *ReflectionContent            `gorm:"foreignKey:TaskID" json:"-"`
	Review          *ReviewSessionContent         `gorm:"foreignKey:TaskID" json:"-"`
	FlashcardSet    *FlashcardSet                 `gorm:"foreignKey:TaskID" json:"-"`
	Assessment      *Assessment                   `gorm:"foreignKey:TaskID" json:"-"`
	CreatedAt       time.Time                     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time                     `gorm:"not null" json:"updated_at"`
}

func (StudyTask) TableName() string { return "study_task" }

func (t *StudyTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Content returns the task's typed content, or nil when none was loaded or created.
// At most one arm is ever populated.
func (t *StudyTask) Content() Content {
	switch {
	case t.Lesson != nil:
		return t.Lesson
	case t.Reading != nil:
		return t.Reading
	case t.Practice != nil:
		return t.Practice
	case t.Project != nil:
		return t.Project
	case t.Reflection != nil:
		return t.Reflection
	case t.Review != nil:
		return t.Review
	case t.FlashcardSet != nil:
		return t.FlashcardSet
	case t.Assessment != nil:
		return t.Assessment
	default:
		return nil
	}
}

// Resource is one entry of a task's resources list.
type Resource struct {
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}
