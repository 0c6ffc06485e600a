package studyplan

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ContentLesson     = "lesson"
	ContentReading    = "reading"
	ContentPractice   = "practice"
	ContentProject    = "project"
	ContentReflection = "reflection"
	ContentReview     = "review"
	ContentFlashcards = "flashcards"
	ContentAssessment = "assessment"
)

// Content is the closed set of typed task bodies. Each task owns at most one.
type Content interface {
	ContentType() string
	isContent()
}

type LessonContent struct {
	ID         uuid.UUID                `gorm:"type:uuid;primaryKey" json:"-"`
	TaskID     uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	Summary    string                   `gorm:"column:summary;type:text" json:"summary"`
	Body       string                   `gorm:"column:body;type:text" json:"body"`
	KeyPoints  datatypes.JSONSlice[any] `gorm:"column:key_points" json:"key_points"`
	SourceRefs datatypes.JSONSlice[any] `gorm:"column:source_refs" json:"source_refs"`
	CreatedAt  time.Time                `gorm:"not null" json:"-"`
}

func (LessonContent) TableName() string    { return "study_lesson_content" }
func (*LessonContent) ContentType() string { return ContentLesson }
func (*LessonContent) isContent()          {}

func (c *LessonContent) BeforeCreate(tx *gorm.DB) error { return ensureID(&c.ID) }

type ReadingContent struct {
	ID            uuid.UUID                `gorm:"type:uuid;primaryKey" json:"-"`
	TaskID        uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	Overview      string                   `gorm:"column:overview;type:text" json:"overview"`
	Instructions  string                   `gorm:"column:instructions;type:text" json:"instructions"`
	Resources     datatypes.JSONSlice[any] `gorm:"column:resources" json:"resources"`
	GeneratedText string                   `gorm:"column:generated_text;type:text" json:"generated_text"`
	CreatedAt     time.Time                `gorm:"not null" json:"-"`
}

func (ReadingContent) TableName() string    { return "study_reading_content" }
func (*ReadingContent) ContentType() string { return ContentReading }
func (*ReadingContent) isContent()          {}

func (c *ReadingContent) BeforeCreate(tx *gorm.DB) error { return ensureID(&c.ID) }

type PracticeContent struct {
	ID             uuid.UUID                `gorm:"type:uuid;primaryKey" json:"-"`
	TaskID         uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	Prompt         string                   `gorm:"column:prompt;type:text" json:"prompt"`
	ExpectedOutput string                   `gorm:"column:expected_output;type:text" json:"expected_output"`
	Rubric         datatypes.JSONMap        `gorm:"column:rubric" json:"rubric"`
	Hints          datatypes.JSONSlice[any] `gorm:"column:hints" json:"hints"`
	CreatedAt      time.Time                `gorm:"not null" json:"-"`
}

func (PracticeContent) TableName() string    { return "study_practice_content" }
func (*PracticeContent) ContentType() string { return ContentPractice }
func (*PracticeContent) isContent()          {}

func (c *PracticeContent) BeforeCreate(tx *gorm.DB) error { return ensureID(&c.ID) }

type ProjectContent struct {
	ID           uuid.UUID                `gorm:"type:uuid;primaryKey" json:"-"`
	TaskID       uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	Brief        string                   `gorm:"column:brief;type:text" json:"brief"`
	Deliverables datatypes.JSONSlice[any] `gorm:"column:deliverables" json:"deliverables"`
	Evaluation   datatypes.JSONMap        `gorm:"column:evaluation" json:"evaluation"`
	Resources    datatypes.JSONSlice[any] `gorm:"column:resources" json:"resources"`
	CreatedAt    time.Time                `gorm:"not null" json:"-"`
}

func (ProjectContent) TableName() string    { return "study_project_content" }
func (*ProjectContent) ContentType() string { return ContentProject }
func (*ProjectContent) isContent()          {}

func (c *ProjectContent) BeforeCreate(tx *gorm.DB) error { return ensureID(&c.ID) }

type ReflectionContent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	TaskID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	Prompt    string    `gorm:"column:prompt;type:text" json:"prompt"`
	Guidance  string    `gorm:"column:guidance;type:text" json:"guidance"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
}

func (ReflectionContent) TableName() string    { return "study_reflection_content" }
func (*ReflectionContent) ContentType() string { return ContentReflection }
func (*ReflectionContent) isContent()          {}

func (c *ReflectionContent) BeforeCreate(tx *gorm.DB) error { return ensureID(&c.ID) }

type ReviewSessionContent struct {
	ID        uuid.UUID                `gorm:"type:uuid;primaryKey" json:"-"`
	TaskID    uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	Topics    datatypes.JSONSlice[any] `gorm:"column:topics" json:"topics"`
	Strategy  string                   `gorm:"column:strategy;type:text" json:"strategy"`
	FollowUp  datatypes.JSONSlice[any] `gorm:"column:follow_up" json:"follow_up"`
	CreatedAt time.Time                `gorm:"not null" json:"-"`
}

func (ReviewSessionContent) TableName() string    { return "study_review_content" }
func (*ReviewSessionContent) ContentType() string { return ContentReview }
func (*ReviewSessionContent) isContent()          {}

func (c *ReviewSessionContent) BeforeCreate(tx *gorm.DB) error { return ensureID(&c.ID) }

type FlashcardSet struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"-"`
	TaskID      uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	Title       string                      `gorm:"column:title;size:200" json:"title"`
	Description string                      `gorm:"column:description;type:text" json:"description"`
	Tags        datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	Cards       []Flashcard                 `gorm:"foreignKey:SetID;constraint:OnDelete:CASCADE" json:"cards"`
	CreatedAt   time.Time                   `gorm:"not null" json:"-"`
}

func (FlashcardSet) TableName() string    { return "study_flashcard_set" }
func (*FlashcardSet) ContentType() string { return ContentFlashcards }
func (*FlashcardSet) isContent()          {}

func (c *FlashcardSet) BeforeCreate(tx *gorm.DB) error { return ensureID(&c.ID) }

type Flashcard struct {
	ID         uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	SetID      uuid.UUID                   `gorm:"type:uuid;not null;index" json:"-"`
	Position   int                         `gorm:"column:position;not null;default:0" json:"-"`
	Front      string                      `gorm:"column:front;type:text;not null" json:"front"`
	Back       string                      `gorm:"column:back;type:text;not null" json:"back"`
	Hints      datatypes.JSONSlice[string] `gorm:"column:hints" json:"hints"`
	Tags       datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	Difficulty int                         `gorm:"column:difficulty;not null;default:1" json:"difficulty"`
}

func (Flashcard) TableName() string { return "study_flashcard" }

func (c *Flashcard) BeforeCreate(tx *gorm.DB) error { return ensureID(&c.ID) }

const (
	AssessmentQuiz = "quiz"
	AssessmentTest = "test"
)

type Assessment struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"-"`
	TaskID           uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	Title            string            `gorm:"column:title;size:200" json:"title"`
	Description      string            `gorm:"column:description;type:text" json:"description"`
	AssessmentType   string            `gorm:"column:assessment_type;size:20;not null;default:'quiz'" json:"assessment_type"`
	PassingScore     *float64          `gorm:"column:passing_score" json:"passing_score"`
	TimeLimitMinutes *int              `gorm:"column:time_limit_minutes" json:"time_limit_minutes"`
	Metadata         datatypes.JSONMap `gorm:"column:metadata" json:"metadata"`
	Items            []AssessmentItem  `gorm:"foreignKey:AssessmentID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt        time.Time         `gorm:"not null" json:"-"`
}

func (Assessment) TableName() string    { return "study_assessment" }
func (*Assessment) ContentType() string { return ContentAssessment }
func (*Assessment) isContent()          {}

func (c *Assessment) BeforeCreate(tx *gorm.DB) error { return ensureID(&c.ID) }

type AssessmentItem struct {
	ID           uuid.UUID                `gorm:"type:uuid;primaryKey" json:"id"`
	AssessmentID uuid.UUID                `gorm:"type:uuid;not null;index" json:"-"`
	Position     int                      `gorm:"column:position;not null;default:0" json:"-"`
	ItemType     string                   `gorm:"column:item_type;size:20;not null;default:'mcq'" json:"item_type"`
	Prompt       string                   `gorm:"column:prompt;type:text" json:"prompt"`
	Choices      datatypes.JSONSlice[any] `gorm:"column:choices" json:"choices"`
	Answer       datatypes.JSONMap        `gorm:"column:answer" json:"answer"`
	Explanation  string                   `gorm:"column:explanation;type:text" json:"explanation"`
	Difficulty   int                      `gorm:"column:difficulty;not null;default:1" json:"difficulty"`
	Metadata     datatypes.JSONMap        `gorm:"column:metadata" json:"metadata"`
}

func (AssessmentItem) TableName() string { return "study_assessment_item" }

func (c *AssessmentItem) BeforeCreate(tx *gorm.DB) error { return ensureID(&c.ID) }

func ensureID(id *uuid.UUID) error {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	return nil
}
