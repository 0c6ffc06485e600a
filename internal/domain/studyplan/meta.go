package studyplan

import "time"

// Outline is the section-level skeleton produced by the outline stage.
type Outline struct {
	Sections         []Section `json:"sections"`
	GlobalGuidelines []string  `json:"global_guidelines,omitempty"`
}

// FindSection returns the section with the given id, or nil.
func (o *Outline) FindSection(id string) *Section {
	if o == nil || id == "" {
		return nil
	}
	for i := range o.Sections {
		if o.Sections[i].ID == id {
			return &o.Sections[i]
		}
	}
	return nil
}

type Section struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Theme                string     `json:"theme,omitempty"`
	Milestone            string     `json:"milestone"`
	SuccessMetrics       []string   `json:"success_metrics,omitempty"`
	ReleaseCriteria      []string   `json:"release_criteria,omitempty"`
	FocusQuestions       []string   `json:"focus_questions,omitempty"`
	RecommendedMaterials []Material `json:"recommended_materials,omitempty"`
	SuggestedDayCount    int        `json:"suggested_day_count,omitempty"`
	Prerequisites        []string   `json:"prerequisites,omitempty"`
	CheckpointPrompt     string     `json:"checkpoint_prompt,omitempty"`
	TargetMinutes        int        `json:"target_minutes,omitempty"`
}

type Material struct {
	Title string `json:"title"`
	Type  string `json:"type,omitempty"`
	URL   string `json:"url,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// PlanMeta is the typed metadata column of a StudyPlan.
type PlanMeta struct {
	Schema     *Outline       `json:"schema,omitempty"`
	RawPayload map[string]any `json:"raw_payload,omitempty"`
	Calendar   *CalendarMeta  `json:"calendar,omitempty"`
}

type CalendarMeta struct {
	GeneratedFrom string    `json:"generated_from"`
	WeekCount     int       `json:"week_count"`
	LastSyncedAt  time.Time `json:"last_synced_at"`
}

// DayGenerationState is the typed metadata column of a StudyDay. It links the
// day to its outline section and tracks the day-level generation attempt,
// separately from the plan-level status fields.
type DayGenerationState struct {
	SectionID            string         `json:"section_id,omitempty"`
	Prerequisites        []string       `json:"prerequisites,omitempty"`
	SuccessMetrics       []string       `json:"success_metrics,omitempty"`
	ReleaseCriteria      []string       `json:"release_criteria,omitempty"`
	FocusQuestions       []string       `json:"focus_questions,omitempty"`
	RecommendedMaterials []Material     `json:"recommended_materials,omitempty"`
	CheckpointPrompt     string         `json:"checkpoint_prompt,omitempty"`
	SuggestedDayCount    int            `json:"suggested_day_count,omitempty"`
	GenerationStatus     string         `json:"generation_status,omitempty"`
	JobID                string         `json:"job_id,omitempty"`
	LastError            string         `json:"last_error,omitempty"`
	LastResult           *DayResult     `json:"last_result,omitempty"`
	Extra                map[string]any `json:"extra,omitempty"`
}

// DayResult is the learner-reported outcome of a day.
type DayResult struct {
	Status       string         `json:"status,omitempty"`
	MinutesSpent int            `json:"minutes_spent,omitempty"`
	Score        *float64       `json:"score,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	RecordedAt   time.Time      `json:"recorded_at"`
}

// TaskMeta is the typed metadata column of a StudyTask.
type TaskMeta struct {
	SectionID        string         `json:"section_id,omitempty"`
	TaskSchemaID     string         `json:"task_schema_id,omitempty"`
	Difficulty       *int           `json:"difficulty,omitempty"`
	ResearchNeeded   *bool          `json:"research_needed,omitempty"`
	AssessmentTarget string         `json:"assessment_target,omitempty"`
	Prerequisites    []string       `json:"prerequisites"`
	Dependencies     []string       `json:"dependencies"`
	Content          map[string]any `json:"content"`
	Progress         *TaskProgress  `json:"progress,omitempty"`
}

type TaskProgress struct {
	Status       string         `json:"status"`
	MinutesSpent int            `json:"minutes_spent"`
	Notes        string         `json:"notes,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
