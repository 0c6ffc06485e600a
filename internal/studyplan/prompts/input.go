package prompts

// Input carries every field any stage template reads. Unset fields render empty.
type Input struct {
	UserContext string
	Goal        string
	Documents   string
	Excerpts    string

	PlanTitle string

	// SectionID is always set for task stages. SectionJSON is empty when the
	// section is not present in the stored outline.
	SectionID        string
	SectionJSON      string
	SectionMetrics   string
	ReleaseCriteria  string
	FocusQuestions   string
	SectionMaterials string
	SectionTasks     string

	DayIndex         int
	DayTitle         string
	DayFocus         string
	DayTargetMinutes int
	DayPrerequisites string
	LastResult       string
	DayTasks         string
}
