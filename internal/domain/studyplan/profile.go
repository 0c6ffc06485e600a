package studyplan

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PersonaStudent = "student"
	PersonaTeacher = "teacher"
	PersonaOther   = "other"
)

// UserProfile is the onboarding context of one account. One row per user.
type UserProfile struct {
	ID                        uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                    uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Persona                   string                      `gorm:"column:persona;size:20;not null" json:"persona"`
	Goal                      string                      `gorm:"column:goal;size:100;not null" json:"goal"`
	Deadline                  *time.Time                  `gorm:"column:deadline;type:date" json:"deadline,omitempty"`
	WeeklyTimeHours           int                         `gorm:"column:weekly_time_hours;not null;default:0" json:"weekly_time_hours"`
	StudyRoutine              string                      `gorm:"column:study_routine;type:text" json:"study_routine"`
	BackgroundLevel           string                      `gorm:"column:background_level;size:2000" json:"background_level"`
	BackgroundInstitutionType string                      `gorm:"column:background_institution_type;size:100" json:"background_institution_type"`
	SelfAssessment            datatypes.JSONMap           `gorm:"column:self_assessment" json:"self_assessment"`
	DiagnosticStatus          string                      `gorm:"column:diagnostic_status;size:20" json:"diagnostic_status,omitempty"`
	DiagnosticSnapshot        datatypes.JSONSlice[string] `gorm:"column:diagnostic_snapshot" json:"diagnostic_snapshot"`
	Interests                 datatypes.JSONSlice[string] `gorm:"column:interests" json:"interests"`
	PreferencesFormats        datatypes.JSONSlice[string] `gorm:"column:preferences_formats" json:"preferences_formats"`
	PreferencesLanguage       string                      `gorm:"column:preferences_language;size:50" json:"preferences_language"`
	PreferencesAccessibility  datatypes.JSONSlice[string] `gorm:"column:preferences_accessibility" json:"preferences_accessibility"`
	TechDevice                string                      `gorm:"column:tech_device;size:100" json:"tech_device"`
	TechConnectivity          string                      `gorm:"column:tech_connectivity;size:100" json:"tech_connectivity"`
	Notifications             string                      `gorm:"column:notifications;size:100" json:"notifications"`
	ConsentLGPD               bool                        `gorm:"column:consent_lgpd;not null;default:false" json:"consent_lgpd"`
	PlanLabel                 string                      `gorm:"column:plan_label;size:200" json:"plan_label,omitempty"`
	StartDate                 *time.Time                  `gorm:"column:start_date;type:date" json:"start_date,omitempty"`
	EndDate                   *time.Time                  `gorm:"column:end_date;type:date" json:"end_date,omitempty"`
	CreatedAt                 time.Time                   `gorm:"not null;index" json:"created_at"`
	UpdatedAt                 time.Time                   `gorm:"not null" json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profile" }

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
