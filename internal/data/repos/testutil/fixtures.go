package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
)

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, goal string) *studyplan.UserProfile {
	tb.Helper()
	p := &studyplan.UserProfile{
		UserID:          uuid.New(),
		Persona:         studyplan.PersonaStudent,
		Goal:            goal,
		WeeklyTimeHours: 10,
		ConsentLGPD:     true,
		Interests:       datatypes.JSONSlice[string]{"matematica"},
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

// SeedPlan creates a plan with the given outline and one week/day per section.
func SeedPlan(tb testing.TB, ctx context.Context, tx *gorm.DB, profile *studyplan.UserProfile, outline *studyplan.Outline) *studyplan.StudyPlan {
	tb.Helper()
	plan := &studyplan.StudyPlan{
		UserProfileID:    profile.ID,
		Title:            profile.Goal,
		Status:           studyplan.PlanStatusActive,
		GenerationStatus: studyplan.GenerationSucceeded,
		Metadata:         datatypes.NewJSONType(studyplan.PlanMeta{Schema: outline}),
	}
	if outline != nil {
		plan.TotalDays = len(outline.Sections)
	}
	if err := tx.WithContext(ctx).Create(plan).Error; err != nil {
		tb.Fatalf("seed plan: %v", err)
	}
	if outline == nil {
		return plan
	}
	for i, sec := range outline.Sections {
		week := &studyplan.StudyWeek{PlanID: plan.ID, WeekIndex: i + 1, Title: sec.Title, Status: studyplan.WeekStatusPending}
		if err := tx.WithContext(ctx).Create(week).Error; err != nil {
			tb.Fatalf("seed week: %v", err)
		}
		weekID := week.ID
		day := &studyplan.StudyDay{
			PlanID:   plan.ID,
			WeekID:   &weekID,
			DayIndex: i + 1,
			Title:    sec.Title,
			Status:   studyplan.ItemStatusPending,
			Metadata: datatypes.NewJSONType(studyplan.DayGenerationState{SectionID: sec.ID}),
		}
		if err := tx.WithContext(ctx).Create(day).Error; err != nil {
			tb.Fatalf("seed day: %v", err)
		}
	}
	return plan
}

func Date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
