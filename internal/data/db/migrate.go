package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
)

// EnsureExtensions enables the postgres extensions the schema relies on.
func EnsureExtensions(db *gorm.DB) error {
	if IsSQLite(db) {
		return nil
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}
	return nil
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := EnsureExtensions(db); err != nil {
		return err
	}
	if err := db.AutoMigrate(
		// Profile + plan hierarchy
		&studyplan.UserProfile{},
		&studyplan.Document{},
		&studyplan.Chunk{},
		&studyplan.StudyPlan{},
		&studyplan.StudyWeek{},
		&studyplan.StudyDay{},
		&studyplan.StudyTask{},

		// Typed task content
		&studyplan.LessonContent{},
		&studyplan.ReadingContent{},
		&studyplan.PracticeContent{},
		&studyplan.ProjectContent{},
		&studyplan.ReflectionContent{},
		&studyplan.ReviewSessionContent{},
		&studyplan.FlashcardSet{},
		&studyplan.Flashcard{},
		&studyplan.Assessment{},
		&studyplan.AssessmentItem{},

		// Jobs
		&jobs.JobRun{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
