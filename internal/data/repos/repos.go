package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/data/repos/jobs"
	"github.com/yungbote/studyplan-backend/internal/data/repos/studyplan"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type JobRunRepo = jobs.JobRunRepo

type ProfileRepo = studyplan.ProfileRepo
type PlanRepo = studyplan.PlanRepo
type DayRepo = studyplan.DayRepo
type TaskRepo = studyplan.TaskRepo
type DocumentRepo = studyplan.DocumentRepo

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return studyplan.NewProfileRepo(db, baseLog)
}
func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
	return studyplan.NewPlanRepo(db, baseLog)
}
func NewDayRepo(db *gorm.DB, baseLog *logger.Logger) DayRepo { return studyplan.NewDayRepo(db, baseLog) }
func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return studyplan.NewTaskRepo(db, baseLog)
}
func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return studyplan.NewDocumentRepo(db, baseLog)
}
