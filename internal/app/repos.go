package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/studyplan/hierarchy"
)

type Repos struct {
	JobRun    repos.JobRunRepo
	Profile   repos.ProfileRepo
	Plan      repos.PlanRepo
	Day       repos.DayRepo
	Task      repos.TaskRepo
	Document  repos.DocumentRepo
	Hierarchy *hierarchy.Repository
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		JobRun:    repos.NewJobRunRepo(db, log),
		Profile:   repos.NewProfileRepo(db, log),
		Plan:      repos.NewPlanRepo(db, log),
		Day:       repos.NewDayRepo(db, log),
		Task:      repos.NewTaskRepo(db, log),
		Document:  repos.NewDocumentRepo(db, log),
		Hierarchy: hierarchy.New(db, log),
	}
}
