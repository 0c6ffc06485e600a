package app

import (
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/ingest"
	"github.com/yungbote/studyplan-backend/internal/onboarding"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/services"
	"github.com/yungbote/studyplan-backend/internal/studyplan/generation"
)

type Services struct {
	Auth       services.AuthService
	Jobs       services.JobService
	StudyPlans services.StudyPlanService
	Documents  services.DocumentService
	Notifier   services.JobNotifier
	Generation *generation.Service
	Ingest     *ingest.Service
	Onboarding *onboarding.Service
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, role Role, r Repos, p *Providers, notify services.JobNotifier, tc temporalsdkclient.Client) (Services, error) {
	log.Info("Wiring services...")
	// Workers never verify tokens.
	var auth services.AuthService
	if role == RoleAPI {
		a, err := services.NewAuthService(log, cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return Services{}, fmt.Errorf("init auth service: %w", err)
		}
		auth = a
	}
	jobs := services.NewJobService(db, log, r.JobRun, notify, tc, cfg.Temporal.TaskQueue)

	gen := generation.New(generation.Deps{
		DB:        db,
		Log:       log,
		LLM:       p.LLM,
		Hierarchy: r.Hierarchy,
		Profiles:  r.Profile,
		Plans:     r.Plan,
		Days:      r.Day,
		Tasks:     r.Task,
		Docs:      r.Document,
		Search:    p.Searcher,
		Config:    cfg.Generation,
	})
	ing := ingest.NewService(db, log, r.Document, p.Store, p.Embedder)

	tools := onboarding.NewRegistry()
	if err := tools.Register(onboarding.NewCommitTool(r.Profile, gen, log), onboarding.ToolCommitStudyContext); err != nil {
		return Services{}, fmt.Errorf("register onboarding tools: %w", err)
	}

	return Services{
		Auth:       auth,
		Jobs:       jobs,
		StudyPlans: services.NewStudyPlanService(db, log, r.Profile, r.Plan, r.Day, r.Task, r.Hierarchy, jobs),
		Documents:  services.NewDocumentService(db, log, ing, r.Document, r.Profile, r.Plan, p.Searcher, jobs),
		Notifier:   notify,
		Generation: gen,
		Ingest:     ing,
		Onboarding: onboarding.NewService(p.LLM, tools, log, cfg.Onboarding),
	}, nil
}
