package app

import (
	"gorm.io/gorm"

	apihttp "github.com/yungbote/studyplan-backend/internal/http"
	httpH "github.com/yungbote/studyplan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studyplan-backend/internal/http/middleware"
	"github.com/yungbote/studyplan-backend/internal/observability"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/realtime"
)

func wireServer(db *gorm.DB, log *logger.Logger, cfg Config, s Services, hub *realtime.SSEHub, metrics *observability.Metrics) *apihttp.Server {
	log.Info("Wiring handlers and router...")
	return apihttp.NewServer(apihttp.RouterConfig{
		Log:            log,
		ServiceName:    cfg.ServiceName,
		AllowedOrigins: httpMW.ParseOrigins(cfg.AllowedOrigins),
		Metrics:        metrics,

		AuthMiddleware: httpMW.NewAuthMiddleware(log, s.Auth),

		HealthHandler:     httpH.NewHealthHandler(db),
		RealtimeHandler:   httpH.NewRealtimeHandler(log, hub),
		JobHandler:        httpH.NewJobHandler(log, s.Jobs, cfg.JobStream),
		OnboardingHandler: httpH.NewOnboardingHandler(log, s.Onboarding),
		StudyPlanHandler:  httpH.NewStudyPlanHandler(log, s.StudyPlans, s.Documents),
		AIHandler:         httpH.NewAIHandler(log, s.Documents),
	})
}
