package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/studyplan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studyplan-backend/internal/http/middleware"
	"github.com/yungbote/studyplan-backend/internal/observability"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	RealtimeHandler   *httpH.RealtimeHandler
	JobHandler        *httpH.JobHandler
	OnboardingHandler *httpH.OnboardingHandler
	StudyPlanHandler  *httpH.StudyPlanHandler
	AIHandler         *httpH.AIHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.Trace())
	r.Use(httpMW.AccessLog(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	if cfg.RealtimeHandler != nil {
		protected.GET("/events", cfg.RealtimeHandler.SSEStream)
	}

	if cfg.JobHandler != nil {
		protected.GET("/jobs/stream", cfg.JobHandler.StreamJob)
		protected.GET("/jobs/:id", cfg.JobHandler.GetJob)
	}

	ai := protected.Group("/ai")
	if cfg.JobHandler != nil {
		ai.GET("/jobs/stream", cfg.JobHandler.StreamJob)
		ai.GET("/jobs/:id", cfg.JobHandler.GetJob)
	}

	if cfg.OnboardingHandler != nil {
		ai.POST("/chat", cfg.OnboardingHandler.Chat)
		ai.POST("/chat/stream", cfg.OnboardingHandler.ChatStream)
	}

	if cfg.AIHandler != nil {
		ai.POST("/index", cfg.AIHandler.Index)
		ai.GET("/search", cfg.AIHandler.Search)
		ai.GET("/documents", cfg.AIHandler.ListDocuments)
	}

	if cfg.StudyPlanHandler != nil {
		h := cfg.StudyPlanHandler
		ai.GET("/study-plans", h.List)
		ai.POST("/study-plans/generate", h.Generate)
		ai.GET("/study-plans/:plan_id", h.Get)
		ai.POST("/study-plans/:plan_id/days", h.CreateDay)
		ai.POST("/study-plans/:plan_id/days/:day_id/generate", h.GenerateDay)
		ai.POST("/study-plans/:plan_id/days/:day_id/result", h.DayResult)
		ai.POST("/study-plans/:plan_id/tasks", h.GenerateSectionTasks)
		ai.POST("/study-plans/:plan_id/tasks/:task_id/progress", h.TaskProgress)
		ai.POST("/study-plans/:plan_id/materials", h.UploadMaterial)
	}

	return r
}
