package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	temporalsdkclient "go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/data/db"
	apihttp "github.com/yungbote/studyplan-backend/internal/http"
	"github.com/yungbote/studyplan-backend/internal/jobs/maintenance"
	"github.com/yungbote/studyplan-backend/internal/jobs/worker"
	"github.com/yungbote/studyplan-backend/internal/observability"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/realtime"
	"github.com/yungbote/studyplan-backend/internal/realtime/bus"
	"github.com/yungbote/studyplan-backend/internal/services"
	"github.com/yungbote/studyplan-backend/internal/temporalx"
	"github.com/yungbote/studyplan-backend/internal/temporalx/temporalworker"
)

// Role selects what a process runs: the HTTP API (optionally with the job
// worker) or the job worker alone.
type Role int

const (
	RoleAPI Role = iota
	RoleWorker
)

type App struct {
	Log       *logger.Logger
	Cfg       Config
	DB        *gorm.DB
	Repos     Repos
	Services  Services
	Hub       *realtime.SSEHub
	Metrics   *observability.Metrics
	Server    *apihttp.Server
	Worker    *worker.Worker
	Scheduler *maintenance.Scheduler

	role         Role
	pg           *db.PostgresService
	providers    *Providers
	bus          *bus.RedisBus
	temporal     temporalsdkclient.Client
	otelShutdown func(context.Context) error
}

func New(ctx context.Context, cfg Config, log *logger.Logger, role Role) (*App, error) {
	a := &App{Log: log, Cfg: cfg, role: role}
	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	if observability.Enabled() {
		a.Metrics = observability.Init(log)
	}

	pg, err := db.NewPostgresService(cfg.DatabaseURL, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.pg = pg
	a.DB = pg.DB()
	if err := db.AutoMigrateAll(a.DB); err != nil {
		a.Close()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	a.Repos = wireRepos(a.DB, log)

	a.providers, err = wireProviders(ctx, cfg, a.DB, cfg.DatabaseURL, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Hub = realtime.NewSSEHub(log)
	var publisher realtime.Publisher
	if cfg.Redis.Addr != "" {
		b, err := bus.NewRedisBus(cfg.Redis, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init SSE bus: %w", err)
		}
		a.bus = b
		publisher = b
	}
	notify := services.NewJobNotifier(realtime.NewEmitter(a.Hub, publisher, log))

	a.temporal, err = temporalx.NewClient(cfg.Temporal, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init temporal: %w", err)
	}

	a.Services, err = wireServices(a.DB, log, cfg, role, a.Repos, a.providers, notify, a.temporal)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Worker = worker.NewWorker(a.DB, log, a.Repos.JobRun, wireJobRegistry(log, a.Services), notify, cfg.Worker)
	a.Scheduler, err = maintenance.New(log, a.Repos.Hierarchy, a.Repos.JobRun, cfg.Maintenance)
	if err != nil {
		a.Close()
		return nil, err
	}

	if role == RoleAPI {
		a.Server = wireServer(a.DB, log, cfg, a.Services, a.Hub, a.Metrics)
	}
	return a, nil
}

// Router exposes the gin engine, mostly for tests.
func (a *App) Router() *gin.Engine {
	if a == nil || a.Server == nil {
		return nil
	}
	return a.Server.Engine
}

// Run blocks until ctx ends or a component fails. The API role serves HTTP
// and, when ServeWorker is set, also runs jobs and the maintenance schedule.
func (a *App) Run(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if a.Metrics != nil {
		a.Metrics.StartServer(gctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartJobQueueCollector(gctx, a.Log, a.DB)
		a.Metrics.StartRedisCollector(gctx, a.Log, a.Cfg.Redis.Addr)
	}

	runJobs := a.role == RoleWorker || a.Cfg.ServeWorker
	if runJobs {
		a.Scheduler.Start(gctx)
		g.Go(func() error { return a.runJobs(gctx) })
	}

	if a.role == RoleAPI {
		if a.bus != nil {
			g.Go(func() error { return a.bus.Run(gctx, a.Hub.Broadcast) })
		}
		g.Go(func() error { return a.Server.Run(gctx, a.Cfg.HTTPAddr, a.Cfg.ShutdownTimeout) })
	}
	return g.Wait()
}

func (a *App) runJobs(ctx context.Context) error {
	if a.temporal != nil {
		runner, err := temporalworker.NewRunner(a.Log, a.Cfg.Temporal, a.temporal, a.Repos.JobRun, a.Worker, a.Cfg.Worker.Concurrency)
		if err != nil {
			return err
		}
		if err := runner.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
		<-ctx.Done()
		return nil
	}
	a.Worker.Start(ctx)
	<-ctx.Done()
	a.Worker.Wait()
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.temporal != nil {
		a.temporal.Close()
		a.temporal = nil
	}
	if a.bus != nil {
		_ = a.bus.Close()
		a.bus = nil
	}
	if a.providers != nil {
		a.providers.Close()
		a.providers = nil
	}
	if a.pg != nil {
		_ = a.pg.Close()
		a.pg = nil
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
		a.otelShutdown = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

// Migrate opens the database, enables extensions and migrates every model.
func Migrate(cfg Config, log *logger.Logger) error {
	pg, err := db.NewPostgresService(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	defer pg.Close()
	if err := db.AutoMigrateAll(pg.DB()); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	log.Info("Migrations applied")
	return nil
}
