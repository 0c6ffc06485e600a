// Package maintenance runs the periodic housekeeping of plans and jobs.
package maintenance

import (
	"context"
	"fmt"
	"time"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/envutil"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/studyplan/hierarchy"
)

const staleReason = "job exceeded running time limit"

type Config struct {
	WeekRefreshSpec string
	StaleSweepSpec  string
	StaleAfter      time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		WeekRefreshSpec: envutil.String("CRON_WEEK_REFRESH", "@hourly"),
		StaleSweepSpec:  envutil.String("CRON_STALE_SWEEP", "@every 30m"),
		StaleAfter:      envutil.Duration("WORKER_STALE_RUNNING", 30*time.Minute, time.Second),
	}
}

type Scheduler struct {
	log       *logger.Logger
	cron      *cronv3.Cron
	hierarchy *hierarchy.Repository
	jobs      repos.JobRunRepo
	cfg       Config
}

func New(baseLog *logger.Logger, h *hierarchy.Repository, jobs repos.JobRunRepo, cfg Config) (*Scheduler, error) {
	log := baseLog.With("component", "MaintenanceScheduler")
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 30 * time.Minute
	}
	cl := cronLogger{log: log}
	s := &Scheduler{
		log:       log,
		hierarchy: h,
		jobs:      jobs,
		cfg:       cfg,
		cron: cronv3.New(
			cronv3.WithLocation(time.UTC),
			cronv3.WithLogger(cl),
			cronv3.WithChain(cronv3.Recover(cl), cronv3.SkipIfStillRunning(cl)),
		),
	}
	if _, err := s.cron.AddFunc(cfg.WeekRefreshSpec, func() { s.RefreshWeeks(context.Background()) }); err != nil {
		return nil, fmt.Errorf("week refresh schedule %q: %w", cfg.WeekRefreshSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.StaleSweepSpec, func() { s.SweepStaleJobs(context.Background()) }); err != nil {
		return nil, fmt.Errorf("stale sweep schedule %q: %w", cfg.StaleSweepSpec, err)
	}
	return s, nil
}

// Start runs the schedule until ctx is done. Running entries finish first.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.log.Info("maintenance scheduler started", "week_refresh", s.cfg.WeekRefreshSpec, "stale_sweep", s.cfg.StaleSweepSpec)
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.log.Info("maintenance scheduler stopped")
	}()
}

// RefreshWeeks moves weeks between scheduled, active and completed by date.
func (s *Scheduler) RefreshWeeks(ctx context.Context) {
	activated, completed, err := s.hierarchy.RefreshWeekStatuses(dbctx.Context{Ctx: ctx})
	if err != nil {
		s.log.Error("week status refresh failed", "error", err)
		return
	}
	if activated+completed > 0 {
		s.log.Info("week statuses refreshed", "activated", activated, "completed", completed)
	}
}

// SweepStaleJobs fails running jobs whose heartbeat stopped.
func (s *Scheduler) SweepStaleJobs(ctx context.Context) {
	n, err := s.jobs.FailStaleRunning(dbctx.Context{Ctx: ctx}, s.cfg.StaleAfter, staleReason)
	if err != nil {
		s.log.Error("stale job sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Warn("stale jobs failed", "count", n)
	}
}

type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
