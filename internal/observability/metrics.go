package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/platform/envutil"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *GaugeVec
	jobRuns     *CounterVec
	jobLatency  *HistogramVec
	llmRequests *CounterVec
	llmLatency  *HistogramVec
	queueDepth  *GaugeVec
	redisUp     *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Current is nil until Init ran with metrics enabled. Every method is
// nil-safe.
func Current() *Metrics { return instance }

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("studyplan_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec("studyplan_api_request_duration_seconds", "API latency in seconds.",
			[]string{"method", "route"}, []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30}),
		apiInflight: NewGaugeVec("studyplan_api_inflight_requests", "In-flight API requests.", nil),
		jobRuns:     NewCounterVec("studyplan_job_runs_total", "Finished job runs by type/status.", []string{"job_type", "status"}),
		jobLatency: NewHistogramVec("studyplan_job_duration_seconds", "Job run duration in seconds.",
			[]string{"job_type"}, []float64{0.5, 1, 5, 10, 30, 60, 120, 300}),
		llmRequests: NewCounterVec("studyplan_llm_requests_total", "Model calls by schema/status.", []string{"schema", "status"}),
		llmLatency: NewHistogramVec("studyplan_llm_request_duration_seconds", "Model call latency in seconds.",
			[]string{"schema"}, []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}),
		queueDepth: NewGaugeVec("studyplan_job_queue_depth", "job_run rows by status.", []string{"status"}),
		redisUp:    NewGaugeVec("studyplan_redis_up", "1 when the SSE bus redis answers ping.", nil),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflight(delta float64) {
	if m == nil {
		return
	}
	m.apiInflight.Add(delta)
}

func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.Inc(jobType, status)
	m.jobLatency.Observe(dur.Seconds(), jobType)
}

func (m *Metrics) ObserveLLM(schema string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	if schema == "" {
		schema = "chat"
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmRequests.Inc(schema, status)
	m.llmLatency.Observe(dur.Seconds(), schema)
}

func (m *Metrics) JobRuns(jobType, status string) float64 {
	if m == nil {
		return 0
	}
	return m.jobRuns.Value(jobType, status)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, wr := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.jobRuns, m.jobLatency,
		m.llmRequests, m.llmLatency,
		m.queueDepth, m.redisUp,
	} {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

// StartServer serves /metrics on its own listener until ctx ends.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	addr = strings.TrimSpace(addr)
	if m == nil || addr == "" {
		return
	}
	srv := &http.Server{Addr: addr, Handler: http.HandlerFunc(m.WriteHTTP), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func scrapeInterval() time.Duration {
	return envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second, time.Second)
}

// CollectJobQueue refreshes the queue depth gauge once.
func (m *Metrics) CollectJobQueue(ctx context.Context, db *gorm.DB) error {
	if m == nil || db == nil {
		return nil
	}
	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.WithContext(ctx).Model(&domain.JobRun{}).Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return err
	}
	for _, s := range []string{domain.StatusQueued, domain.StatusRunning, domain.StatusSucceeded, domain.StatusFailed} {
		m.queueDepth.Set(0, s)
	}
	for _, row := range rows {
		m.queueDepth.Set(float64(row.Count), row.Status)
	}
	return nil
}

func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go every(ctx, scrapeInterval(), func() {
		if err := m.CollectJobQueue(ctx, db); err != nil {
			log.Warn("metrics: job queue depth query failed", "error", err)
		}
	})
}

// StartRedisCollector pings the SSE bus redis and records whether it is up.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	addr = strings.TrimSpace(addr)
	if m == nil || addr == "" {
		return
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		defer rdb.Close()
		every(ctx, scrapeInterval(), func() {
			if err := rdb.Ping(ctx).Err(); err != nil {
				m.redisUp.Set(0)
				log.Warn("metrics: redis ping failed", "error", err)
				return
			}
			m.redisUp.Set(1)
		})
	}()
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func parseFloat(raw string) (float64, error) { return strconv.ParseFloat(strings.TrimSpace(raw), 64) }
