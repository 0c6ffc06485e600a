package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/studyplan-backend/internal/data/db"
	"github.com/yungbote/studyplan-backend/internal/jobs/maintenance"
	"github.com/yungbote/studyplan-backend/internal/jobs/status"
	"github.com/yungbote/studyplan-backend/internal/jobs/worker"
	"github.com/yungbote/studyplan-backend/internal/onboarding"
	"github.com/yungbote/studyplan-backend/internal/platform/envutil"
	"github.com/yungbote/studyplan-backend/internal/platform/gemini"
	"github.com/yungbote/studyplan-backend/internal/platform/objectstore"
	"github.com/yungbote/studyplan-backend/internal/platform/openai"
	"github.com/yungbote/studyplan-backend/internal/realtime/bus"
	"github.com/yungbote/studyplan-backend/internal/studyplan/generation"
	"github.com/yungbote/studyplan-backend/internal/temporalx"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	LogMode     string

	HTTPAddr        string
	ShutdownTimeout time.Duration
	AllowedOrigins  string
	MetricsAddr     string

	DatabaseURL string

	JWTSecret string
	JWTIssuer string

	LLMProvider string
	Gemini      gemini.Config
	OpenAI      openai.Config

	Storage     objectstore.Config
	Redis       bus.Config
	Temporal    temporalx.Config
	Worker      worker.Config
	JobStream   status.Config
	Generation  generation.Config
	Onboarding  onboarding.Config
	Maintenance maintenance.Config

	// ServeWorker runs the job worker inside the API process.
	ServeWorker bool
}

// fileConfig is the optional YAML override for generation tuning. Only the
// fields present in the file replace the environment values.
type fileConfig struct {
	LLM struct {
		Provider         string `yaml:"provider"`
		GeminiModel      string `yaml:"gemini_model"`
		GeminiEmbedModel string `yaml:"gemini_embed_model"`
		OpenAIModel      string `yaml:"openai_model"`
		OpenAIEmbedModel string `yaml:"openai_embed_model"`
	} `yaml:"llm"`
	Generation struct {
		OutlineMode string `yaml:"outline_mode"`
		ExcerptK    int    `yaml:"excerpt_k"`
	} `yaml:"generation"`
	Onboarding struct {
		MaxToolRounds int `yaml:"max_tool_rounds"`
		ChunkChars    int `yaml:"stream_chunk_chars"`
		ChunkDelayMS  int `yaml:"stream_chunk_delay_ms"`
	} `yaml:"onboarding"`
	Worker struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"worker"`
}

// LoadConfig reads .env (when present), the process environment and then
// the YAML file named by STUDYPLAN_CONFIG_FILE.
func LoadConfig() (Config, error) {
	envutil.LoadDotEnv()
	cfg := Config{
		ServiceName: envutil.String("SERVICE_NAME", "studyplan-api"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		LogMode:     envutil.String("LOG_MODE", "development"),

		HTTPAddr:        envutil.String("HTTP_ADDR", ":"+envutil.String("PORT", "8080")),
		ShutdownTimeout: envutil.Duration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second, time.Second),
		AllowedOrigins:  envutil.String("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		MetricsAddr:     envutil.String("METRICS_ADDR", ":9090"),

		DatabaseURL: db.DSNFromEnv(),

		JWTSecret: envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer: envutil.String("JWT_ISSUER", ""),

		LLMProvider: strings.ToLower(envutil.String("LLM_PROVIDER", ProviderGemini)),
		Gemini: gemini.Config{
			APIKey:     envutil.String("GEMINI_API_KEY", ""),
			Model:      envutil.String("GEMINI_MODEL", "gemini-1.5-flash"),
			EmbedModel: envutil.String("GEMINI_EMBED_MODEL", "text-embedding-004"),
		},
		OpenAI: openai.ConfigFromEnv(),

		Storage: objectstore.ConfigFromEnv(),
		Redis: bus.Config{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Channel:  envutil.String("REDIS_SSE_CHANNEL", "studyplan:sse"),
		},
		Temporal:  temporalx.LoadConfig(),
		Worker:    worker.ConfigFromEnv(),
		JobStream: status.ConfigFromEnv(),
		Generation: generation.Config{
			OutlineMode: strings.ToLower(envutil.String("OUTLINE_MODE", generation.OutlineModeGenerated)),
			ExcerptK:    envutil.Int("RAG_EXCERPT_K", 3),
		},
		Onboarding:  onboarding.ConfigFromEnv(),
		Maintenance: maintenance.ConfigFromEnv(),

		ServeWorker: envutil.Bool("SERVE_WORKER", true),
	}
	if path := envutil.String("STUDYPLAN_CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.validate()
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	setString(&c.LLMProvider, strings.ToLower(f.LLM.Provider))
	setString(&c.Gemini.Model, f.LLM.GeminiModel)
	setString(&c.Gemini.EmbedModel, f.LLM.GeminiEmbedModel)
	setString(&c.OpenAI.Model, f.LLM.OpenAIModel)
	setString(&c.OpenAI.EmbedModel, f.LLM.OpenAIEmbedModel)
	setString(&c.Generation.OutlineMode, strings.ToLower(f.Generation.OutlineMode))
	setInt(&c.Generation.ExcerptK, f.Generation.ExcerptK)
	setInt(&c.Onboarding.MaxRounds, f.Onboarding.MaxToolRounds)
	setInt(&c.Onboarding.ChunkChars, f.Onboarding.ChunkChars)
	if f.Onboarding.ChunkDelayMS > 0 {
		c.Onboarding.ChunkDelay = time.Duration(f.Onboarding.ChunkDelayMS) * time.Millisecond
	}
	setInt(&c.Worker.Concurrency, f.Worker.Concurrency)
	return nil
}

func (c Config) validate() error {
	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.Generation.OutlineMode {
	case generation.OutlineModeGenerated, generation.OutlineModeCalendar:
	default:
		return fmt.Errorf("unknown OUTLINE_MODE %q", c.Generation.OutlineMode)
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
