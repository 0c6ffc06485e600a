// Package generation drives one pipeline stage at a time: outline, day tasks
// and section tasks. Each call resolves its targets, marks them running,
// prompts the model and persists the parsed payload through the hierarchy
// repository. Failures end up in the returned Result and on the affected rows.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	"github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/llm"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/retrieval"
	"github.com/yungbote/studyplan-backend/internal/studyplan/hierarchy"
	"github.com/yungbote/studyplan-backend/internal/studyplan/prompts"
)

const (
	OutlineModeGenerated = "generated"
	OutlineModeCalendar  = "calendar"

	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Config struct {
	OutlineMode string
	ExcerptK    int
}

type Deps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	LLM       *llm.Client
	Hierarchy *hierarchy.Repository
	Profiles  repos.ProfileRepo
	Plans     repos.PlanRepo
	Days      repos.DayRepo
	Tasks     repos.TaskRepo
	Docs      repos.DocumentRepo
	// Search is optional. Without it prompts carry no excerpts.
	Search retrieval.Searcher
	Config Config
}

type Service struct {
	db        *gorm.DB
	log       *logger.Logger
	llm       *llm.Client
	hierarchy *hierarchy.Repository
	profiles  repos.ProfileRepo
	plans     repos.PlanRepo
	days      repos.DayRepo
	tasks     repos.TaskRepo
	docs      repos.DocumentRepo
	search    retrieval.Searcher
	cfg       Config
}

func New(d Deps) *Service {
	cfg := d.Config
	if cfg.OutlineMode == "" {
		cfg.OutlineMode = OutlineModeGenerated
	}
	if cfg.ExcerptK <= 0 {
		cfg.ExcerptK = retrieval.DefaultK
	}
	return &Service{
		db:        d.DB,
		log:       d.Log.With("service", "PlanGeneration"),
		llm:       d.LLM,
		hierarchy: d.Hierarchy,
		profiles:  d.Profiles,
		plans:     d.Plans,
		days:      d.Days,
		tasks:     d.Tasks,
		docs:      d.Docs,
		search:    d.Search,
		cfg:       cfg,
	}
}

// Result is what a generation job reports. A failed Result is a normal
// return value; only infrastructure errors before any target was resolved
// come back as error.
type Result struct {
	Status    string `json:"status"`
	PlanID    string `json:"plan_id,omitempty"`
	DayID     string `json:"day_id,omitempty"`
	SectionID string `json:"section_id,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Weeks     int    `json:"weeks,omitempty"`
	Days      int    `json:"days,omitempty"`
	Tasks     int    `json:"tasks,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (r *Result) Failed() bool { return r != nil && r.Status == StatusFailed }

func failed(format string, args ...any) *Result {
	return &Result{Status: StatusFailed, Error: fmt.Sprintf(format, args...)}
}

// setPlanStatus writes the plan-level attempt fields under the plan row lock.
// jobID is left untouched when nil.
func (s *Service) setPlanStatus(ctx context.Context, planID uuid.UUID, status string, jobID *string, lastError string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.hierarchy.LockPlan(tx, planID); err != nil {
			return err
		}
		updates := map[string]interface{}{
			"generation_status": status,
			"last_error":        lastError,
		}
		if jobID != nil {
			updates["job_id"] = *jobID
		}
		return s.plans.UpdateFields(dbctx.Context{Ctx: ctx, Tx: tx}, planID, updates)
	})
}

// documentsFor returns the plan's linked documents, or every document of the
// owner when the plan has none.
func (s *Service) documentsFor(ctx context.Context, plan *studyplan.StudyPlan, ownerID uuid.UUID) []studyplan.Document {
	if plan != nil && plan.ID != uuid.Nil {
		var linked []studyplan.Document
		if err := s.db.WithContext(ctx).Model(plan).Association("RagDocuments").Find(&linked); err != nil {
			s.log.Warn("load plan documents failed", "plan_id", plan.ID, "error", err)
		} else if len(linked) > 0 {
			return linked
		}
	}
	docs, err := s.docs.ListByOwner(dbctx.Context{Ctx: ctx}, ownerID)
	if err != nil {
		s.log.Warn("load owner documents failed", "owner_id", ownerID, "error", err)
		return nil
	}
	return docs
}

// excerpts queries the retrieval collaborator. Errors are logged and the
// prompt is built without excerpts.
func (s *Service) excerpts(ctx context.Context, ownerID uuid.UUID, docs []studyplan.Document, query string) []prompts.Excerpt {
	query = strings.TrimSpace(query)
	if s.search == nil || query == "" || len(docs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	hits, err := s.search.Search(ctx, query, s.cfg.ExcerptK, retrieval.WithOwner(ownerID), retrieval.WithDocuments(ids))
	if err != nil {
		s.log.Warn("retrieval failed", "query", query, "error", err)
		return nil
	}
	out := make([]prompts.Excerpt, 0, len(hits))
	for _, h := range hits {
		out = append(out, prompts.Excerpt{Text: h.Text, Score: h.Score})
	}
	return out
}

func (s *Service) generate(ctx context.Context, p prompts.Prompt) (*llm.Response, error) {
	return s.llm.Generate(ctx, llm.Request{
		System:     p.System,
		History:    []llm.Message{llm.TextMessage(llm.RoleUser, p.User)},
		Schema:     p.Schema,
		SchemaName: p.SchemaName,
	})
}

func (s *Service) profileOfPlan(ctx context.Context, plan *studyplan.StudyPlan) (*studyplan.UserProfile, error) {
	return s.profiles.GetByID(dbctx.Context{Ctx: ctx}, plan.UserProfileID)
}

func strPtr(s string) *string { return &s }
