package onboarding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studyplan-backend/internal/data/repos"
	"github.com/yungbote/studyplan-backend/internal/llm"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/studyplan/generation"
)

const (
	ToolCommitUserContext  = "commit_user_context"
	ToolCommitStudyContext = "commit_study_context"

	toolStatusOK    = "ok"
	toolStatusError = "error"
)

// Tool is one function the onboarding model may call on behalf of a user.
type Tool interface {
	Declaration() llm.Tool
	Call(ctx context.Context, userID uuid.UUID, args map[string]any) (map[string]any, error)
}

// Planner builds the outline of a freshly committed profile.
type Planner interface {
	GeneratePlan(ctx context.Context, req generation.PlanRequest) (*generation.Result, error)
}

// Registry maps tool names, including aliases, to tools.
type Registry struct {
	tools   map[string]Tool
	ordered []Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds t under its declared name and every alias.
func (r *Registry) Register(t Tool, aliases ...string) error {
	name := t.Declaration().Name
	for _, n := range append([]string{name}, aliases...) {
		if _, dup := r.tools[n]; dup {
			return fmt.Errorf("tool %q already registered", n)
		}
	}
	r.tools[name] = t
	for _, a := range aliases {
		r.tools[a] = t
	}
	r.ordered = append(r.ordered, t)
	return nil
}

// Declarations lists the tools offered to the model. Aliases are accepted on
// dispatch but never advertised.
func (r *Registry) Declarations() []llm.Tool {
	out := make([]llm.Tool, 0, len(r.ordered))
	for _, t := range r.ordered {
		out = append(out, t.Declaration())
	}
	return out
}

// Dispatch runs the named tool. An unknown name is answered with an error
// payload for the model instead of a Go error.
func (r *Registry) Dispatch(ctx context.Context, userID uuid.UUID, name string, args map[string]any) (map[string]any, error) {
	t, ok := r.tools[name]
	if !ok {
		return map[string]any{"status": toolStatusError, "message": "Unknown tool " + name}, nil
	}
	if args == nil {
		args = map[string]any{}
	}
	return t.Call(ctx, userID, args)
}

// DispatchCall is Dispatch for a decoded model call. Arguments the backend
// could not decode are answered with an error payload so the model can retry.
func (r *Registry) DispatchCall(ctx context.Context, userID uuid.UUID, call llm.FunctionCall) (map[string]any, error) {
	if call.ArgsError != "" {
		return map[string]any{"status": toolStatusError, "message": "Invalid arguments for " + call.Name + ": " + call.ArgsError}, nil
	}
	return r.Dispatch(ctx, userID, call.Name, call.Args)
}

// CommitTool creates or updates the caller's profile and then builds the
// first outline for it.
type CommitTool struct {
	profiles repos.ProfileRepo
	planner  Planner
	log      *logger.Logger
	now      func() time.Time
}

func NewCommitTool(profiles repos.ProfileRepo, planner Planner, baseLog *logger.Logger) *CommitTool {
	return &CommitTool{
		profiles: profiles,
		planner:  planner,
		log:      baseLog.With("component", "CommitTool"),
		now:      time.Now,
	}
}

func (t *CommitTool) Declaration() llm.Tool {
	str := map[string]any{"type": "string"}
	strList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	return llm.Tool{
		Name:        ToolCommitUserContext,
		Description: "Cria/atualiza o contexto do usuário autenticado.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"persona":                     map[string]any{"type": "string", "enum": []any{"student", "teacher", "other"}},
				"goal":                        str,
				"deadline":                    map[string]any{"type": "string", "format": "date"},
				"weekly_time_hours":           map[string]any{"type": "integer", "minimum": 0},
				"study_routine":               str,
				"background_level":            str,
				"background_institution_type": str,
				"self_assessment":             map[string]any{"type": "object"},
				"diagnostic_status":           str,
				"diagnostic_snapshot":         strList,
				"interests":                   strList,
				"preferences_formats":         strList,
				"preferences_language":        str,
				"preferences_accessibility":   strList,
				"tech_device":                 str,
				"tech_connectivity":           str,
				"notifications":               str,
				"consent_lgpd":                map[string]any{"type": "boolean"},
			},
			"required":             []any{"persona", "goal", "deadline", "weekly_time_hours", "consent_lgpd"},
			"additionalProperties": true,
		},
	}
}

// Call returns a *ValidationError when the arguments cannot be coerced.
// A failed outline does not undo the commit; it is reported in plan_status.
func (t *CommitTool) Call(ctx context.Context, userID uuid.UUID, args map[string]any) (map[string]any, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("commit without an authenticated user")
	}
	dbc := dbctx.Context{Ctx: ctx}
	existing, err := t.profiles.GetByUserID(dbc, userID)
	if err != nil {
		return nil, err
	}
	profile, err := ApplyArgs(existing, args, t.now())
	if err != nil {
		return nil, err
	}
	profile.UserID = userID
	saved, err := t.profiles.Upsert(dbc, profile)
	if err != nil {
		return nil, err
	}
	id := saved.ID.String()
	out := map[string]any{
		"status":           toolStatusOK,
		"user_context_id":  id,
		"study_context_id": id,
	}
	if t.planner == nil {
		return out, nil
	}

	res, err := t.planner.GeneratePlan(ctx, generation.PlanRequest{UserID: userID, ProfileID: saved.ID})
	if err != nil {
		return nil, err
	}
	out["plan_status"] = res.Status
	if res.PlanID != "" {
		out["plan_id"] = res.PlanID
	}
	if res.Failed() {
		out["plan_error"] = res.Error
		t.log.WithContext(ctx).Warn("initial outline failed", "user_id", userID, "error", res.Error)
	}
	return out, nil
}
