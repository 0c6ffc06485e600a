package runtime

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Handler executes one job type.
type Handler interface {
	Type() string
	Run(ctx *Context) error
}

// Registry maps job types to handlers. It is filled during wiring and only
// read once workers start.
type Registry struct {
	byType map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{byType: map[string]Handler{}}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("register: nil handler")
	}
	jobType := strings.TrimSpace(h.Type())
	if jobType == "" {
		return fmt.Errorf("register %T: empty job type", h)
	}
	if prev, dup := r.byType[jobType]; dup {
		return fmt.Errorf("register %T: job type %q already handled by %T", h, jobType, prev)
	}
	r.byType[jobType] = h
	return nil
}

func (r *Registry) MustRegister(hs ...Handler) {
	for _, h := range hs {
		if err := r.Register(h); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	h, ok := r.byType[jobType]
	return h, ok
}

func (r *Registry) Types() []string {
	return slices.Sorted(maps.Keys(r.byType))
}
