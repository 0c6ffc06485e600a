package section_tasks

import (
	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
	"github.com/yungbote/studyplan-backend/internal/studyplan/generation"
)

type Pipeline struct {
	log *logger.Logger
	gen *generation.Service
}

func New(baseLog *logger.Logger, gen *generation.Service) *Pipeline {
	return &Pipeline{log: baseLog.With("job", domain.TypeSectionTasks), gen: gen}
}

func (p *Pipeline) Type() string { return domain.TypeSectionTasks }
