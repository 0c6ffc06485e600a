package document_ingest

import (
	domain "github.com/yungbote/studyplan-backend/internal/domain/jobs"
	"github.com/yungbote/studyplan-backend/internal/ingest"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type Pipeline struct {
	log    *logger.Logger
	ingest *ingest.Service
}

func New(baseLog *logger.Logger, svc *ingest.Service) *Pipeline {
	return &Pipeline{log: baseLog.With("job", domain.TypeDocumentIngest), ingest: svc}
}

func (p *Pipeline) Type() string { return domain.TypeDocumentIngest }
