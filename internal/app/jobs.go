package app

import (
	"github.com/yungbote/studyplan-backend/internal/jobs/pipeline/day_tasks"
	"github.com/yungbote/studyplan-backend/internal/jobs/pipeline/document_ingest"
	"github.com/yungbote/studyplan-backend/internal/jobs/pipeline/plan_outline"
	"github.com/yungbote/studyplan-backend/internal/jobs/pipeline/section_tasks"
	"github.com/yungbote/studyplan-backend/internal/jobs/runtime"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

func wireJobRegistry(log *logger.Logger, s Services) *runtime.Registry {
	reg := runtime.NewRegistry()
	reg.MustRegister(
		plan_outline.New(log, s.Generation),
		day_tasks.New(log, s.Generation),
		section_tasks.New(log, s.Generation),
		document_ingest.New(log, s.Ingest),
	)
	log.Info("Job handlers registered", "types", reg.Types())
	return reg
}
