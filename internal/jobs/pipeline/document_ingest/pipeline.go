package document_ingest

import (
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/studyplan-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	docID, ok := jc.PayloadUUID("document_id")
	if !ok && jc.Job.EntityID != nil {
		docID, ok = *jc.Job.EntityID, *jc.Job.EntityID != uuid.Nil
	}
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing document_id"))
		return nil
	}
	var planID *uuid.UUID
	if id, ok := jc.PayloadUUID("plan_id"); ok {
		planID = &id
	}

	jc.Progress("ingest", 10, "Indexing material")
	n, err := p.ingest.IngestDocument(jc.Ctx, docID, planID, jc.Job.ID.String())
	if err != nil {
		jc.Fail("ingest", err)
		return nil
	}
	p.log.Info("document ingested", "job_id", jc.Job.ID, "document_id", docID, "chunks", n)
	jc.Succeed("done", map[string]any{
		"status":      "succeeded",
		"document_id": docID.String(),
		"chunks":      n,
	})
	return nil
}
