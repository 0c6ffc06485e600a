package section_tasks

import (
	"errors"
	"fmt"

	jobrt "github.com/yungbote/studyplan-backend/internal/jobs/runtime"
	"github.com/yungbote/studyplan-backend/internal/studyplan/generation"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	planID, ok := jc.PayloadUUID("plan_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing plan_id"))
		return nil
	}
	sectionID := jc.PayloadString("section_id")
	if sectionID == "" {
		jc.Fail("validate", fmt.Errorf("missing section_id"))
		return nil
	}

	jc.Progress("section", 10, "Generating section tasks")
	res, err := p.gen.GenerateSection(jc.Ctx, generation.SectionRequest{
		PlanID:    planID,
		SectionID: sectionID,
		Reset:     jc.PayloadBool("reset"),
		JobID:     jc.Job.ID.String(),
	})
	if err != nil {
		jc.Fail("section", err)
		return nil
	}
	if res.Failed() {
		jc.Fail("section", errors.New(res.Error))
		return nil
	}
	p.log.Info("section tasks generated", "job_id", jc.Job.ID, "section_id", sectionID, "tasks", res.Tasks)
	jc.Succeed("done", res)
	return nil
}
