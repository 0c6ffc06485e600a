package day_tasks

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
	dayID, ok := jc.PayloadUUID("day_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing day_id"))
		return nil
	}
	reset := true
	if _, set := jc.Payload()["reset"]; set {
		reset = jc.PayloadBool("reset")
	}

	jc.Progress("day", 10, "Generating day tasks")
	res, err := p.gen.GenerateDay(jc.Ctx, generation.DayRequest{
		PlanID: planID,
		DayID:  dayID,
		Reset:  reset,
		JobID:  jc.Job.ID.String(),
	})
	if err != nil {
		jc.Fail("day", err)
		return nil
	}
	if res.Failed() {
		jc.Fail("day", errors.New(res.Error))
		return nil
	}
	p.log.Info("day tasks generated", "job_id", jc.Job.ID, "day_id", dayID, "tasks", res.Tasks)
	jc.Succeed("done", res)
	return nil
}
