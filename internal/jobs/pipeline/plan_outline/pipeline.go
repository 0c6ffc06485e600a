package plan_outline

import (
	"errors"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/studyplan-backend/internal/jobs/runtime"
	"github.com/yungbote/studyplan-backend/internal/studyplan/generation"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	req := generation.PlanRequest{
		UserID:       jc.Job.OwnerUserID,
		Title:        jc.PayloadString("title"),
		GoalOverride: jc.PayloadString("goal_override"),
		Mode:         jc.PayloadString("mode"),
		JobID:        jc.Job.ID.String(),
	}
	if planID, ok := jc.PayloadUUID("plan_id"); ok {
		req.PlanID = &planID
	} else if jc.Job.EntityID != nil && *jc.Job.EntityID != uuid.Nil {
		id := *jc.Job.EntityID
		req.PlanID = &id
	}

	jc.Progress("outline", 10, "Generating plan outline")
	res, err := p.gen.GeneratePlan(jc.Ctx, req)
	if err != nil {
		jc.Fail("outline", err)
		return nil
	}
	if res.Failed() {
		jc.Fail("outline", errors.New(res.Error))
		return nil
	}
	p.log.Info("plan outline generated", "job_id", jc.Job.ID, "plan_id", res.PlanID, "mode", res.Mode, "weeks", res.Weeks)
	jc.Succeed("done", res)
	return nil
}
