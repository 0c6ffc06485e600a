package studyplan

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type TaskRepo interface {
	GetInPlan(dbc dbctx.Context, planID, taskID uuid.UUID) (*domain.StudyTask, error)
	ListByDayIDs(dbc dbctx.Context, dayIDs []uuid.UUID) ([]*domain.StudyTask, error)
	// UpdateProgress stores progress in the task metadata and mirrors its status.
	UpdateProgress(dbc dbctx.Context, id uuid.UUID, progress domain.TaskProgress) (*domain.StudyTask, error)
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (r *taskRepo) GetInPlan(dbc dbctx.Context, planID, taskID uuid.UUID) (*domain.StudyTask, error) {
	if planID == uuid.Nil || taskID == uuid.Nil {
		return nil, nil
	}
	var task domain.StudyTask
	err := dbc.DB(r.db).
		Joins("JOIN study_day ON study_day.id = study_task.day_id").
		Where("study_task.id = ? AND study_day.plan_id = ?", taskID, planID).
		Limit(1).
		Find(&task).Error
	if err != nil {
		return nil, err
	}
	if task.ID == uuid.Nil {
		return nil, nil
	}
	return &task, nil
}

func (r *taskRepo) ListByDayIDs(dbc dbctx.Context, dayIDs []uuid.UUID) ([]*domain.StudyTask, error) {
	var out []*domain.StudyTask
	if len(dayIDs) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("day_id IN ?", dayIDs).Order("task_order ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *taskRepo) UpdateProgress(dbc dbctx.Context, id uuid.UUID, progress domain.TaskProgress) (*domain.StudyTask, error) {
	var task domain.StudyTask
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&task).Error; err != nil {
			return err
		}
		meta := task.Metadata.Data()
		meta.Progress = &progress
		task.Metadata = datatypes.NewJSONType(meta)
		updates := map[string]interface{}{"metadata": task.Metadata}
		if progress.Status != "" {
			task.Status = progress.Status
			updates["status"] = progress.Status
		}
		return tx.Model(&task).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}
