package studyplan

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type PlanRepo interface {
	Create(dbc dbctx.Context, plan *domain.StudyPlan) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.StudyPlan, error)
	GetForProfile(dbc dbctx.Context, profileID, planID uuid.UUID) (*domain.StudyPlan, error)
	GetTree(dbc dbctx.Context, id uuid.UUID) (*domain.StudyPlan, error)
	LatestForProfile(dbc dbctx.Context, profileID uuid.UUID) (*domain.StudyPlan, error)
	ListForProfile(dbc dbctx.Context, profileID uuid.UUID) ([]*domain.StudyPlan, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type planRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
	return &planRepo{db: db, log: baseLog.With("repo", "PlanRepo")}
}

func (r *planRepo) Create(dbc dbctx.Context, plan *domain.StudyPlan) error {
	return dbc.DB(r.db).Create(plan).Error
}

func (r *planRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.StudyPlan, error) {
	return r.first(dbc.DB(r.db).Where("id = ?", id))
}

// GetForProfile returns the plan only when it belongs to the profile.
func (r *planRepo) GetForProfile(dbc dbctx.Context, profileID, planID uuid.UUID) (*domain.StudyPlan, error) {
	if profileID == uuid.Nil || planID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("id = ? AND user_profile_id = ?", planID, profileID))
}

// GetTree loads the plan with weeks, days, tasks and every content variant.
func (r *planRepo) GetTree(dbc dbctx.Context, id uuid.UUID) (*domain.StudyPlan, error) {
	q := dbc.DB(r.db).
		Preload("Weeks", func(db *gorm.DB) *gorm.DB { return db.Order("week_index ASC") }).
		Preload("Days", func(db *gorm.DB) *gorm.DB { return db.Order("day_index ASC") }).
		Preload("Days.Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("task_order ASC") }).
		Preload("Days.Tasks.Lesson").
		Preload("Days.Tasks.Reading").
		Preload("Days.Tasks.Practice").
		Preload("Days.Tasks.Project").
		Preload("Days.Tasks.Reflection").
		Preload("Days.Tasks.Review").
		Preload("Days.Tasks.FlashcardSet.Cards", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Days.Tasks.Assessment.Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("RagDocuments").
		Where("id = ?", id)
	return r.first(q)
}

func (r *planRepo) LatestForProfile(dbc dbctx.Context, profileID uuid.UUID) (*domain.StudyPlan, error) {
	if profileID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc.DB(r.db).Where("user_profile_id = ?", profileID).Order("generated_at DESC"))
}

func (r *planRepo) ListForProfile(dbc dbctx.Context, profileID uuid.UUID) ([]*domain.StudyPlan, error) {
	var out []*domain.StudyPlan
	if profileID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Preload("Weeks", func(db *gorm.DB) *gorm.DB { return db.Order("week_index ASC") }).
		Where("user_profile_id = ?", profileID).
		Order("generated_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *planRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&domain.StudyPlan{}).Where("id = ?", id).Updates(updates).Error
}

func (r *planRepo) first(q *gorm.DB) (*domain.StudyPlan, error) {
	var plan domain.StudyPlan
	if err := q.Limit(1).Find(&plan).Error; err != nil {
		return nil, err
	}
	if plan.ID == uuid.Nil {
		return nil, nil
	}
	return &plan, nil
}
