package studyplan

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type DayRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.StudyDay, error)
	GetInPlan(dbc dbctx.Context, planID, dayID uuid.UUID) (*domain.StudyDay, error)
	ListByPlan(dbc dbctx.Context, planID uuid.UUID) ([]*domain.StudyDay, error)
	// Append creates day at the next free day_index of its plan.
	Append(dbc dbctx.Context, day *domain.StudyDay) (*domain.StudyDay, error)
	// UpdateState applies fn to the day's generation state in one transaction.
	UpdateState(dbc dbctx.Context, id uuid.UUID, fn func(*domain.DayGenerationState)) error
}

type dayRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDayRepo(db *gorm.DB, baseLog *logger.Logger) DayRepo {
	return &dayRepo{db: db, log: baseLog.With("repo", "DayRepo")}
}

func (r *dayRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.StudyDay, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var day domain.StudyDay
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&day).Error; err != nil {
		return nil, err
	}
	if day.ID == uuid.Nil {
		return nil, nil
	}
	return &day, nil
}

func (r *dayRepo) GetInPlan(dbc dbctx.Context, planID, dayID uuid.UUID) (*domain.StudyDay, error) {
	if planID == uuid.Nil || dayID == uuid.Nil {
		return nil, nil
	}
	var day domain.StudyDay
	if err := dbc.DB(r.db).Where("id = ? AND plan_id = ?", dayID, planID).Limit(1).Find(&day).Error; err != nil {
		return nil, err
	}
	if day.ID == uuid.Nil {
		return nil, nil
	}
	return &day, nil
}

func (r *dayRepo) ListByPlan(dbc dbctx.Context, planID uuid.UUID) ([]*domain.StudyDay, error) {
	var out []*domain.StudyDay
	if planID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("plan_id = ?", planID).Order("day_index ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dayRepo) Append(dbc dbctx.Context, day *domain.StudyDay) (*domain.StudyDay, error) {
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		var maxIndex int
		if err := tx.Model(&domain.StudyDay{}).
			Where("plan_id = ?", day.PlanID).
			Select("COALESCE(MAX(day_index), 0)").
			Scan(&maxIndex).Error; err != nil {
			return fmt.Errorf("max day index: %w", err)
		}
		day.DayIndex = maxIndex + 1
		return tx.Create(day).Error
	})
	if err != nil {
		return nil, err
	}
	return day, nil
}

func (r *dayRepo) UpdateState(dbc dbctx.Context, id uuid.UUID, fn func(*domain.DayGenerationState)) error {
	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		var day domain.StudyDay
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&day).Error; err != nil {
			return err
		}
		state := day.State()
		fn(&state)
		return tx.Model(&day).Update("metadata", datatypes.NewJSONType(state)).Error
	})
}
