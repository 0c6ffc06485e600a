package studyplan

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/studyplan-backend/internal/domain/studyplan"
	"github.com/yungbote/studyplan-backend/internal/pkg/dbctx"
	"github.com/yungbote/studyplan-backend/internal/platform/logger"
)

type ProfileRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.UserProfile, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.UserProfile, error)
	Upsert(dbc dbctx.Context, p *domain.UserProfile) (*domain.UserProfile, error)
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

func (r *profileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.UserProfile, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var p domain.UserProfile
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *profileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var p domain.UserProfile
	if err := dbc.DB(r.db).Where("user_id = ?", userID).Limit(1).Find(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

// Upsert writes the profile of p.UserID, keeping the identity of an existing row.
func (r *profileRepo) Upsert(dbc dbctx.Context, p *domain.UserProfile) (*domain.UserProfile, error) {
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		var existing domain.UserProfile
		if err := tx.Where("user_id = ?", p.UserID).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if existing.ID == uuid.Nil {
			return tx.Create(p).Error
		}
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		return tx.Save(p).Error
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
