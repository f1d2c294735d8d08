package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/infra/database/models"
)

type ProfileRepository struct {
	db    *gorm.DB
	users *UserRepository
}

func NewProfileRepository(db *gorm.DB, users *UserRepository) *ProfileRepository {
	return &ProfileRepository{db: db, users: users}
}

// Get loads the profile for (user, game, version). The stored blob is
// decoded back into the exact mapping that was put.
func (r *ProfileRepository) Get(ctx context.Context, user domain.UserID, game string, version int) (*arcanet.Profile, error) {
	var row models.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND game = ? AND version = ?", int64(user), game, version).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "profile"}
	}
	if err != nil {
		return nil, err
	}

	mapping := arcanet.NewMapping()
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, mapping); err != nil {
			return nil, err
		}
	}

	extid, err := r.users.EnsureExtID(ctx, game, user)
	if err != nil {
		return nil, err
	}

	return &arcanet.Profile{
		Mapping: mapping,
		Game:    game,
		Version: version,
		RefID:   row.RefID,
		ExtID:   extid,
	}, nil
}

// Put persists the profile, assigning the ExtID on first write.
func (r *ProfileRepository) Put(ctx context.Context, user domain.UserID, profile *arcanet.Profile) error {
	extid, err := r.users.EnsureExtID(ctx, profile.Game, user)
	if err != nil {
		return err
	}
	profile.ExtID = extid

	data, err := json.Marshal(profile.Mapping)
	if err != nil {
		return err
	}

	row := models.Profile{
		UserID:  int64(user),
		Game:    profile.Game,
		Version: profile.Version,
		RefID:   profile.RefID,
		Data:    data,
		MDate:   time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "game"}, {Name: "version"}},
		DoUpdates: clause.AssignmentColumns([]string{"ref_id", "data", "m_date"}),
	}).Create(&row).Error
}
