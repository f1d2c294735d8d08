package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/infra/database/models"
)

type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func settingFromModel(row models.Setting) (*domain.TimeSensitiveSetting, error) {
	mapping, err := decodeMapping(row.Data)
	if err != nil {
		return nil, err
	}
	return &domain.TimeSensitiveSetting{
		Game:      row.Game,
		Version:   row.Version,
		Name:      row.Name,
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		Data:      mapping,
	}, nil
}

// GetTimeSensitiveSetting returns the setting covering now. A row whose
// window has already closed is dropped instead of returned.
func (r *ScheduleRepository) GetTimeSensitiveSetting(ctx context.Context, game string, version int, name string, now time.Time) (*domain.TimeSensitiveSetting, error) {
	var row models.Setting
	err := r.db.WithContext(ctx).
		Where("game = ? AND version = ? AND name = ?", game, version, name).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "time sensitive setting"}
	}
	if err != nil {
		return nil, err
	}
	setting, err := settingFromModel(row)
	if err != nil {
		return nil, err
	}
	if !setting.Active(now) {
		if err := r.db.WithContext(ctx).
			Where("game = ? AND version = ? AND name = ?", game, version, name).
			Delete(&models.Setting{}).Error; err != nil {
			return nil, err
		}
		return nil, domain.NotFoundError{Resource: "time sensitive setting"}
	}
	return setting, nil
}

func (r *ScheduleRepository) PutTimeSensitiveSetting(ctx context.Context, setting *domain.TimeSensitiveSetting) error {
	data, err := json.Marshal(setting.Data)
	if err != nil {
		return err
	}
	row := models.Setting{
		Game:      setting.Game,
		Version:   setting.Version,
		Name:      setting.Name,
		StartTime: setting.StartTime,
		EndTime:   setting.EndTime,
		Data:      data,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game"}, {Name: "version"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"start_time", "end_time", "data"}),
	}).Create(&row).Error
}

// LastScheduled reports the boundary the named job last ran at, or the
// zero time if it has never run.
func (r *ScheduleRepository) LastScheduled(ctx context.Context, game string, version int, name, cadence string) (time.Time, error) {
	var row models.ScheduledWork
	err := r.db.WithContext(ctx).
		Where("game = ? AND version = ? AND name = ? AND cadence = ?", game, version, name, cadence).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return row.Boundary, nil
}

// MarkScheduled advances the job's boundary. Returns true when this call
// won the rollover, false when another cabinet already advanced it.
func (r *ScheduleRepository) MarkScheduled(ctx context.Context, game string, version int, name, cadence string, boundary time.Time) (bool, error) {
	won := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.ScheduledWork
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("game = ? AND version = ? AND name = ? AND cadence = ?", game, version, name, cadence).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.ScheduledWork{
				Game:     game,
				Version:  version,
				Name:     name,
				Cadence:  cadence,
				Boundary: boundary,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			won = true
			return nil
		}
		if err != nil {
			return err
		}
		if !row.Boundary.Before(boundary) {
			return nil
		}
		if err := tx.Model(&models.ScheduledWork{}).
			Where("game = ? AND version = ? AND name = ? AND cadence = ?", game, version, name, cadence).
			Update("boundary", boundary).Error; err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}
