package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/infra/database/models"
)

type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) Get(ctx context.Context, userID domain.UserID, game string) (*domain.PlayStatistics, error) {
	var row models.PlayStatistics
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND game = ?", userID, game).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "play statistics"}
	}
	if err != nil {
		return nil, err
	}
	return &domain.PlayStatistics{
		UserID:          domain.UserID(row.UserID),
		Game:            row.Game,
		TotalPlays:      row.TotalPlays,
		TodayPlays:      row.TodayPlays,
		TotalDays:       row.TotalDays,
		ConsecutiveDays: row.ConsecutiveDays,
		LastPlayedAt:    row.LastPlayedAt,
	}, nil
}

func (r *StatsRepository) Put(ctx context.Context, stats *domain.PlayStatistics) error {
	row := models.PlayStatistics{
		UserID:          int64(stats.UserID),
		Game:            stats.Game,
		TotalPlays:      stats.TotalPlays,
		TodayPlays:      stats.TodayPlays,
		TotalDays:       stats.TotalDays,
		ConsecutiveDays: stats.ConsecutiveDays,
		LastPlayedAt:    stats.LastPlayedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "game"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_plays", "today_plays", "total_days", "consecutive_days", "last_played_at",
		}),
	}).Create(&row).Error
}
