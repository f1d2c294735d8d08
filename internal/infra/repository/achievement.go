package repository

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/infra/database/models"
)

type AchievementRepository struct {
	db *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

func achievementFromModel(row models.Achievement) (*domain.Achievement, error) {
	mapping, err := decodeMapping(row.Data)
	if err != nil {
		return nil, err
	}
	return &domain.Achievement{
		UserID:  domain.UserID(row.UserID),
		Game:    row.Game,
		Version: row.Version,
		ID:      row.AchievementID,
		Type:    row.Type,
		Data:    mapping,
	}, nil
}

func (r *AchievementRepository) GetAll(ctx context.Context, user domain.UserID, game string, version int) ([]*domain.Achievement, error) {
	var rows []models.Achievement
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND game = ? AND version = ?", int64(user), game, version).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	achievements := make([]*domain.Achievement, 0, len(rows))
	for _, row := range rows {
		a, err := achievementFromModel(row)
		if err != nil {
			return nil, err
		}
		achievements = append(achievements, a)
	}
	return achievements, nil
}

func (r *AchievementRepository) Get(ctx context.Context, user domain.UserID, game string, version int, id int64, achievementType string) (*domain.Achievement, error) {
	var row models.Achievement
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND game = ? AND version = ? AND achievement_id = ? AND type = ?",
			int64(user), game, version, id, achievementType).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "achievement"}
	}
	if err != nil {
		return nil, err
	}
	return achievementFromModel(row)
}

func (r *AchievementRepository) Put(ctx context.Context, achievement *domain.Achievement) error {
	data, err := json.Marshal(achievement.Data)
	if err != nil {
		return err
	}
	row := models.Achievement{
		UserID:        int64(achievement.UserID),
		Game:          achievement.Game,
		Version:       achievement.Version,
		AchievementID: achievement.ID,
		Type:          achievement.Type,
		Data:          data,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "game"}, {Name: "version"},
			{Name: "achievement_id"}, {Name: "type"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"data"}),
	}).Create(&row).Error
}
