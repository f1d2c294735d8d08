package repository

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/infra/database/models"
)

type LinkRepository struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) GetAll(ctx context.Context, user domain.UserID, game string, version int) ([]*domain.Link, error) {
	var rows []models.Link
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND game = ? AND version = ?", int64(user), game, version).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	links := make([]*domain.Link, 0, len(rows))
	for _, row := range rows {
		mapping, err := decodeMapping(row.Data)
		if err != nil {
			return nil, err
		}
		links = append(links, &domain.Link{
			UserID:      domain.UserID(row.UserID),
			OtherUserID: domain.UserID(row.OtherUserID),
			Game:        row.Game,
			Version:     row.Version,
			Type:        row.Type,
			Data:        mapping,
		})
	}
	return links, nil
}

func (r *LinkRepository) Put(ctx context.Context, link *domain.Link) error {
	data, err := json.Marshal(link.Data)
	if err != nil {
		return err
	}
	row := models.Link{
		UserID:      int64(link.UserID),
		Game:        link.Game,
		Version:     link.Version,
		Type:        link.Type,
		OtherUserID: int64(link.OtherUserID),
		Data:        data,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "game"}, {Name: "version"},
			{Name: "type"}, {Name: "other_user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"data"}),
	}).Create(&row).Error
}

func (r *LinkRepository) Destroy(ctx context.Context, link *domain.Link) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND game = ? AND version = ? AND type = ? AND other_user_id = ?",
			int64(link.UserID), link.Game, link.Version, link.Type, int64(link.OtherUserID)).
		Delete(&models.Link{}).Error
}
