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

type MusicRepository struct {
	db *gorm.DB
}

func NewMusicRepository(db *gorm.DB) *MusicRepository {
	return &MusicRepository{db: db}
}

func songFromModel(row models.Song) (*domain.Song, error) {
	mapping, err := decodeMapping(row.Data)
	if err != nil {
		return nil, err
	}
	return &domain.Song{
		Game:    row.Game,
		Version: row.Version,
		ID:      row.SongID,
		Chart:   row.Chart,
		Title:   row.Title,
		Artist:  row.Artist,
		Genre:   row.Genre,
		Data:    mapping,
	}, nil
}

func (r *MusicRepository) Get(ctx context.Context, game string, version int, songID, chart int64) (*domain.Song, error) {
	var row models.Song
	err := r.db.WithContext(ctx).
		Where("game = ? AND version = ? AND song_id = ? AND chart = ?", game, version, songID, chart).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "song"}
	}
	if err != nil {
		return nil, err
	}
	return songFromModel(row)
}

// GetAll returns the full catalog for one game version, every chart row.
func (r *MusicRepository) GetAll(ctx context.Context, game string, version int) ([]*domain.Song, error) {
	var rows []models.Song
	err := r.db.WithContext(ctx).
		Where("game = ? AND version = ?", game, version).
		Order("song_id, chart").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	songs := make([]*domain.Song, 0, len(rows))
	for _, row := range rows {
		song, err := songFromModel(row)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, nil
}

func (r *MusicRepository) Put(ctx context.Context, song *domain.Song) error {
	data, err := json.Marshal(song.Data)
	if err != nil {
		return err
	}
	row := models.Song{
		Game:    song.Game,
		Version: song.Version,
		SongID:  song.ID,
		Chart:   song.Chart,
		Title:   song.Title,
		Artist:  song.Artist,
		Genre:   song.Genre,
		Data:    data,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "game"}, {Name: "version"}, {Name: "song_id"}, {Name: "chart"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"title", "artist", "genre", "data"}),
	}).Create(&row).Error
}
