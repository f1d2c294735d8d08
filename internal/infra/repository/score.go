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

type ScoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

func decodeMapping(data []byte) (*arcanet.Mapping, error) {
	mapping := arcanet.NewMapping()
	if len(data) > 0 {
		if err := json.Unmarshal(data, mapping); err != nil {
			return nil, err
		}
	}
	return mapping, nil
}

func scoreFromModel(row models.Score) (*domain.Score, error) {
	mapping, err := decodeMapping(row.Data)
	if err != nil {
		return nil, err
	}
	return &domain.Score{
		UserID:       domain.UserID(row.UserID),
		Game:         row.Game,
		MusicVersion: row.MusicVersion,
		SongID:       row.SongID,
		Chart:        row.Chart,
		Points:       row.Points,
		Data:         mapping,
		Timestamp:    row.Timestamp,
		UpdatedAt:    row.MDate,
		Location:     row.Location,
		Plays:        row.Plays,
	}, nil
}

func (r *ScoreRepository) Get(ctx context.Context, user domain.UserID, game string, musicVersion int, songID int64, chart int) (*domain.Score, error) {
	var row models.Score
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND game = ? AND music_version = ? AND song_id = ? AND chart = ?",
			int64(user), game, musicVersion, songID, chart).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundError{Resource: "score"}
	}
	if err != nil {
		return nil, err
	}
	return scoreFromModel(row)
}

func (r *ScoreRepository) Put(ctx context.Context, score *domain.Score) error {
	data, err := json.Marshal(score.Data)
	if err != nil {
		return err
	}
	row := models.Score{
		UserID:       int64(score.UserID),
		Game:         score.Game,
		MusicVersion: score.MusicVersion,
		SongID:       score.SongID,
		Chart:        score.Chart,
		Points:       score.Points,
		Data:         data,
		Location:     score.Location,
		Plays:        score.Plays,
		Timestamp:    score.Timestamp,
		MDate:        time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "game"}, {Name: "music_version"},
			{Name: "song_id"}, {Name: "chart"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"points", "data", "location", "plays", "m_date"}),
	}).Create(&row).Error
}

func (r *ScoreRepository) PutAttempt(ctx context.Context, attempt *domain.Attempt) error {
	data, err := json.Marshal(attempt.Data)
	if err != nil {
		return err
	}
	var userID *int64
	if attempt.UserID != domain.UserNone {
		id := int64(attempt.UserID)
		userID = &id
	}
	row := models.Attempt{
		UserID:       userID,
		Game:         attempt.Game,
		MusicVersion: attempt.MusicVersion,
		SongID:       attempt.SongID,
		Chart:        attempt.Chart,
		Points:       attempt.Points,
		Data:         data,
		Location:     attempt.Location,
		Raised:       attempt.Raised,
		Timestamp:    attempt.Timestamp,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *ScoreRepository) GetAll(ctx context.Context, user domain.UserID, game string, musicVersion int) ([]*domain.Score, error) {
	var rows []models.Score
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND game = ? AND music_version = ?", int64(user), game, musicVersion).
		Order("song_id, chart").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	scores := make([]*domain.Score, 0, len(rows))
	for _, row := range rows {
		score, err := scoreFromModel(row)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, nil
}

// GetAllForSong returns every player's score for one chart, best first.
func (r *ScoreRepository) GetAllForSong(ctx context.Context, game string, musicVersion int, songID int64, chart int) ([]*domain.Score, error) {
	var rows []models.Score
	err := r.db.WithContext(ctx).
		Where("game = ? AND music_version = ? AND song_id = ? AND chart = ?", game, musicVersion, songID, chart).
		Order("points DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	scores := make([]*domain.Score, 0, len(rows))
	for _, row := range rows {
		score, err := scoreFromModel(row)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, nil
}

// MostPlayed lists song ids by the user's play count, descending.
func (r *ScoreRepository) MostPlayed(ctx context.Context, user domain.UserID, game string, musicVersion int, count int) ([]int64, error) {
	var rows []struct {
		SongID int64
		Total  int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Score{}).
		Select("song_id, SUM(plays) AS total").
		Where("user_id = ? AND game = ? AND music_version = ?", int64(user), game, musicVersion).
		Group("song_id").
		Order("total DESC").
		Limit(count).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.SongID)
	}
	return ids, nil
}

// GetAttempts returns the user's attempts for one song at or after the
// given cutoff, most recent first.
func (r *ScoreRepository) GetAttempts(ctx context.Context, user domain.UserID, game string, musicVersion int, songID int64, since time.Time) ([]*domain.Attempt, error) {
	var rows []models.Attempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND game = ? AND music_version = ? AND song_id = ? AND timestamp >= ?",
			int64(user), game, musicVersion, songID, since).
		Order("timestamp DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	attempts := make([]*domain.Attempt, 0, len(rows))
	for _, row := range rows {
		mapping, err := decodeMapping(row.Data)
		if err != nil {
			return nil, err
		}
		user := domain.UserNone
		if row.UserID != nil {
			user = domain.UserID(*row.UserID)
		}
		attempts = append(attempts, &domain.Attempt{
			UserID:       user,
			Game:         row.Game,
			MusicVersion: row.MusicVersion,
			SongID:       row.SongID,
			Chart:        row.Chart,
			Points:       row.Points,
			Data:         mapping,
			Location:     row.Location,
			Raised:       row.Raised,
			Timestamp:    row.Timestamp,
		})
	}
	return attempts, nil
}
