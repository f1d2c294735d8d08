package usecase

import (
	"context"
	"errors"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/domain"
)

// AchievementRepository stores generic per-user owned records: items,
// event progress, course progress, unlocked songs.
type AchievementRepository interface {
	GetAll(ctx context.Context, user domain.UserID, game string, version int) ([]*domain.Achievement, error)
	Get(ctx context.Context, user domain.UserID, game string, version int, id int64, achievementType string) (*domain.Achievement, error)
	Put(ctx context.Context, achievement *domain.Achievement) error
}

// MusicRepository serves the static song catalog.
type MusicRepository interface {
	Get(ctx context.Context, game string, version int, songID, chart int64) (*domain.Song, error)
	GetAll(ctx context.Context, game string, version int) ([]*domain.Song, error)
}

type AchievementUsecase struct {
	repo AchievementRepository
}

func NewAchievementUsecase(repo AchievementRepository) *AchievementUsecase {
	return &AchievementUsecase{repo: repo}
}

func (uc *AchievementUsecase) GetAll(ctx context.Context, user domain.UserID, game string, version int) ([]*domain.Achievement, error) {
	return uc.repo.GetAll(ctx, user, game, version)
}

// GetAllOfType filters the user's records down to one type tag.
func (uc *AchievementUsecase) GetAllOfType(ctx context.Context, user domain.UserID, game string, version int, achievementType string) ([]*domain.Achievement, error) {
	all, err := uc.repo.GetAll(ctx, user, game, version)
	if err != nil {
		return nil, err
	}
	var out []*domain.Achievement
	for _, a := range all {
		if a.Type == achievementType {
			out = append(out, a)
		}
	}
	return out, nil
}

func (uc *AchievementUsecase) Get(ctx context.Context, user domain.UserID, game string, version int, id int64, achievementType string) (*domain.Achievement, error) {
	return uc.repo.Get(ctx, user, game, version, id, achievementType)
}

func (uc *AchievementUsecase) Put(ctx context.Context, achievement *domain.Achievement) error {
	if achievement.Data == nil {
		achievement.Data = arcanet.NewMapping()
	}
	return uc.repo.Put(ctx, achievement)
}

// Grant writes an ownership record if it is not already held.
func (uc *AchievementUsecase) Grant(ctx context.Context, user domain.UserID, game string, version int, id int64, achievementType string, data *arcanet.Mapping) error {
	_, err := uc.repo.Get(ctx, user, game, version, id, achievementType)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return uc.Put(ctx, &domain.Achievement{
		UserID:  user,
		Game:    game,
		Version: version,
		ID:      id,
		Type:    achievementType,
		Data:    data,
	})
}
