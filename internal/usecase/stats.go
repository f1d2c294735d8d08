package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/utils"
)

// StatsRepository stores per-user aggregate play counters.
type StatsRepository interface {
	Get(ctx context.Context, user domain.UserID, game string) (*domain.PlayStatistics, error)
	Put(ctx context.Context, stats *domain.PlayStatistics) error
}

type StatsUsecase struct {
	repo  StatsRepository
	clock utils.Clock
	locks *utils.KeyedMutex
}

func NewStatsUsecase(repo StatsRepository, clock utils.Clock) *StatsUsecase {
	return &StatsUsecase{
		repo:  repo,
		clock: clock,
		locks: utils.NewKeyedMutex(),
	}
}

// Bump records one play session: total plays always grow, today's count
// resets at the JST day boundary, the streak extends only across
// consecutive days.
func (uc *StatsUsecase) Bump(ctx context.Context, user domain.UserID, game string) (*domain.PlayStatistics, error) {
	key := fmt.Sprintf("stats:%d:%s", user, game)
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)

	now := uc.clock.Now()
	stats, err := uc.repo.Get(ctx, user, game)
	if errors.Is(err, domain.ErrNotFound) {
		stats = &domain.PlayStatistics{UserID: user, Game: game}
	} else if err != nil {
		return nil, err
	}

	switch {
	case stats.TotalPlays == 0:
		stats.TodayPlays = 1
		stats.TotalDays = 1
		stats.ConsecutiveDays = 1
	case utils.SameDay(stats.LastPlayedAt, now):
		stats.TodayPlays++
	case utils.DaysApart(stats.LastPlayedAt, now) == 1:
		stats.TodayPlays = 1
		stats.TotalDays++
		stats.ConsecutiveDays++
	default:
		stats.TodayPlays = 1
		stats.TotalDays++
		stats.ConsecutiveDays = 1
	}
	stats.TotalPlays++
	stats.LastPlayedAt = now

	if err := uc.repo.Put(ctx, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Get returns the stored counters, zeroed when the user has never
// played.
func (uc *StatsUsecase) Get(ctx context.Context, user domain.UserID, game string) (*domain.PlayStatistics, error) {
	stats, err := uc.repo.Get(ctx, user, game)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.PlayStatistics{UserID: user, Game: game}, nil
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}
