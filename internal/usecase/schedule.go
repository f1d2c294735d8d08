package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/utils"
)

// ScheduleRepository stores the active time-sensitive records and the
// rollover bookkeeping per recurring job.
type ScheduleRepository interface {
	GetTimeSensitiveSetting(ctx context.Context, game string, version int, name string, now time.Time) (*domain.TimeSensitiveSetting, error)
	PutTimeSensitiveSetting(ctx context.Context, setting *domain.TimeSensitiveSetting) error
	LastScheduled(ctx context.Context, game string, version int, name, cadence string) (time.Time, error)
	MarkScheduled(ctx context.Context, game string, version int, name, cadence string, boundary time.Time) (bool, error)
}

type ScheduleUsecase struct {
	repo  ScheduleRepository
	clock utils.Clock
	locks *utils.KeyedMutex
}

func NewScheduleUsecase(repo ScheduleRepository, clock utils.Clock) *ScheduleUsecase {
	return &ScheduleUsecase{
		repo:  repo,
		clock: clock,
		locks: utils.NewKeyedMutex(),
	}
}

func scheduleLockKey(game string, version int, name string) string {
	return fmt.Sprintf("schedule:%s:%d:%s", game, version, name)
}

func (uc *ScheduleUsecase) boundary(cadence string) time.Time {
	switch cadence {
	case domain.CadenceWeekly:
		return uc.clock.BeginningOfWeek()
	default:
		return uc.clock.BeginningOfDay()
	}
}

// ScheduleDuration returns the window for a job that begins now.
func (uc *ScheduleUsecase) ScheduleDuration(cadence string) (time.Time, time.Time) {
	switch cadence {
	case domain.CadenceWeekly:
		return uc.clock.BeginningOfWeek(), uc.clock.EndOfWeek()
	default:
		return uc.clock.BeginningOfDay(), uc.clock.EndOfDay()
	}
}

// ShouldSchedule reports whether the job has yet to run for the current
// cadence boundary.
func (uc *ScheduleUsecase) ShouldSchedule(ctx context.Context, game string, version int, name, cadence string) (bool, error) {
	last, err := uc.repo.LastScheduled(ctx, game, version, name, cadence)
	if err != nil {
		return false, err
	}
	return last.Before(uc.boundary(cadence)), nil
}

// RunScheduled runs the named job once per cadence boundary. The
// generate callback produces the payload for the window; callers that
// find the boundary already marked read the stored record instead.
func (uc *ScheduleUsecase) RunScheduled(ctx context.Context, game string, version int, name, cadence string, generate func(start, end time.Time) (*arcanet.Mapping, error)) (*domain.TimeSensitiveSetting, error) {
	key := scheduleLockKey(game, version, name)
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)

	due, err := uc.ShouldSchedule(ctx, game, version, name, cadence)
	if err != nil {
		return nil, err
	}
	if due {
		// generate and store before taking the mark; a failed
		// generation leaves the job due so the next caller retries
		start, end := uc.ScheduleDuration(cadence)
		payload, err := generate(start, end)
		if err != nil {
			return nil, err
		}
		setting := &domain.TimeSensitiveSetting{
			Game:      game,
			Version:   version,
			Name:      name,
			StartTime: start,
			EndTime:   end,
			Data:      payload,
		}
		if err := uc.repo.PutTimeSensitiveSetting(ctx, setting); err != nil {
			return nil, err
		}
		if _, err := uc.repo.MarkScheduled(ctx, game, version, name, cadence, uc.boundary(cadence)); err != nil {
			return nil, err
		}
		return setting, nil
	}
	return uc.repo.GetTimeSensitiveSetting(ctx, game, version, name, uc.clock.Now())
}

// GetTimeSensitiveSetting returns the active record, if any.
func (uc *ScheduleUsecase) GetTimeSensitiveSetting(ctx context.Context, game string, version int, name string) (*domain.TimeSensitiveSetting, error) {
	return uc.repo.GetTimeSensitiveSetting(ctx, game, version, name, uc.clock.Now())
}

// PutTimeSensitiveSetting replaces the active record directly, for
// administrative paths that bypass the rollover.
func (uc *ScheduleUsecase) PutTimeSensitiveSetting(ctx context.Context, setting *domain.TimeSensitiveSetting) error {
	key := scheduleLockKey(setting.Game, setting.Version, setting.Name)
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)
	return uc.repo.PutTimeSensitiveSetting(ctx, setting)
}
