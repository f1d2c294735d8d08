package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/utils"
)

// ScoreRepository stores merged high scores and the append-only attempt
// log.
type ScoreRepository interface {
	Get(ctx context.Context, user domain.UserID, game string, musicVersion int, songID int64, chart int) (*domain.Score, error)
	Put(ctx context.Context, score *domain.Score) error
	PutAttempt(ctx context.Context, attempt *domain.Attempt) error
	GetAll(ctx context.Context, user domain.UserID, game string, musicVersion int) ([]*domain.Score, error)
	GetAllForSong(ctx context.Context, game string, musicVersion int, songID int64, chart int) ([]*domain.Score, error)
	MostPlayed(ctx context.Context, user domain.UserID, game string, musicVersion int, count int) ([]int64, error)
	GetAttempts(ctx context.Context, user domain.UserID, game string, musicVersion int, songID int64, since time.Time) ([]*domain.Attempt, error)
}

// ScoreRules is a title's declaration of what a valid play report looks
// like. Empty slices mean the title does not constrain that field.
type ScoreRules struct {
	Game         string
	MusicVersion int
	Charts       []int
	ClearFlags   []int64
	Grades       []int64
}

func (r ScoreRules) validChart(chart int) bool {
	for _, c := range r.Charts {
		if c == chart {
			return true
		}
	}
	return len(r.Charts) == 0
}

func (r ScoreRules) validClearFlag(flag int64) bool {
	for _, f := range r.ClearFlags {
		if f == flag {
			return true
		}
	}
	return len(r.ClearFlags) == 0
}

func (r ScoreRules) validGrade(grade int64) bool {
	for _, g := range r.Grades {
		if g == grade {
			return true
		}
	}
	return len(r.Grades) == 0
}

// ScoreUpdate carries one play report. Fields a title does not track
// are left at their zero or -1 sentinel and never merged.
type ScoreUpdate struct {
	SongID    int64
	Chart     int
	Points    int64
	ClearFlag int64
	Grade     int64 // -1 when the title does not report grades
	Combo     int64 // -1 when the title does not report combos
	MissCount int64 // -1 means unreported, never lowers the stored value
	FullCombo bool
	Ghost     []byte
	Extra     *arcanet.Mapping // title-specific fields stored as-is when raised
}

type ScoreUsecase struct {
	scores ScoreRepository
	locks  *utils.KeyedMutex
}

func NewScoreUsecase(scores ScoreRepository) *ScoreUsecase {
	return &ScoreUsecase{
		scores: scores,
		locks:  utils.NewKeyedMutex(),
	}
}

func scoreLockKey(user domain.UserID, game string, musicVersion int, songID int64, chart int) string {
	return fmt.Sprintf("score:%d:%s:%d:%d:%d", user, game, musicVersion, songID, chart)
}

// UpdateScore merges one play into the stored high score and appends an
// attempt carrying the values exactly as reported. Anonymous plays
// (user zero) write only the attempt. Replaying the same report is a
// no-op on the merged score.
func (uc *ScoreUsecase) UpdateScore(ctx context.Context, user domain.UserID, location string, timestamp time.Time, rules ScoreRules, update ScoreUpdate) (*domain.Score, error) {
	if !rules.validChart(update.Chart) {
		return nil, fmt.Errorf("chart %d: %w", update.Chart, domain.ErrInvalidArgument)
	}
	if !rules.validClearFlag(update.ClearFlag) {
		return nil, fmt.Errorf("clear flag %d: %w", update.ClearFlag, domain.ErrInvalidArgument)
	}
	if update.Grade >= 0 && !rules.validGrade(update.Grade) {
		return nil, fmt.Errorf("grade %d: %w", update.Grade, domain.ErrInvalidArgument)
	}

	if user == domain.UserNone {
		if len(update.Ghost) > 0 {
			return nil, fmt.Errorf("ghost on anonymous attempt: %w", domain.ErrInvalidArgument)
		}
		return nil, uc.scores.PutAttempt(ctx, uc.attemptFromUpdate(user, location, timestamp, rules, update, false))
	}

	key := scoreLockKey(user, rules.Game, rules.MusicVersion, update.SongID, update.Chart)
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)

	old, err := uc.scores.Get(ctx, user, rules.Game, rules.MusicVersion, update.SongID, update.Chart)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	raised := old == nil || update.Points > old.Points
	highscore := old == nil || update.Points >= old.Points

	merged := &domain.Score{
		UserID:       user,
		Game:         rules.Game,
		MusicVersion: rules.MusicVersion,
		SongID:       update.SongID,
		Chart:        update.Chart,
		Points:       update.Points,
		Data:         arcanet.NewMapping(),
		Timestamp:    timestamp,
		UpdatedAt:    timestamp,
		Location:     location,
		Plays:        1,
	}
	if old != nil {
		merged.Data = old.Data.Clone()
		merged.Timestamp = old.Timestamp
		merged.Plays = old.Plays + 1
		if old.Points > merged.Points {
			merged.Points = old.Points
		}
		if !highscore {
			merged.Location = old.Location
		}
	}
	mergeScoreData(merged.Data, update, raised)

	if err := uc.scores.Put(ctx, merged); err != nil {
		return nil, err
	}
	if err := uc.scores.PutAttempt(ctx, uc.attemptFromUpdate(user, location, timestamp, rules, update, raised)); err != nil {
		return nil, err
	}
	return merged, nil
}

// mergeScoreData applies the monotone field merges: flags and bests only
// ever grow, miss counts only ever shrink, ghosts follow raises.
func mergeScoreData(data *arcanet.Mapping, update ScoreUpdate, raised bool) {
	data.ReplaceInt("clear_flag", data.GetInt("clear_flag", 0)|update.ClearFlag)
	if update.Combo >= 0 && update.Combo > data.GetInt("combo", -1) {
		data.ReplaceInt("combo", update.Combo)
	}
	if update.Grade >= 0 && update.Grade > data.GetInt("grade", -1) {
		data.ReplaceInt("grade", update.Grade)
	}
	if update.MissCount >= 0 {
		old := data.GetInt("miss_count", -1)
		if old < 0 || update.MissCount < old {
			data.ReplaceInt("miss_count", update.MissCount)
		}
	}
	if update.FullCombo {
		data.ReplaceBool("full_combo", true)
	}
	if raised {
		if len(update.Ghost) > 0 {
			data.ReplaceBytes("ghost", update.Ghost)
		}
		if update.Extra != nil {
			data.ReplaceMapping("extra", update.Extra.Clone())
		}
	}
}

func (uc *ScoreUsecase) attemptFromUpdate(user domain.UserID, location string, timestamp time.Time, rules ScoreRules, update ScoreUpdate, raised bool) *domain.Attempt {
	data := arcanet.NewMapping()
	data.ReplaceInt("clear_flag", update.ClearFlag)
	if update.Combo >= 0 {
		data.ReplaceInt("combo", update.Combo)
	}
	if update.Grade >= 0 {
		data.ReplaceInt("grade", update.Grade)
	}
	if update.MissCount >= 0 {
		data.ReplaceInt("miss_count", update.MissCount)
	}
	data.ReplaceBool("full_combo", update.FullCombo)
	if update.Extra != nil {
		data.ReplaceMapping("extra", update.Extra.Clone())
	}
	return &domain.Attempt{
		UserID:       user,
		Game:         rules.Game,
		MusicVersion: rules.MusicVersion,
		SongID:       update.SongID,
		Chart:        update.Chart,
		Points:       update.Points,
		Data:         data,
		Timestamp:    timestamp,
		Location:     location,
		Raised:       raised,
	}
}

// GetScore returns the merged record for one chart.
func (uc *ScoreUsecase) GetScore(ctx context.Context, user domain.UserID, game string, musicVersion int, songID int64, chart int) (*domain.Score, error) {
	return uc.scores.Get(ctx, user, game, musicVersion, songID, chart)
}

// GetScores returns every merged record the user holds in one version.
func (uc *ScoreUsecase) GetScores(ctx context.Context, user domain.UserID, game string, musicVersion int) ([]*domain.Score, error) {
	return uc.scores.GetAll(ctx, user, game, musicVersion)
}

// GetAllScores returns every user's record for one chart, best first.
func (uc *ScoreUsecase) GetAllScores(ctx context.Context, game string, musicVersion int, songID int64, chart int) ([]*domain.Score, error) {
	return uc.scores.GetAllForSong(ctx, game, musicVersion, songID, chart)
}

// GetMostPlayed returns the user's top song ids by play count.
func (uc *ScoreUsecase) GetMostPlayed(ctx context.Context, user domain.UserID, game string, musicVersion int, count int) ([]int64, error) {
	return uc.scores.MostPlayed(ctx, user, game, musicVersion, count)
}

// GetAttempts returns the user's attempts on one song since the cutoff.
func (uc *ScoreUsecase) GetAttempts(ctx context.Context, user domain.UserID, game string, musicVersion int, songID int64, since time.Time) ([]*domain.Attempt, error) {
	return uc.scores.GetAttempts(ctx, user, game, musicVersion, songID, since)
}
