package sdvx

import (
	"context"
	"fmt"
	"time"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/usecase"
	"github.com/yumesaki/arcanet/internal/utils"
)

type memUserRepo struct {
	byRefID map[string]domain.UserID
	extids  map[domain.UserID]int64
	next    domain.UserID
	nextExt int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byRefID: map[string]domain.UserID{}, extids: map[domain.UserID]int64{}, next: 1, nextExt: 12340001}
}

func (m *memUserRepo) FromRefID(ctx context.Context, game string, version int, refid string) (domain.UserID, error) {
	if user, ok := m.byRefID[refid]; ok {
		return user, nil
	}
	return domain.UserNone, domain.NotFoundError{Resource: "user"}
}

func (m *memUserRepo) FromExtID(ctx context.Context, game string, version int, extid int64) (domain.UserID, error) {
	for user, ext := range m.extids {
		if ext == extid {
			return user, nil
		}
	}
	return domain.UserNone, domain.NotFoundError{Resource: "user"}
}

func (m *memUserRepo) Create(ctx context.Context, refid string) (domain.UserID, error) {
	user := m.next
	m.next++
	m.byRefID[refid] = user
	return user, nil
}

func (m *memUserRepo) EnsureExtID(ctx context.Context, game string, user domain.UserID) (int64, error) {
	if ext, ok := m.extids[user]; ok {
		return ext, nil
	}
	ext := m.nextExt
	m.nextExt++
	m.extids[user] = ext
	return ext, nil
}

type memProfileRepo struct {
	profiles map[string]*arcanet.Profile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: map[string]*arcanet.Profile{}}
}

func profileKey(user domain.UserID, game string, version int) string {
	return fmt.Sprintf("%d:%s:%d", user, game, version)
}

func (m *memProfileRepo) Get(ctx context.Context, user domain.UserID, game string, version int) (*arcanet.Profile, error) {
	if p, ok := m.profiles[profileKey(user, game, version)]; ok {
		return p.CloneProfile(), nil
	}
	return nil, domain.NotFoundError{Resource: "profile"}
}

func (m *memProfileRepo) Put(ctx context.Context, user domain.UserID, profile *arcanet.Profile) error {
	m.profiles[profileKey(user, profile.Game, profile.Version)] = profile.CloneProfile()
	return nil
}

type memStatsRepo struct {
	stats map[string]*domain.PlayStatistics
}

func newMemStatsRepo() *memStatsRepo {
	return &memStatsRepo{stats: map[string]*domain.PlayStatistics{}}
}

func (m *memStatsRepo) Get(ctx context.Context, user domain.UserID, game string) (*domain.PlayStatistics, error) {
	if s, ok := m.stats[fmt.Sprintf("%d:%s", user, game)]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, domain.NotFoundError{Resource: "play statistics"}
}

func (m *memStatsRepo) Put(ctx context.Context, stats *domain.PlayStatistics) error {
	copied := *stats
	m.stats[fmt.Sprintf("%d:%s", stats.UserID, stats.Game)] = &copied
	return nil
}

type memAchievementRepo struct {
	records []*domain.Achievement
}

func (m *memAchievementRepo) GetAll(ctx context.Context, user domain.UserID, game string, version int) ([]*domain.Achievement, error) {
	var out []*domain.Achievement
	for _, a := range m.records {
		if a.UserID == user && a.Game == game && a.Version == version {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAchievementRepo) Get(ctx context.Context, user domain.UserID, game string, version int, id int64, achievementType string) (*domain.Achievement, error) {
	for _, a := range m.records {
		if a.UserID == user && a.Game == game && a.Version == version && a.ID == id && a.Type == achievementType {
			return a, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "achievement"}
}

func (m *memAchievementRepo) Put(ctx context.Context, achievement *domain.Achievement) error {
	for i, a := range m.records {
		if a.UserID == achievement.UserID && a.Game == achievement.Game && a.Version == achievement.Version && a.ID == achievement.ID && a.Type == achievement.Type {
			m.records[i] = achievement
			return nil
		}
	}
	m.records = append(m.records, achievement)
	return nil
}

type memMusicRepo struct {
	songs []*domain.Song
}

func (m *memMusicRepo) Get(ctx context.Context, game string, version int, songID, chart int64) (*domain.Song, error) {
	for _, s := range m.songs {
		if s.Game == game && s.Version == version && s.ID == songID && int64(s.Chart) == chart {
			return s, nil
		}
	}
	return nil, domain.NotFoundError{Resource: "song"}
}

func (m *memMusicRepo) GetAll(ctx context.Context, game string, version int) ([]*domain.Song, error) {
	var out []*domain.Song
	for _, s := range m.songs {
		if s.Game == game && s.Version == version {
			out = append(out, s)
		}
	}
	return out, nil
}

type testEnv struct {
	deps     core.Deps
	users    *memUserRepo
	profiles *memProfileRepo
	achieves *memAchievementRepo
	music    *memMusicRepo
}

func newTestEnv(now time.Time) *testEnv {
	clock := utils.Clock{NowFunc: func() time.Time { return now }}
	env := &testEnv{
		users:    newMemUserRepo(),
		profiles: newMemProfileRepo(),
		achieves: &memAchievementRepo{},
		music:    &memMusicRepo{},
	}
	env.deps = core.Deps{
		Profile:      usecase.NewProfileUsecase(env.users, env.profiles),
		Stats:        usecase.NewStatsUsecase(newMemStatsRepo(), clock),
		Achievements: usecase.NewAchievementUsecase(env.achieves),
		Music:        env.music,
		Clock:        clock,
	}
	return env
}

// addSong registers one chart of one song, carrying the limited state
// the catalog would hold.
func (env *testEnv) addSong(id int64, chart int, limited int64) {
	data := arcanet.NewMapping()
	data.ReplaceInt("limited", limited)
	env.music.songs = append(env.music.songs, &domain.Song{
		Game:    Series,
		Version: VersionVividWave,
		ID:      id,
		Chart:   chart,
		Title:   fmt.Sprintf("song %d", id),
		Data:    data,
	})
}

func invoke(ctx context.Context, title core.Title, method string, body *arcanet.Node) (*arcanet.Node, error) {
	fn, ok := title.Handler("game", method)
	if !ok {
		return title.UnhandledRequest("game", method), nil
	}
	return fn(ctx, &core.Request{
		Machine: arcanet.MachineIdentity{PCBID: "012ABC345DE6789FG"},
		Module:  "game",
		Method:  method,
		Root:    body,
		Body:    body,
	})
}
