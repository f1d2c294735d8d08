package jubeat

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/usecase"
	"github.com/yumesaki/arcanet/internal/utils"
)

type memUserRepo struct {
	byRefID map[string]domain.UserID
	extids  map[string]int64
	next    domain.UserID
	nextExt int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byRefID: map[string]domain.UserID{}, extids: map[string]int64{}, next: 1, nextExt: 1000}
}

func (m *memUserRepo) FromRefID(ctx context.Context, game string, version int, refid string) (domain.UserID, error) {
	if user, ok := m.byRefID[refid]; ok {
		return user, nil
	}
	return domain.UserNone, domain.NotFoundError{Resource: "user"}
}

func (m *memUserRepo) FromExtID(ctx context.Context, game string, version int, extid int64) (domain.UserID, error) {
	for key, ext := range m.extids {
		if ext != extid {
			continue
		}
		var g string
		var user domain.UserID
		if _, err := fmt.Sscanf(key, "%s %d", &g, &user); err == nil && g == game {
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
	key := fmt.Sprintf("%s %d", game, user)
	if ext, ok := m.extids[key]; ok {
		return ext, nil
	}
	ext := m.nextExt
	m.nextExt++
	m.extids[key] = ext
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

type memScoreRepo struct {
	scores   map[string]*domain.Score
	attempts []*domain.Attempt
}

func newMemScoreRepo() *memScoreRepo {
	return &memScoreRepo{scores: map[string]*domain.Score{}}
}

func scoreKey(user domain.UserID, game string, musicVersion int, songID int64, chart int) string {
	return fmt.Sprintf("%d:%s:%d:%d:%d", user, game, musicVersion, songID, chart)
}

func (m *memScoreRepo) Get(ctx context.Context, user domain.UserID, game string, musicVersion int, songID int64, chart int) (*domain.Score, error) {
	if s, ok := m.scores[scoreKey(user, game, musicVersion, songID, chart)]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, domain.NotFoundError{Resource: "score"}
}

func (m *memScoreRepo) Put(ctx context.Context, score *domain.Score) error {
	copied := *score
	m.scores[scoreKey(score.UserID, score.Game, score.MusicVersion, score.SongID, score.Chart)] = &copied
	return nil
}

func (m *memScoreRepo) PutAttempt(ctx context.Context, attempt *domain.Attempt) error {
	copied := *attempt
	m.attempts = append(m.attempts, &copied)
	return nil
}

func (m *memScoreRepo) GetAll(ctx context.Context, user domain.UserID, game string, musicVersion int) ([]*domain.Score, error) {
	var out []*domain.Score
	for _, s := range m.scores {
		if s.UserID == user && s.Game == game && s.MusicVersion == musicVersion {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SongID != out[j].SongID {
			return out[i].SongID < out[j].SongID
		}
		return out[i].Chart < out[j].Chart
	})
	return out, nil
}

func (m *memScoreRepo) GetAllForSong(ctx context.Context, game string, musicVersion int, songID int64, chart int) ([]*domain.Score, error) {
	var out []*domain.Score
	for _, s := range m.scores {
		if s.Game == game && s.MusicVersion == musicVersion && s.SongID == songID && s.Chart == chart {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memScoreRepo) MostPlayed(ctx context.Context, user domain.UserID, game string, musicVersion int, count int) ([]int64, error) {
	return nil, nil
}

func (m *memScoreRepo) GetAttempts(ctx context.Context, user domain.UserID, game string, musicVersion int, songID int64, since time.Time) ([]*domain.Attempt, error) {
	var out []*domain.Attempt
	for _, a := range m.attempts {
		if a.UserID == user && a.Game == game && a.MusicVersion == musicVersion && a.SongID == songID && !a.Timestamp.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

type memScheduleRepo struct {
	settings map[string]*domain.TimeSensitiveSetting
	marks    map[string]time.Time
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{settings: map[string]*domain.TimeSensitiveSetting{}, marks: map[string]time.Time{}}
}

func (m *memScheduleRepo) GetTimeSensitiveSetting(ctx context.Context, game string, version int, name string, now time.Time) (*domain.TimeSensitiveSetting, error) {
	key := fmt.Sprintf("%s:%d:%s", game, version, name)
	s, ok := m.settings[key]
	if !ok || !s.Active(now) {
		delete(m.settings, key)
		return nil, domain.NotFoundError{Resource: "setting"}
	}
	return s, nil
}

func (m *memScheduleRepo) PutTimeSensitiveSetting(ctx context.Context, setting *domain.TimeSensitiveSetting) error {
	m.settings[fmt.Sprintf("%s:%d:%s", setting.Game, setting.Version, setting.Name)] = setting
	return nil
}

func (m *memScheduleRepo) LastScheduled(ctx context.Context, game string, version int, name, cadence string) (time.Time, error) {
	return m.marks[fmt.Sprintf("%s:%d:%s:%s", game, version, name, cadence)], nil
}

func (m *memScheduleRepo) MarkScheduled(ctx context.Context, game string, version int, name, cadence string, boundary time.Time) (bool, error) {
	key := fmt.Sprintf("%s:%d:%s:%s", game, version, name, cadence)
	if prev, ok := m.marks[key]; ok && !prev.Before(boundary) {
		return false, nil
	}
	m.marks[key] = boundary
	return true, nil
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

type memLinkRepo struct {
	links []*domain.Link
}

func (m *memLinkRepo) GetAll(ctx context.Context, user domain.UserID, game string, version int) ([]*domain.Link, error) {
	var out []*domain.Link
	for _, l := range m.links {
		if l.UserID == user && l.Game == game && l.Version == version {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLinkRepo) Put(ctx context.Context, link *domain.Link) error {
	for i, l := range m.links {
		if l.UserID == link.UserID && l.OtherUserID == link.OtherUserID && l.Game == link.Game && l.Version == link.Version && l.Type == link.Type {
			m.links[i] = link
			return nil
		}
	}
	m.links = append(m.links, link)
	return nil
}

func (m *memLinkRepo) Destroy(ctx context.Context, link *domain.Link) error {
	for i, l := range m.links {
		if l.UserID == link.UserID && l.OtherUserID == link.OtherUserID && l.Game == link.Game && l.Version == link.Version && l.Type == link.Type {
			m.links = append(m.links[:i], m.links[i+1:]...)
			return nil
		}
	}
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

type memMachineRepo struct {
	machines map[string]*domain.Machine
}

func newMemMachineRepo() *memMachineRepo {
	return &memMachineRepo{machines: map[string]*domain.Machine{}}
}

func (m *memMachineRepo) Get(ctx context.Context, pcbid string) (*domain.Machine, error) {
	if mc, ok := m.machines[pcbid]; ok {
		return mc, nil
	}
	return nil, domain.NotFoundError{Resource: "machine"}
}

func (m *memMachineRepo) FromShopID(ctx context.Context, shopID int64) (string, error) {
	return "", domain.NotFoundError{Resource: "machine"}
}

func (m *memMachineRepo) Put(ctx context.Context, machine *domain.Machine) error {
	m.machines[machine.PCBID] = machine
	return nil
}

type memLobbyRepo struct{}

func (m *memLobbyRepo) Get(ctx context.Context, game string, version int, host domain.UserID) (*domain.Lobby, error) {
	return nil, domain.NotFoundError{Resource: "lobby"}
}

func (m *memLobbyRepo) GetAll(ctx context.Context, game string, version int) ([]*domain.Lobby, error) {
	return nil, nil
}

func (m *memLobbyRepo) Put(ctx context.Context, lobby *domain.Lobby) error { return nil }

func (m *memLobbyRepo) Destroy(ctx context.Context, lobby *domain.Lobby) error { return nil }

func (m *memLobbyRepo) GetPlaySessionInfo(ctx context.Context, game string, version int, user domain.UserID) (*domain.PlaySessionInfo, error) {
	return nil, domain.NotFoundError{Resource: "play session"}
}

func (m *memLobbyRepo) PutPlaySessionInfo(ctx context.Context, info *domain.PlaySessionInfo) error {
	return nil
}

func (m *memLobbyRepo) DestroyPlaySessionInfo(ctx context.Context, game string, version int, user domain.UserID) error {
	return nil
}

type testEnv struct {
	deps     core.Deps
	users    *memUserRepo
	profiles *memProfileRepo
	scores   *memScoreRepo
	achieves *memAchievementRepo
	music    *memMusicRepo
}

func newTestEnv(now time.Time) *testEnv {
	clock := utils.Clock{NowFunc: func() time.Time { return now }}
	env := &testEnv{
		users:    newMemUserRepo(),
		profiles: newMemProfileRepo(),
		scores:   newMemScoreRepo(),
		achieves: &memAchievementRepo{},
		music:    &memMusicRepo{},
	}
	env.deps = core.Deps{
		Profile:      usecase.NewProfileUsecase(env.users, env.profiles),
		Score:        usecase.NewScoreUsecase(env.scores),
		Schedule:     usecase.NewScheduleUsecase(newMemScheduleRepo(), clock),
		Lobby:        usecase.NewLobbyUsecase(&memLobbyRepo{}, clock),
		Stats:        usecase.NewStatsUsecase(newMemStatsRepo(), clock),
		Rivals:       usecase.NewRivalUsecase(&memLinkRepo{}, env.profiles, env.users),
		Achievements: usecase.NewAchievementUsecase(env.achieves),
		Music:        env.music,
		Machines:     newMemMachineRepo(),
		Clock:        clock,
	}
	return env
}

func (env *testEnv) addSong(version int, id int64) {
	for chart := ChartBasic; chart <= ChartExtreme; chart++ {
		env.music.songs = append(env.music.songs, &domain.Song{
			Game:    Series,
			Version: version,
			ID:      id,
			Chart:   chart,
			Title:   fmt.Sprintf("song %d", id),
		})
	}
}

// invoke routes one request through the title's handler table the way
// the dispatcher would.
func invoke(ctx context.Context, title core.Title, module, method string, body *arcanet.Node) (*arcanet.Node, error) {
	fn, ok := title.Handler(module, method)
	if !ok {
		return title.UnhandledRequest(module, method), nil
	}
	return fn(ctx, &core.Request{
		Machine: arcanet.MachineIdentity{PCBID: "012ABC345DE6789FG"},
		Module:  module,
		Method:  method,
		Root:    body,
		Body:    body,
	})
}
