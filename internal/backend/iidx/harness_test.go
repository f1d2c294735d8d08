package iidx

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
	extids  map[domain.UserID]int64
	next    domain.UserID
	nextExt int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byRefID: map[string]domain.UserID{}, extids: map[domain.UserID]int64{}, next: 1, nextExt: 10000001}
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

func (m *memProfileRepo) key(user domain.UserID, game string, version int) string {
	return fmt.Sprintf("%d:%s:%d", user, game, version)
}

func (m *memProfileRepo) Get(ctx context.Context, user domain.UserID, game string, version int) (*arcanet.Profile, error) {
	if p, ok := m.profiles[m.key(user, game, version)]; ok {
		return p.CloneProfile(), nil
	}
	return nil, domain.NotFoundError{Resource: "profile"}
}

func (m *memProfileRepo) Put(ctx context.Context, user domain.UserID, profile *arcanet.Profile) error {
	m.profiles[m.key(user, profile.Game, profile.Version)] = profile.CloneProfile()
	return nil
}

type memScoreRepo struct {
	scores   map[string]*domain.Score
	attempts []*domain.Attempt
}

func (m *memScoreRepo) key(user domain.UserID, game string, musicVersion int, songID int64, chart int) string {
	return fmt.Sprintf("%d:%s:%d:%d:%d", user, game, musicVersion, songID, chart)
}

func (m *memScoreRepo) Get(ctx context.Context, user domain.UserID, game string, musicVersion int, songID int64, chart int) (*domain.Score, error) {
	if s, ok := m.scores[m.key(user, game, musicVersion, songID, chart)]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, domain.NotFoundError{Resource: "score"}
}

func (m *memScoreRepo) Put(ctx context.Context, score *domain.Score) error {
	copied := *score
	m.scores[m.key(score.UserID, score.Game, score.MusicVersion, score.SongID, score.Chart)] = &copied
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
	type played struct {
		songID int64
		plays  int
	}
	var all []played
	for _, s := range m.scores {
		if s.UserID == user && s.Game == game && s.MusicVersion == musicVersion {
			all = append(all, played{s.SongID, s.Plays})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].plays > all[j].plays })
	var out []int64
	for _, p := range all {
		if len(out) >= count {
			break
		}
		out = append(out, p.songID)
	}
	return out, nil
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

type memLobbyRepo struct {
	lobbies map[domain.UserID]*domain.Lobby
	psi     map[domain.UserID]*domain.PlaySessionInfo
}

func newMemLobbyRepo() *memLobbyRepo {
	return &memLobbyRepo{lobbies: map[domain.UserID]*domain.Lobby{}, psi: map[domain.UserID]*domain.PlaySessionInfo{}}
}

func (m *memLobbyRepo) Get(ctx context.Context, game string, version int, host domain.UserID) (*domain.Lobby, error) {
	if l, ok := m.lobbies[host]; ok {
		return l, nil
	}
	return nil, domain.NotFoundError{Resource: "lobby"}
}

func (m *memLobbyRepo) GetAll(ctx context.Context, game string, version int) ([]*domain.Lobby, error) {
	var out []*domain.Lobby
	for _, l := range m.lobbies {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HostUserID < out[j].HostUserID })
	return out, nil
}

func (m *memLobbyRepo) Put(ctx context.Context, lobby *domain.Lobby) error {
	if lobby.ID == "" {
		lobby.ID = fmt.Sprintf("lobby:%d", lobby.HostUserID)
	}
	m.lobbies[lobby.HostUserID] = lobby
	return nil
}

func (m *memLobbyRepo) Destroy(ctx context.Context, lobby *domain.Lobby) error {
	delete(m.lobbies, lobby.HostUserID)
	return nil
}

func (m *memLobbyRepo) GetPlaySessionInfo(ctx context.Context, game string, version int, user domain.UserID) (*domain.PlaySessionInfo, error) {
	if p, ok := m.psi[user]; ok {
		return p, nil
	}
	return nil, domain.NotFoundError{Resource: "play session"}
}

func (m *memLobbyRepo) PutPlaySessionInfo(ctx context.Context, info *domain.PlaySessionInfo) error {
	m.psi[info.UserID] = info
	return nil
}

func (m *memLobbyRepo) DestroyPlaySessionInfo(ctx context.Context, game string, version int, user domain.UserID) error {
	delete(m.psi, user)
	return nil
}

type memStatsRepo struct {
	stats map[string]*domain.PlayStatistics
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
	m.links = append(m.links, link)
	return nil
}

func (m *memLinkRepo) Destroy(ctx context.Context, link *domain.Link) error {
	for i, l := range m.links {
		if l.UserID == link.UserID && l.OtherUserID == link.OtherUserID && l.Type == link.Type {
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
	return nil, nil
}

func (m *memAchievementRepo) Get(ctx context.Context, user domain.UserID, game string, version int, id int64, achievementType string) (*domain.Achievement, error) {
	return nil, domain.NotFoundError{Resource: "achievement"}
}

func (m *memAchievementRepo) Put(ctx context.Context, achievement *domain.Achievement) error {
	m.records = append(m.records, achievement)
	return nil
}

type memMusicRepo struct{}

func (m *memMusicRepo) Get(ctx context.Context, game string, version int, songID, chart int64) (*domain.Song, error) {
	return nil, domain.NotFoundError{Resource: "song"}
}

func (m *memMusicRepo) GetAll(ctx context.Context, game string, version int) ([]*domain.Song, error) {
	return nil, nil
}

type memMachineRepo struct{}

func (m *memMachineRepo) Get(ctx context.Context, pcbid string) (*domain.Machine, error) {
	return nil, domain.NotFoundError{Resource: "machine"}
}

func (m *memMachineRepo) FromShopID(ctx context.Context, shopID int64) (string, error) {
	return "", domain.NotFoundError{Resource: "machine"}
}

func (m *memMachineRepo) Put(ctx context.Context, machine *domain.Machine) error { return nil }

type testEnv struct {
	deps     core.Deps
	users    *memUserRepo
	profiles *memProfileRepo
	scores   *memScoreRepo
	lobbies  *memLobbyRepo
}

func newTestEnv(now time.Time) *testEnv {
	clock := utils.Clock{NowFunc: func() time.Time { return now }}
	env := &testEnv{
		users:    newMemUserRepo(),
		profiles: &memProfileRepo{profiles: map[string]*arcanet.Profile{}},
		scores:   &memScoreRepo{scores: map[string]*domain.Score{}},
		lobbies:  newMemLobbyRepo(),
	}
	env.deps = core.Deps{
		Profile:      usecase.NewProfileUsecase(env.users, env.profiles),
		Score:        usecase.NewScoreUsecase(env.scores),
		Schedule:     usecase.NewScheduleUsecase(nil, clock),
		Lobby:        usecase.NewLobbyUsecase(env.lobbies, clock),
		Stats:        usecase.NewStatsUsecase(&memStatsRepo{stats: map[string]*domain.PlayStatistics{}}, clock),
		Rivals:       usecase.NewRivalUsecase(&memLinkRepo{}, env.profiles, env.users),
		Achievements: usecase.NewAchievementUsecase(&memAchievementRepo{}),
		Music:        &memMusicRepo{},
		Machines:     &memMachineRepo{},
		Clock:        clock,
	}
	return env
}

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
