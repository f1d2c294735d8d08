package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/domain"
)

type memUserRepo struct {
	byRefID map[string]domain.UserID
	extids  map[string]int64
	nextID  domain.UserID
	nextExt int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byRefID: map[string]domain.UserID{},
		extids:  map[string]int64{},
		nextID:  1,
		nextExt: 10000000,
	}
}

func (m *memUserRepo) FromRefID(ctx context.Context, game string, version int, refid string) (domain.UserID, error) {
	if user, ok := m.byRefID[refid]; ok {
		return user, nil
	}
	return domain.UserNone, domain.NotFoundError{Resource: "user"}
}

func (m *memUserRepo) FromExtID(ctx context.Context, game string, version int, extid int64) (domain.UserID, error) {
	for key, ext := range m.extids {
		var user domain.UserID
		var g string
		fmt.Sscanf(key, "%s %d", &g, &user)
		if g == game && ext == extid {
			return user, nil
		}
	}
	return domain.UserNone, domain.NotFoundError{Resource: "user"}
}

func (m *memUserRepo) Create(ctx context.Context, refid string) (domain.UserID, error) {
	user := m.nextID
	m.nextID++
	m.byRefID[refid] = user
	return user, nil
}

func (m *memUserRepo) EnsureExtID(ctx context.Context, game string, user domain.UserID) (int64, error) {
	key := fmt.Sprintf("%s %d", game, user)
	if ext, ok := m.extids[key]; ok {
		return ext, nil
	}
	m.nextExt++
	m.extids[key] = m.nextExt
	return m.nextExt, nil
}

type memProfileRepo struct {
	profiles map[string]*arcanet.Profile
	gets     int
	puts     int
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: map[string]*arcanet.Profile{}}
}

func profileKey(user domain.UserID, game string, version int) string {
	return fmt.Sprintf("%d:%s:%d", user, game, version)
}

func (m *memProfileRepo) Get(ctx context.Context, user domain.UserID, game string, version int) (*arcanet.Profile, error) {
	m.gets++
	if p, ok := m.profiles[profileKey(user, game, version)]; ok {
		return p.CloneProfile(), nil
	}
	return nil, domain.NotFoundError{Resource: "profile"}
}

func (m *memProfileRepo) Put(ctx context.Context, user domain.UserID, profile *arcanet.Profile) error {
	m.puts++
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
		clone := *s
		clone.Data = s.Data.Clone()
		return &clone, nil
	}
	return nil, domain.NotFoundError{Resource: "score"}
}

func (m *memScoreRepo) Put(ctx context.Context, score *domain.Score) error {
	clone := *score
	clone.Data = score.Data.Clone()
	m.scores[scoreKey(score.UserID, score.Game, score.MusicVersion, score.SongID, score.Chart)] = &clone
	return nil
}

func (m *memScoreRepo) PutAttempt(ctx context.Context, attempt *domain.Attempt) error {
	m.attempts = append(m.attempts, attempt)
	return nil
}

func (m *memScoreRepo) GetAll(ctx context.Context, user domain.UserID, game string, musicVersion int) ([]*domain.Score, error) {
	var out []*domain.Score
	for _, s := range m.scores {
		if s.UserID == user && s.Game == game && s.MusicVersion == musicVersion {
			out = append(out, s)
		}
	}
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

type memLobbyRepo struct {
	lobbies map[string]*domain.Lobby
	psi     map[string]*domain.PlaySessionInfo
}

func newMemLobbyRepo() *memLobbyRepo {
	return &memLobbyRepo{
		lobbies: map[string]*domain.Lobby{},
		psi:     map[string]*domain.PlaySessionInfo{},
	}
}

func memLobbyKey(game string, version int, host domain.UserID) string {
	return fmt.Sprintf("%s:%d:%d", game, version, host)
}

func (m *memLobbyRepo) Get(ctx context.Context, game string, version int, host domain.UserID) (*domain.Lobby, error) {
	if l, ok := m.lobbies[memLobbyKey(game, version, host)]; ok {
		return l, nil
	}
	return nil, domain.NotFoundError{Resource: "lobby"}
}

func (m *memLobbyRepo) GetAll(ctx context.Context, game string, version int) ([]*domain.Lobby, error) {
	var out []*domain.Lobby
	for _, l := range m.lobbies {
		if l.Game == game && l.Version == version {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLobbyRepo) Put(ctx context.Context, lobby *domain.Lobby) error {
	m.lobbies[memLobbyKey(lobby.Game, lobby.Version, lobby.HostUserID)] = lobby
	return nil
}

func (m *memLobbyRepo) Destroy(ctx context.Context, lobby *domain.Lobby) error {
	delete(m.lobbies, memLobbyKey(lobby.Game, lobby.Version, lobby.HostUserID))
	return nil
}

func (m *memLobbyRepo) GetPlaySessionInfo(ctx context.Context, game string, version int, user domain.UserID) (*domain.PlaySessionInfo, error) {
	if info, ok := m.psi[memLobbyKey(game, version, user)]; ok {
		return info, nil
	}
	return nil, domain.NotFoundError{Resource: "play session info"}
}

func (m *memLobbyRepo) PutPlaySessionInfo(ctx context.Context, info *domain.PlaySessionInfo) error {
	m.psi[memLobbyKey(info.Game, info.Version, info.UserID)] = info
	return nil
}

func (m *memLobbyRepo) DestroyPlaySessionInfo(ctx context.Context, game string, version int, user domain.UserID) error {
	delete(m.psi, memLobbyKey(game, version, user))
	return nil
}

type memScheduleRepo struct {
	settings map[string]*domain.TimeSensitiveSetting
	marks    map[string]time.Time
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{
		settings: map[string]*domain.TimeSensitiveSetting{},
		marks:    map[string]time.Time{},
	}
}

func (m *memScheduleRepo) GetTimeSensitiveSetting(ctx context.Context, game string, version int, name string, now time.Time) (*domain.TimeSensitiveSetting, error) {
	key := fmt.Sprintf("%s:%d:%s", game, version, name)
	setting, ok := m.settings[key]
	if !ok {
		return nil, domain.NotFoundError{Resource: "time sensitive setting"}
	}
	if !setting.Active(now) {
		delete(m.settings, key)
		return nil, domain.NotFoundError{Resource: "time sensitive setting"}
	}
	return setting, nil
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
	if !m.marks[key].Before(boundary) {
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
		clone := *s
		return &clone, nil
	}
	return nil, domain.NotFoundError{Resource: "play statistics"}
}

func (m *memStatsRepo) Put(ctx context.Context, stats *domain.PlayStatistics) error {
	clone := *stats
	m.stats[fmt.Sprintf("%d:%s", stats.UserID, stats.Game)] = &clone
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

// stubTitle is a minimal ProfileFormatter whose format echoes the name
// and whose unformat overwrites it from the request.
type stubTitle struct {
	game        string
	version     int
	predecessor ProfileFormatter
}

func (s *stubTitle) Game() string                 { return s.game }
func (s *stubTitle) Version() int                 { return s.version }
func (s *stubTitle) Predecessor() ProfileFormatter { return s.predecessor }

func (s *stubTitle) FormatProfile(ctx context.Context, profile *arcanet.Profile) (*arcanet.Node, error) {
	root := arcanet.Void("root")
	root.AddChild(arcanet.String("name", profile.GetStr("name", "")))
	return root, nil
}

func (s *stubTitle) UnformatProfile(ctx context.Context, user domain.UserID, request *arcanet.Node, old *arcanet.Profile) (*arcanet.Profile, error) {
	updated := arcanet.NewProfile(s.game, s.version, "", 0)
	if old != nil {
		updated = old.CloneProfile()
	}
	if name := request.ChildStr("name"); name != "" {
		updated.ReplaceStr("name", name)
	}
	return updated, nil
}
