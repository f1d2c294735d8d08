package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/utils"
)

// LobbyRepository stores transient lobbies and play session info.
type LobbyRepository interface {
	Get(ctx context.Context, game string, version int, host domain.UserID) (*domain.Lobby, error)
	GetAll(ctx context.Context, game string, version int) ([]*domain.Lobby, error)
	Put(ctx context.Context, lobby *domain.Lobby) error
	Destroy(ctx context.Context, lobby *domain.Lobby) error
	GetPlaySessionInfo(ctx context.Context, game string, version int, user domain.UserID) (*domain.PlaySessionInfo, error)
	PutPlaySessionInfo(ctx context.Context, info *domain.PlaySessionInfo) error
	DestroyPlaySessionInfo(ctx context.Context, game string, version int, user domain.UserID) error
}

// EntryRequest is a caller's lobby-entry report: who they are, where
// they can be reached, and how big a room they would host.
type EntryRequest struct {
	User            domain.UserID
	GameAddress     []int64
	GamePort        int64
	LocalAddress    []int64
	MatchingClass   int64
	Capacity        int
	DisableMatching bool
}

type LobbyUsecase struct {
	repo  LobbyRepository
	clock utils.Clock
	locks *utils.KeyedMutex

	// pickFunc selects an index in [0, n); tests pin it.
	pickFunc func(n int) int
}

func NewLobbyUsecase(repo LobbyRepository, clock utils.Clock) *LobbyUsecase {
	return &LobbyUsecase{
		repo:     repo,
		clock:    clock,
		locks:    utils.NewKeyedMutex(),
		pickFunc: rand.IntN,
	}
}

func lobbyLockKey(game string, version int) string {
	return fmt.Sprintf("lobby:%s:%d", game, version)
}

// Entry matches the caller into a lobby or makes them host one. The
// returned flag is true when the caller hosts. Join preference: a lobby
// already joined, then a uniformly random non-full lobby, then host.
func (uc *LobbyUsecase) Entry(ctx context.Context, game string, version int, req EntryRequest) (*domain.Lobby, bool, error) {
	key := lobbyLockKey(game, version)
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)

	lobbies, err := uc.repo.GetAll(ctx, game, version)
	if err != nil {
		return nil, false, err
	}

	var hosted, joined, nonfull []*domain.Lobby
	for _, lobby := range lobbies {
		switch {
		case lobby.HostUserID == req.User:
			hosted = append(hosted, lobby)
		case lobby.HasParticipant(req.User):
			joined = append(joined, lobby)
		}
		if lobby.HostUserID != req.User && len(lobby.Participants) < lobby.Capacity {
			nonfull = append(nonfull, lobby)
		}
	}

	if !req.DisableMatching && len(hosted) == 0 && (len(joined) > 0 || len(nonfull) > 0) {
		var target *domain.Lobby
		if len(joined) > 0 {
			target = joined[0]
		} else {
			target = nonfull[uc.pickFunc(len(nonfull))]
		}
		// a user sits in at most one lobby
		for _, lobby := range joined {
			if lobby == target {
				continue
			}
			lobby.Participants = removeParticipant(lobby.Participants, req.User)
			if err := uc.repo.Put(ctx, lobby); err != nil {
				return nil, false, err
			}
		}
		if !target.HasParticipant(req.User) {
			target.Participants = append(target.Participants, req.User)
			if err := uc.repo.Put(ctx, target); err != nil {
				return nil, false, err
			}
		}
		return target, false, nil
	}

	if len(hosted) > 0 {
		return hosted[0], true, nil
	}

	lobby := &domain.Lobby{
		Game:          game,
		Version:       version,
		HostUserID:    req.User,
		GameAddress:   req.GameAddress,
		GamePort:      req.GamePort,
		LocalAddress:  req.LocalAddress,
		MatchingClass: req.MatchingClass,
		Capacity:      req.Capacity,
		CreateTime:    uc.clock.Now(),
		Participants:  []domain.UserID{req.User},
	}
	if err := uc.repo.Put(ctx, lobby); err != nil {
		return nil, false, err
	}
	return lobby, true, nil
}

func removeParticipant(participants []domain.UserID, user domain.UserID) []domain.UserID {
	out := participants[:0]
	for _, p := range participants {
		if p != user {
			out = append(out, p)
		}
	}
	return out
}

// DeleteByAddress destroys the lobby whose host address tuple matches
// exactly. No match is not an error.
func (uc *LobbyUsecase) DeleteByAddress(ctx context.Context, game string, version int, ga []int64, gp int64, la []int64) error {
	key := lobbyLockKey(game, version)
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)

	lobbies, err := uc.repo.GetAll(ctx, game, version)
	if err != nil {
		return err
	}
	for _, lobby := range lobbies {
		if lobby.AddressMatches(ga, gp, la) {
			return uc.repo.Destroy(ctx, lobby)
		}
	}
	return nil
}

// PlayEnd tears down the caller's hosted lobby and forgets their play
// session info.
func (uc *LobbyUsecase) PlayEnd(ctx context.Context, game string, version int, user domain.UserID) error {
	key := lobbyLockKey(game, version)
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)

	lobby, err := uc.repo.Get(ctx, game, version, user)
	if err == nil {
		if err := uc.repo.Destroy(ctx, lobby); err != nil {
			return err
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return uc.repo.DestroyPlaySessionInfo(ctx, game, version, user)
}

// PutPlaySessionInfo records the caller's reported address fields.
func (uc *LobbyUsecase) PutPlaySessionInfo(ctx context.Context, info *domain.PlaySessionInfo) error {
	return uc.repo.PutPlaySessionInfo(ctx, info)
}

// GetPlaySessionInfo returns the stored report for one player.
func (uc *LobbyUsecase) GetPlaySessionInfo(ctx context.Context, game string, version int, user domain.UserID) (*domain.PlaySessionInfo, error) {
	return uc.repo.GetPlaySessionInfo(ctx, game, version, user)
}
