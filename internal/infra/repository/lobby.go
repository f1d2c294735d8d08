package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yumesaki/arcanet/internal/domain"
)

// Lobbies and play session info live in redis only. Records expire after
// an hour so rooms orphaned by a host power-off clean themselves up.
const lobbyTTL = time.Hour

type LobbyRepository struct {
	rdb *redis.Client
}

func NewLobbyRepository(rdb *redis.Client) *LobbyRepository {
	return &LobbyRepository{rdb: rdb}
}

func lobbyKey(game string, version int, host domain.UserID) string {
	return fmt.Sprintf("lobby:%s:%d:%d", game, version, host)
}

func psiKey(game string, version int, user domain.UserID) string {
	return fmt.Sprintf("psi:%s:%d:%d", game, version, user)
}

func (r *LobbyRepository) Get(ctx context.Context, game string, version int, host domain.UserID) (*domain.Lobby, error) {
	val, err := r.rdb.Get(ctx, lobbyKey(game, version, host)).Result()
	if err == redis.Nil {
		return nil, domain.NotFoundError{Resource: "lobby"}
	}
	if err != nil {
		return nil, err
	}
	var lobby domain.Lobby
	if err := json.Unmarshal([]byte(val), &lobby); err != nil {
		return nil, err
	}
	return &lobby, nil
}

func (r *LobbyRepository) GetAll(ctx context.Context, game string, version int) ([]*domain.Lobby, error) {
	pattern := fmt.Sprintf("lobby:%s:%d:*", game, version)
	var lobbies []*domain.Lobby
	iter := r.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		val, err := r.rdb.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, err
		}
		var lobby domain.Lobby
		if err := json.Unmarshal([]byte(val), &lobby); err != nil {
			return nil, err
		}
		lobbies = append(lobbies, &lobby)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return lobbies, nil
}

func (r *LobbyRepository) Put(ctx context.Context, lobby *domain.Lobby) error {
	if lobby.ID == "" {
		lobby.ID = lobbyKey(lobby.Game, lobby.Version, lobby.HostUserID)
	}
	val, err := json.Marshal(lobby)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, lobbyKey(lobby.Game, lobby.Version, lobby.HostUserID), val, lobbyTTL).Err()
}

func (r *LobbyRepository) Destroy(ctx context.Context, lobby *domain.Lobby) error {
	return r.rdb.Del(ctx, lobbyKey(lobby.Game, lobby.Version, lobby.HostUserID)).Err()
}

func (r *LobbyRepository) GetPlaySessionInfo(ctx context.Context, game string, version int, user domain.UserID) (*domain.PlaySessionInfo, error) {
	val, err := r.rdb.Get(ctx, psiKey(game, version, user)).Result()
	if err == redis.Nil {
		return nil, domain.NotFoundError{Resource: "play session info"}
	}
	if err != nil {
		return nil, err
	}
	var info domain.PlaySessionInfo
	if err := json.Unmarshal([]byte(val), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *LobbyRepository) PutPlaySessionInfo(ctx context.Context, info *domain.PlaySessionInfo) error {
	val, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, psiKey(info.Game, info.Version, info.UserID), val, lobbyTTL).Err()
}

func (r *LobbyRepository) DestroyPlaySessionInfo(ctx context.Context, game string, version int, user domain.UserID) error {
	return r.rdb.Del(ctx, psiKey(game, version, user)).Err()
}
