package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/yumesaki/arcanet/internal/domain"
)

// LinkRepository stores directed typed relationships between users.
type LinkRepository interface {
	GetAll(ctx context.Context, user domain.UserID, game string, version int) ([]*domain.Link, error)
	Put(ctx context.Context, link *domain.Link) error
	Destroy(ctx context.Context, link *domain.Link) error
}

// LinkTypeRival is the link type for per-title rival registrations.
const LinkTypeRival = "rival"

// ErrRivalCapReached is returned when a title's rival slot limit is
// already full.
var ErrRivalCapReached = errors.New("rival cap reached")

type RivalUsecase struct {
	links    LinkRepository
	profiles ProfileRepository
	users    UserRepository

	// names caches rival display names so score screens do not load a
	// full profile per rival per request.
	names *gocache.Cache
}

func NewRivalUsecase(links LinkRepository, profiles ProfileRepository, users UserRepository) *RivalUsecase {
	return &RivalUsecase{
		links:    links,
		profiles: profiles,
		users:    users,
		names:    gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// GetRivals returns the user's rival links in one title version.
func (uc *RivalUsecase) GetRivals(ctx context.Context, user domain.UserID, game string, version int) ([]*domain.Link, error) {
	all, err := uc.links.GetAll(ctx, user, game, version)
	if err != nil {
		return nil, err
	}
	var rivals []*domain.Link
	for _, link := range all {
		if link.Type == LinkTypeRival {
			rivals = append(rivals, link)
		}
	}
	return rivals, nil
}

// AddRival registers the player identified by extid as a rival,
// honoring the title's slot cap. Re-adding an existing rival succeeds
// without consuming a slot.
func (uc *RivalUsecase) AddRival(ctx context.Context, user domain.UserID, game string, version int, extid int64, cap int) error {
	other, err := uc.users.FromExtID(ctx, game, version, extid)
	if err != nil {
		return err
	}
	if other == user {
		return fmt.Errorf("self rival: %w", domain.ErrInvalidArgument)
	}
	rivals, err := uc.GetRivals(ctx, user, game, version)
	if err != nil {
		return err
	}
	for _, link := range rivals {
		if link.OtherUserID == other {
			return nil
		}
	}
	if len(rivals) >= cap {
		return ErrRivalCapReached
	}
	return uc.links.Put(ctx, &domain.Link{
		UserID:      user,
		OtherUserID: other,
		Game:        game,
		Version:     version,
		Type:        LinkTypeRival,
	})
}

// RemoveRival drops the rival registration if present.
func (uc *RivalUsecase) RemoveRival(ctx context.Context, user domain.UserID, game string, version int, extid int64) error {
	other, err := uc.users.FromExtID(ctx, game, version, extid)
	if err != nil {
		return err
	}
	return uc.links.Destroy(ctx, &domain.Link{
		UserID:      user,
		OtherUserID: other,
		Game:        game,
		Version:     version,
		Type:        LinkTypeRival,
	})
}

// RivalCard is the cached display data for one rival row.
type RivalCard struct {
	Name  string
	ExtID int64
}

// RivalCard returns the rival's display name and numeric id, cached
// for half an hour so score screens do not load a full profile per
// rival per request.
func (uc *RivalUsecase) RivalCard(ctx context.Context, game string, version int, user domain.UserID) (*RivalCard, error) {
	key := fmt.Sprintf("%s:%d:%d", game, version, user)
	if cached, ok := uc.names.Get(key); ok {
		card := cached.(RivalCard)
		return &card, nil
	}
	profile, err := uc.profiles.Get(ctx, user, game, version)
	if err != nil {
		return nil, err
	}
	card := RivalCard{
		Name:  profile.GetStr("name", ""),
		ExtID: profile.ExtID,
	}
	uc.names.Set(key, card, gocache.DefaultExpiration)
	return &card, nil
}
