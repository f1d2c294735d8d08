package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/utils"
)

// UserRepository resolves card tokens and player-facing ids to users.
type UserRepository interface {
	FromRefID(ctx context.Context, game string, version int, refid string) (domain.UserID, error)
	FromExtID(ctx context.Context, game string, version int, extid int64) (domain.UserID, error)
	Create(ctx context.Context, refid string) (domain.UserID, error)
	EnsureExtID(ctx context.Context, game string, user domain.UserID) (int64, error)
}

// ProfileRepository stores per-version profiles as opaque mappings.
type ProfileRepository interface {
	Get(ctx context.Context, user domain.UserID, game string, version int) (*arcanet.Profile, error)
	Put(ctx context.Context, user domain.UserID, profile *arcanet.Profile) error
}

// ProfileFormatter is the title-specific half of profile I/O. Format
// projects a stored profile into the title's reply tree; Unformat merges
// a request tree into a new profile revision. Predecessor links one
// version back along the inheritance chain, nil for titles that do not
// inherit.
type ProfileFormatter interface {
	Game() string
	Version() int
	Predecessor() ProfileFormatter
	FormatProfile(ctx context.Context, profile *arcanet.Profile) (*arcanet.Node, error)
	UnformatProfile(ctx context.Context, user domain.UserID, request *arcanet.Node, old *arcanet.Profile) (*arcanet.Profile, error)
}

type ProfileUsecase struct {
	users    UserRepository
	profiles ProfileRepository
	locks    *utils.KeyedMutex
}

func NewProfileUsecase(users UserRepository, profiles ProfileRepository) *ProfileUsecase {
	return &ProfileUsecase{
		users:    users,
		profiles: profiles,
		locks:    utils.NewKeyedMutex(),
	}
}

func profileLockKey(user domain.UserID, game string, version int) string {
	return fmt.Sprintf("profile:%d:%s:%d", user, game, version)
}

// GetProfileByRefID resolves the card token and returns the formatted
// profile tree. An unknown token yields the stub <root/> node; a known
// user with no profile anywhere along the version chain yields
// ErrNoProfile.
func (uc *ProfileUsecase) GetProfileByRefID(ctx context.Context, title ProfileFormatter, refid string) (*arcanet.Node, error) {
	user, err := uc.users.FromRefID(ctx, title.Game(), title.Version(), refid)
	if errors.Is(err, domain.ErrNotFound) {
		return arcanet.Void("root"), nil
	}
	if err != nil {
		return nil, err
	}
	profile, err := uc.GetProfile(ctx, title, user, refid)
	if err != nil {
		return nil, err
	}
	return title.FormatProfile(ctx, profile)
}

// GetProfile loads the user's profile for the title's version, copying
// the nearest predecessor profile forward when the current version has
// none yet. The copy is a single write; later versions never touch it.
func (uc *ProfileUsecase) GetProfile(ctx context.Context, title ProfileFormatter, user domain.UserID, refid string) (*arcanet.Profile, error) {
	key := profileLockKey(user, title.Game(), title.Version())
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)

	profile, err := uc.profiles.Get(ctx, user, title.Game(), title.Version())
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	for prev := title.Predecessor(); prev != nil; prev = prev.Predecessor() {
		old, err := uc.profiles.Get(ctx, user, prev.Game(), prev.Version())
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		extid, err := uc.users.EnsureExtID(ctx, title.Game(), user)
		if err != nil {
			return nil, err
		}
		inherited := &arcanet.Profile{
			Mapping: old.Mapping.Clone(),
			Game:    title.Game(),
			Version: title.Version(),
			RefID:   refid,
			ExtID:   extid,
		}
		if err := uc.profiles.Put(ctx, user, inherited); err != nil {
			return nil, err
		}
		return inherited, nil
	}
	return nil, domain.ErrNoProfile
}

// PutProfileByRefID merges the request into the stored profile through
// the title's unformatter and persists the result. A nil result from
// the unformatter means nothing to save.
func (uc *ProfileUsecase) PutProfileByRefID(ctx context.Context, title ProfileFormatter, refid string, request *arcanet.Node) (*arcanet.Profile, error) {
	user, err := uc.users.FromRefID(ctx, title.Game(), title.Version(), refid)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoProfile
	}
	if err != nil {
		return nil, err
	}

	key := profileLockKey(user, title.Game(), title.Version())
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)

	old, err := uc.profiles.Get(ctx, user, title.Game(), title.Version())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	updated, err := title.UnformatProfile(ctx, user, request, old)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return old, nil
	}
	updated.Game = title.Game()
	updated.Version = title.Version()
	updated.RefID = refid
	if updated.ExtID == 0 {
		extid, err := uc.users.EnsureExtID(ctx, title.Game(), user)
		if err != nil {
			return nil, err
		}
		updated.ExtID = extid
	}
	if err := uc.profiles.Put(ctx, user, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// PutProfileByExtID is the save path for titles that report the numeric
// player id instead of the card token at game end.
func (uc *ProfileUsecase) PutProfileByExtID(ctx context.Context, title ProfileFormatter, extid int64, request *arcanet.Node) (*arcanet.Profile, error) {
	user, err := uc.users.FromExtID(ctx, title.Game(), title.Version(), extid)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoProfile
	}
	if err != nil {
		return nil, err
	}

	key := profileLockKey(user, title.Game(), title.Version())
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)

	old, err := uc.profiles.Get(ctx, user, title.Game(), title.Version())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	updated, err := title.UnformatProfile(ctx, user, request, old)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return old, nil
	}
	updated.Game = title.Game()
	updated.Version = title.Version()
	updated.ExtID = extid
	if err := uc.profiles.Put(ctx, user, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// NewProfileByRefID creates a fresh profile for the token, registering
// the user first if the card has never been seen. Calling it again for
// an existing profile is a no-op returning the stored profile.
func (uc *ProfileUsecase) NewProfileByRefID(ctx context.Context, title ProfileFormatter, refid, name string, region int64) (*arcanet.Profile, error) {
	user, err := uc.users.FromRefID(ctx, title.Game(), title.Version(), refid)
	if errors.Is(err, domain.ErrNotFound) {
		user, err = uc.users.Create(ctx, refid)
	}
	if err != nil {
		return nil, err
	}

	key := profileLockKey(user, title.Game(), title.Version())
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)

	existing, err := uc.profiles.Get(ctx, user, title.Game(), title.Version())
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	extid, err := uc.users.EnsureExtID(ctx, title.Game(), user)
	if err != nil {
		return nil, err
	}
	profile := arcanet.NewProfile(title.Game(), title.Version(), refid, extid)
	profile.ReplaceStr("name", name)
	profile.ReplaceInt("region", region)
	if err := uc.profiles.Put(ctx, user, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// UserFromRefID is a convenience passthrough for handlers that only
// need the resolution, not the profile.
func (uc *ProfileUsecase) UserFromRefID(ctx context.Context, game string, version int, refid string) (domain.UserID, error) {
	return uc.users.FromRefID(ctx, game, version, refid)
}

// UserFromExtID resolves the player-facing numeric id.
func (uc *ProfileUsecase) UserFromExtID(ctx context.Context, game string, version int, extid int64) (domain.UserID, error) {
	return uc.users.FromExtID(ctx, game, version, extid)
}

// GetProfileByUser loads without inheritance, for rival display paths
// that must not trigger a copy.
func (uc *ProfileUsecase) GetProfileByUser(ctx context.Context, game string, version int, user domain.UserID) (*arcanet.Profile, error) {
	return uc.profiles.Get(ctx, user, game, version)
}
