package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/zeebo/xxh3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/infra/database/models"
)

const (
	refidCacheTTL = 5 * time.Minute
	extidSpace    = 100000000 // eight digits on the cabinet display
)

type UserRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

func NewUserRepository(db *gorm.DB, mc *memcache.Client) *UserRepository {
	return &UserRepository{db: db, mc: mc}
}

func refidCacheKey(game string, version int, refid string) string {
	return fmt.Sprintf("arcanet:refid:%s:%d:%s", game, version, refid)
}

// FromRefID resolves a RefID to a user, going through memcache first.
func (r *UserRepository) FromRefID(ctx context.Context, game string, version int, refid string) (domain.UserID, error) {
	if refid == "" {
		return domain.UserNone, domain.NotFoundError{Resource: "user"}
	}

	key := refidCacheKey(game, version, refid)
	if r.mc != nil {
		if item, err := r.mc.Get(key); err == nil {
			if id, err := strconv.ParseInt(string(item.Value), 10, 64); err == nil {
				return domain.UserID(id), nil
			}
		}
	}

	var card models.Card
	err := r.db.WithContext(ctx).
		Where("ref_id = ?", refid).
		Take(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UserNone, domain.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return domain.UserNone, err
	}

	if r.mc != nil {
		r.mc.Set(&memcache.Item{
			Key:        key,
			Value:      []byte(strconv.FormatInt(card.UserID, 10)),
			Expiration: int32(refidCacheTTL.Seconds()),
		})
	}

	return domain.UserID(card.UserID), nil
}

// FromExtID resolves the player-facing numeric id to a user.
func (r *UserRepository) FromExtID(ctx context.Context, game string, version int, extid int64) (domain.UserID, error) {
	var row models.ExtID
	err := r.db.WithContext(ctx).
		Where("game = ? AND ext_id = ?", game, extid).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UserNone, domain.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return domain.UserNone, err
	}
	return domain.UserID(row.UserID), nil
}

// Create registers a new user bound to the given RefID.
func (r *UserRepository) Create(ctx context.Context, refid string) (domain.UserID, error) {
	var userID domain.UserID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		card := models.Card{RefID: refid, UserID: user.ID}
		if err := tx.Create(&card).Error; err != nil {
			return err
		}
		userID = domain.UserID(user.ID)
		return nil
	})
	if err != nil {
		return domain.UserNone, err
	}
	return userID, nil
}

// EnsureExtID returns the user's ExtID for one game series, assigning a
// fresh one derived from an xxh3 hash on first use. Collisions within
// the eight-digit space are re-hashed.
func (r *UserRepository) EnsureExtID(ctx context.Context, game string, user domain.UserID) (int64, error) {
	var row models.ExtID
	err := r.db.WithContext(ctx).
		Where("game = ? AND user_id = ?", game, int64(user)).
		Take(&row).Error
	if err == nil {
		return row.ExtID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	seed := fmt.Sprintf("%s:%d", game, user)
	for attempt := 0; attempt < 10; attempt++ {
		candidate := int64(xxh3.HashString(fmt.Sprintf("%s:%d", seed, attempt)) % extidSpace)
		row = models.ExtID{Game: game, UserID: int64(user), ExtID: candidate}
		err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "game"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&row).Error
		if err == nil {
			// Another worker may have won the row; reread to get
			// the canonical value.
			var stored models.ExtID
			if err := r.db.WithContext(ctx).
				Where("game = ? AND user_id = ?", game, int64(user)).
				Take(&stored).Error; err != nil {
				return 0, err
			}
			return stored.ExtID, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, err
		}
	}
	return 0, fmt.Errorf("extid space exhausted for %s", seed)
}
