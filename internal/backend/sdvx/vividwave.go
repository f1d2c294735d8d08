package sdvx

import (
	"context"
	"errors"
	"fmt"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/usecase"
)

// itemAchievementType tags a catalog unlock by its numeric type so each
// kind keeps its own id space.
func itemAchievementType(catalogType int64) string {
	return fmt.Sprintf("item_%d", catalogType)
}

// VividWave serves the KFC models. All requests arrive on the game
// module with sv5-prefixed methods.
type VividWave struct {
	*core.Base
}

func NewVividWave(deps core.Deps, config *arcanet.Mapping, model arcanet.Model) *VividWave {
	t := &VividWave{Base: core.NewBase(deps, config, Series, VersionVividWave, model)}
	t.Register("game", "sv5_entry_s", t.handleEntryS)
	t.Register("game", "sv5_common", t.handleCommon)
	t.Register("game", "sv5_load", t.handleLoad)
	t.Register("game", "sv5_frozen", t.handleFrozen)
	t.Register("game", "sv5_new", t.handleNew)
	t.Register("game", "sv5_load_m", t.handleLoadM)
	t.Register("game", "sv5_save", t.handleSave)
	t.Register("game", "sv5_play_e", t.handlePlayE)
	t.Register("game", "sv5_save_e", t.handleSaveE)
	return t
}

func (t *VividWave) Predecessor() usecase.ProfileFormatter { return nil }

func (t *VividWave) handleEntryS(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	game := arcanet.Void("game")
	game.AddChild(arcanet.U32("entry_id", 1))
	return game, nil
}

func (t *VividWave) handleCommon(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	game := arcanet.Void("game")

	limited := arcanet.Void("music_limited")
	game.AddChild(limited)
	if t.GameConfig.GetBool("force_unlock_songs", false) {
		songs, err := t.Music.GetAll(ctx, Series, VersionVividWave)
		if err != nil {
			return nil, err
		}
		for _, song := range songs {
			if song.Data == nil {
				continue
			}
			state := song.Data.GetInt("limited", 0)
			if state != LimitedLocked && state != LimitedUnlockable {
				continue
			}
			info := arcanet.Void("info")
			limited.AddChild(info)
			info.AddChild(arcanet.S32("music_id", int32(song.ID)))
			info.AddChild(arcanet.U8("music_type", uint8(song.Chart)))
			info.AddChild(arcanet.U8("limited", LimitedUnlocked))
		}
	}

	game.AddChild(arcanet.Void("catalog"))

	event := arcanet.Void("event")
	game.AddChild(event)
	enable := func(id string) {
		info := arcanet.Void("info")
		event.AddChild(info)
		info.AddChild(arcanet.String("event_id", id))
	}
	if !t.GameConfig.GetBool("disable_matching", false) {
		enable("MATCHING_MODE")
		enable("MATCHING_MODE_FREE_IP")
	}
	if t.GameConfig.GetBool("50th_anniversary", false) {
		enable("KONAMI_50TH_LOGO")
	}
	enable("ICON_FLOOR_INFECTION")
	enable("ICON_POLICY_BREAK")
	enable("VOLFORCE_ENABLE")
	enable("ACHIEVEMENT_ENABLE")
	enable("PREMIUM_TIME_ENABLE")
	enable("CREW_SELECT_ABLE")
	enable("BLASTER_ABLE")
	enable("SKILL_ANALYZER_ABLE")
	enable("STANDARD_UNLOCK_ENABLE")
	enable("PAUSE_ONLINEUPDATE")
	enable("DEMOGAME_PLAY")

	game.AddChild(arcanet.Void("extend"))
	return game, nil
}

// sv5_load either returns the full profile, an inheritance offer when a
// previous-version save exists, or a register prompt.
func (t *VividWave) handleLoad(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	refid := req.Body.ChildStr("refid")
	root, err := t.Profile.GetProfileByRefID(ctx, t, refid)
	if err == nil && root.Name != "root" {
		return root, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNoProfile) {
		return nil, err
	}

	game := arcanet.Void("game")
	user, err := t.Profile.UserFromRefID(ctx, Series, VersionVividWave, refid)
	if err == nil {
		if old, err := t.Profile.GetProfileByUser(ctx, Series, VersionVividWave-1, user); err == nil {
			game.AddChild(arcanet.U8("result", 2))
			game.AddChild(arcanet.String("name", old.GetStr("name", "")))
			return game, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	game.AddChild(arcanet.U8("result", 1))
	return game, nil
}

func (t *VividWave) handleFrozen(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	game := arcanet.Void("game")
	game.AddChild(arcanet.U8("result", 0))
	return game, nil
}

func (t *VividWave) handleNew(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	refid := req.Body.ChildStr("refid")
	name := req.Body.ChildStr("name")
	if _, err := t.Profile.NewProfileByRefID(ctx, t, refid, name, 0); err != nil {
		return nil, err
	}
	return arcanet.Void("game"), nil
}

func (t *VividWave) handleLoadM(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	game := arcanet.Void("game")
	game.AddChild(arcanet.Void("music"))
	return game, nil
}

func (t *VividWave) handleSave(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	refid := req.Body.ChildStr("refid")
	if _, err := t.Profile.PutProfileByRefID(ctx, t, refid, req.Body); err != nil {
		if errors.Is(err, domain.ErrNoProfile) {
			return arcanet.Void("game"), nil
		}
		return nil, err
	}
	user, err := t.Profile.UserFromRefID(ctx, Series, VersionVividWave, refid)
	if err != nil {
		return nil, err
	}
	if _, err := t.Stats.Bump(ctx, user, Series); err != nil {
		return nil, err
	}
	return arcanet.Void("game"), nil
}

func (t *VividWave) handlePlayE(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	return arcanet.Void("game"), nil
}

func (t *VividWave) handleSaveE(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	game := arcanet.Void("game")

	infection := arcanet.Void("pbc_infection")
	game.AddChild(infection)
	for _, name := range []string{"packet", "block", "coloris"} {
		child := arcanet.Void(name)
		infection.AddChild(child)
		child.AddChild(arcanet.S32("before", 0))
		child.AddChild(arcanet.S32("after", 0))
	}
	return game, nil
}

// forcedCatalogType reports whether the config force-unlocks the given
// catalog item type.
func (t *VividWave) forcedCatalogType(catalogType int64) bool {
	switch catalogType {
	case CatalogTypeSong:
		return t.GameConfig.GetBool("force_unlock_songs", false)
	case CatalogTypeAppealCard:
		return t.GameConfig.GetBool("force_unlock_cards", false)
	case CatalogTypeCrew:
		return t.GameConfig.GetBool("force_unlock_crew", false)
	}
	return false
}

func (t *VividWave) FormatProfile(ctx context.Context, profile *arcanet.Profile) (*arcanet.Node, error) {
	user, err := t.Profile.UserFromExtID(ctx, Series, VersionVividWave, profile.ExtID)
	if err != nil {
		return nil, err
	}
	stats, err := t.Stats.Get(ctx, user, Series)
	if err != nil {
		return nil, err
	}

	game := arcanet.Void("game")
	game.AddChild(arcanet.String("name", profile.GetStr("name", "")))
	game.AddChild(arcanet.String("code", FormatExtID(profile.ExtID)))
	game.AddChild(arcanet.String("sdvx_id", FormatExtID(profile.ExtID)))
	game.AddChild(arcanet.U16("appeal_id", uint16(profile.GetInt("appealid", 0))))
	game.AddChild(arcanet.S16("skill_base_id", int16(profile.GetInt("skill_base_id", 0))))
	game.AddChild(arcanet.S16("skill_name_id", int16(profile.GetInt("skill_name_id", 0))))
	game.AddChild(arcanet.U32("gamecoin_packet", uint32(profile.GetInt("packet", 0))))
	game.AddChild(arcanet.U32("gamecoin_block", uint32(profile.GetInt("block", 0))))
	game.AddChild(arcanet.U32("blaster_energy", uint32(profile.GetInt("blaster_energy", 0))))
	game.AddChild(arcanet.U32("blaster_count", uint32(profile.GetInt("blaster_count", 0))))

	game.AddChild(arcanet.U32("play_count", uint32(stats.TotalPlays)))
	game.AddChild(arcanet.U32("today_count", uint32(stats.TodayPlays)))
	game.AddChild(arcanet.U32("play_chain", uint32(stats.ConsecutiveDays)))

	last := profile.GetMapping("last")
	game.AddChild(arcanet.S32("hispeed", int32(last.GetInt("hispeed", 0))))
	game.AddChild(arcanet.U32("lanespeed", uint32(last.GetInt("lanespeed", 0))))
	game.AddChild(arcanet.U8("gauge_option", uint8(last.GetInt("gauge_option", 0))))
	game.AddChild(arcanet.U8("ars_option", uint8(last.GetInt("ars_option", 0))))
	game.AddChild(arcanet.U8("notes_option", uint8(last.GetInt("notes_option", 0))))
	game.AddChild(arcanet.S32("last_music_id", int32(last.GetInt("music_id", -1))))
	game.AddChild(arcanet.U8("last_music_type", uint8(last.GetInt("music_type", 0))))
	game.AddChild(arcanet.U8("sort_type", uint8(last.GetInt("sort_type", 0))))
	game.AddChild(arcanet.U8("headphone", uint8(last.GetInt("headphone", 0))))

	item := arcanet.Void("item")
	game.AddChild(item)

	achievements, err := t.Achievements.GetAll(ctx, user, Series, VersionVividWave)
	if err != nil {
		return nil, err
	}
	for _, a := range achievements {
		var catalogType int64
		if _, err := fmt.Sscanf(a.Type, "item_%d", &catalogType); err != nil {
			continue
		}
		// forced types get the full list below instead
		if t.forcedCatalogType(catalogType) {
			continue
		}
		info := arcanet.Void("info")
		item.AddChild(info)
		info.AddChild(arcanet.U8("type", uint8(catalogType)))
		info.AddChild(arcanet.U32("id", uint32(a.ID)))
		info.AddChild(arcanet.U32("param", uint32(a.Data.GetInt("param", 0))))
	}

	if t.GameConfig.GetBool("force_unlock_songs", false) {
		songs, err := t.Music.GetAll(ctx, Series, VersionVividWave)
		if err != nil {
			return nil, err
		}
		params := map[int64]int64{}
		var order []int64
		for _, song := range songs {
			if _, seen := params[song.ID]; !seen {
				order = append(order, song.ID)
			}
			params[song.ID] |= 1 << song.Chart
		}
		for _, id := range order {
			info := arcanet.Void("info")
			item.AddChild(info)
			info.AddChild(arcanet.U8("type", CatalogTypeSong))
			info.AddChild(arcanet.U32("id", uint32(id)))
			info.AddChild(arcanet.U32("param", uint32(params[id])))
		}
	}
	if t.GameConfig.GetBool("force_unlock_crew", false) {
		for crew := 1; crew < 999; crew++ {
			info := arcanet.Void("info")
			item.AddChild(info)
			info.AddChild(arcanet.U8("type", CatalogTypeCrew))
			info.AddChild(arcanet.U32("id", uint32(crew)))
			info.AddChild(arcanet.U32("param", 1))
		}
	}

	skill := arcanet.Void("skill")
	game.AddChild(skill)
	skill.AddChild(arcanet.S16("skill_level", int16(profile.GetInt("skill_level", 0))))
	return game, nil
}

func (t *VividWave) UnformatProfile(ctx context.Context, user domain.UserID, request *arcanet.Node, old *arcanet.Profile) (*arcanet.Profile, error) {
	if old == nil {
		return nil, nil
	}
	profile := old.CloneProfile()

	// earned currencies accumulate
	for req, key := range map[string]string{
		"earned_gamecoin_packet": "packet",
		"earned_gamecoin_block":  "block",
		"earned_blaster_energy":  "blaster_energy",
	} {
		if request.Child(req).Exists() {
			profile.ReplaceInt(key, profile.GetInt(key, 0)+request.ChildInt(req))
		}
	}
	for _, key := range []string{"blaster_count", "appeal_id", "skill_level", "skill_base_id", "skill_name_id"} {
		if request.Child(key).Exists() {
			stored := key
			if key == "appeal_id" {
				stored = "appealid"
			}
			profile.ReplaceInt(stored, request.ChildInt(key))
		}
	}

	if items := request.Child("item"); items.Exists() {
		for _, child := range items.Children {
			if child.Name != "info" {
				continue
			}
			catalogType := child.ChildInt("type")
			if t.forcedCatalogType(catalogType) {
				continue
			}
			data := arcanet.NewMapping()
			data.ReplaceInt("param", child.ChildInt("param"))
			if err := t.Achievements.Put(ctx, &domain.Achievement{
				UserID:  user,
				Game:    Series,
				Version: VersionVividWave,
				ID:      child.ChildInt("id"),
				Type:    itemAchievementType(catalogType),
				Data:    data,
			}); err != nil {
				return nil, err
			}
		}
	}

	last := profile.GetMapping("last")
	for _, key := range []string{
		"music_id", "music_type", "sort_type", "headphone",
		"gauge_option", "ars_option", "notes_option",
		"lanespeed", "hispeed",
	} {
		if request.Child(key).Exists() {
			last.ReplaceInt(key, request.ChildInt(key))
		}
	}
	profile.ReplaceMapping("last", last)
	return profile, nil
}
