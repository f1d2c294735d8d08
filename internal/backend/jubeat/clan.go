package jubeat

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/usecase"
)

// Clan's five-plays unlock event loads one of these ids per prefecture,
// so none of them are safe to hand out as a daily challenge.
const (
	fivePlaysEventFirstSong = 80000301
	fivePlaysEventLastSong  = 80000347
)

const clanRivalCap = 3

// teamBattles is the static battle table the current_team_battle config
// key indexes into.
var teamBattles = []string{
	"RED TEAM vs BLUE TEAM",
	"EAST vs WEST",
	"MORNING vs NIGHT",
}

// tuneRunPacks are the extra course packs selectable per KAC phase.
var tuneRunPacks = [][]int64{
	{},
	{50000077, 80000080},
	{50000121, 80000033, 90000009},
}

// Clan follows knit. It adds the daily full-combo challenge, rivals and
// force-unlock handling.
type Clan struct {
	*base
}

func NewClan(deps core.Deps, config *arcanet.Mapping, model arcanet.Model) *Clan {
	t := &Clan{base: newBase(deps, config, VersionClan, model, NewKnit(deps, config, model))}
	t.registerCommon(t)
	t.Register("demodata", "get_info", t.handleDemodataGetInfo)
	t.Register("demodata", "get_jbox_list", t.handleDemodataGetJboxList)
	t.Register("jbox", "get_agreement", t.handleJboxGetAgreement)
	t.Register("gametop", "get_info", t.handleGametopGetInfo)
	t.Register("gametop", "get_pdata", func(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
		return t.handleGametopGet(ctx, t, req)
	})
	t.Register("gametop", "get_mdata", t.handleGametopGetMdata)
	t.Register("gameend", "final", t.handleGameendFinal)
	return t
}

func (t *Clan) handleDemodataGetInfo(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	demodata := arcanet.Void("demodata")
	data := arcanet.Void("data")
	demodata.AddChild(data)
	info := arcanet.Void("info")
	data.AddChild(info)
	info.AddChild(arcanet.S32Array("black_jacket_list", make([]int64, 30)))
	return demodata, nil
}

func (t *Clan) handleDemodataGetJboxList(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	return arcanet.Void("demodata"), nil
}

func (t *Clan) handleJboxGetAgreement(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	jbox := arcanet.Void("jbox")
	jbox.AddChild(arcanet.Bool("agreement", true))
	return jbox, nil
}

func (t *Clan) handleGametopGetInfo(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	root := arcanet.Void("gametop")
	data := arcanet.Void("data")
	root.AddChild(data)
	info := arcanet.Void("info")
	data.AddChild(info)

	battle := arcanet.Void("team_battle")
	info.AddChild(battle)
	index := t.GameConfig.GetInt("current_team_battle", 0)
	if index > 0 && int(index) <= len(teamBattles) {
		battle.SetAttribute("index", strconv.FormatInt(index, 10))
		battle.AddChild(arcanet.String("name", teamBattles[index-1]))
	}
	return root, nil
}

func (t *Clan) handleGametopGetMdata(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	extid := req.Body.ChildInt("data/player/jid")
	user, err := t.Profile.UserFromExtID(ctx, Series, t.Version(), extid)
	if errors.Is(err, domain.ErrNotFound) {
		return noProfileReply("gametop", arcanet.StatusNoProfile), nil
	}
	if err != nil {
		return nil, err
	}
	scores, err := t.Score.GetScores(ctx, user, Series, t.musicVersion)
	if err != nil {
		return nil, err
	}

	root := arcanet.Void("gametop")
	data := arcanet.Void("data")
	root.AddChild(data)
	player := arcanet.Void("player")
	data.AddChild(player)
	player.AddChild(arcanet.U32("jid", uint32(extid)))
	player.AddChild(t.formatScores(scores))
	return root, nil
}

func (t *Clan) handleGameendFinal(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	refid := req.Body.ChildStr("data/player/refid")
	if refid == "" {
		refid = req.Body.ChildStr("data/player/pass/refid")
	}
	user, err := t.Profile.UserFromRefID(ctx, Series, t.Version(), refid)
	if errors.Is(err, domain.ErrNotFound) {
		return noProfileReply("gameend", arcanet.StatusNoProfile), nil
	}
	if err != nil {
		return nil, err
	}
	if err := t.parseTunes(ctx, user, req.Machine.PCBID, req.Body.Child("data/result")); err != nil {
		return nil, err
	}
	if _, err := t.Profile.PutProfileByRefID(ctx, t, refid, req.Body); err != nil {
		return nil, err
	}
	if _, err := t.Stats.Bump(ctx, user, Series); err != nil {
		return nil, err
	}
	return arcanet.Void("gameend"), nil
}

// fcChallenge returns today's challenge record, generating it when this
// cabinet is the first to ask past the day boundary. Two distinct songs
// are drawn from the catalog, skipping the prefecture-dependent event
// range.
func (t *Clan) fcChallenge(ctx context.Context) (*domain.TimeSensitiveSetting, error) {
	return t.Schedule.RunScheduled(ctx, Series, t.Version(), "fc_challenge", domain.CadenceDaily,
		func(start, end time.Time) (*arcanet.Mapping, error) {
			songs, err := t.Music.GetAll(ctx, Series, t.Version())
			if err != nil {
				return nil, err
			}
			seen := map[int64]bool{}
			var pool []int64
			for _, song := range songs {
				if song.ID >= fivePlaysEventFirstSong && song.ID <= fivePlaysEventLastSong {
					continue
				}
				if !seen[song.ID] {
					seen[song.ID] = true
					pool = append(pool, song.ID)
				}
			}
			payload := arcanet.NewMapping()
			if len(pool) >= 2 {
				first := rand.IntN(len(pool))
				second := rand.IntN(len(pool) - 1)
				if second >= first {
					second++
				}
				payload.ReplaceInt("today", pool[first])
				payload.ReplaceInt("whim", pool[second])
			}
			return payload, nil
		})
}

func (t *Clan) FormatProfile(ctx context.Context, profile *arcanet.Profile) (*arcanet.Node, error) {
	user, err := t.userFromProfile(ctx, profile)
	if err != nil {
		return nil, err
	}
	forceUnlock := t.GameConfig.GetBool("force_unlock_songs", false)

	root := arcanet.Void("gametop")
	data := arcanet.Void("data")
	root.AddChild(data)
	player := t.formatPlayer(profile)
	data.AddChild(player)

	// song ownership, either the real achievement set or all ones
	item := arcanet.Void("item")
	player.AddChild(item)
	if forceUnlock {
		item.AddChild(arcanet.S32Array("secret_list", core.AllOnesBitmap(64)))
	} else {
		achievements, err := t.Achievements.GetAllOfType(ctx, user, Series, t.Version(), "song")
		if err != nil {
			return nil, err
		}
		var owned []int64
		for _, a := range achievements {
			owned = append(owned, a.ID)
		}
		item.AddChild(arcanet.S32Array("secret_list", core.BitmapFromOwnedIDs(owned, 64)))
	}

	if err := t.formatRivals(ctx, user, player); err != nil {
		return nil, err
	}
	if err := t.formatFCChallenge(ctx, user, player); err != nil {
		return nil, err
	}
	t.formatTuneRun(player)

	scores, err := t.Score.GetScores(ctx, user, Series, t.musicVersion)
	if err != nil {
		return nil, err
	}
	player.AddChild(t.formatScores(scores))
	return root, nil
}

func (t *Clan) formatRivals(ctx context.Context, user domain.UserID, player *arcanet.Node) error {
	links, err := t.Rivals.GetRivals(ctx, user, Series, t.Version())
	if err != nil {
		return err
	}
	rivallist := arcanet.Void("rivallist")
	player.AddChild(rivallist)

	count := 0
	for _, link := range links {
		card, err := t.Rivals.RivalCard(ctx, Series, t.Version(), link.OtherUserID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		rival := arcanet.Void("rival")
		rivallist.AddChild(rival)
		rival.AddChild(arcanet.U32("jid", uint32(card.ExtID)))
		rival.AddChild(arcanet.String("name", card.Name))

		// the game throws up past three rivals
		count++
		if count >= clanRivalCap {
			break
		}
	}
	rivallist.SetAttribute("count", strconv.Itoa(count))
	return nil
}

func (t *Clan) formatFCChallenge(ctx context.Context, user domain.UserID, player *arcanet.Node) error {
	entry, err := t.fcChallenge(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	payload := arcanet.NewMapping()
	if entry != nil {
		payload = entry.Data
	}

	start := t.Clock.BeginningOfDay()
	fcChallenge := arcanet.Void("fc_challenge")
	player.AddChild(fcChallenge)
	for _, slot := range []string{"today", "whim"} {
		songID := payload.GetInt(slot, -1)
		state := int64(0)
		if songID >= 0 {
			attempts, err := t.Score.GetAttempts(ctx, user, Series, t.musicVersion, songID, start)
			if err != nil {
				return err
			}
			if len(attempts) > 0 {
				state = 0x40
			}
		}
		node := arcanet.Void(slot)
		fcChallenge.AddChild(node)
		node.AddChild(arcanet.S32("music_id", int32(songID)))
		node.AddChild(arcanet.U8("state", uint8(state)))
	}
	return nil
}

// formatTuneRun emits the course list header, including the extra pack
// selected by the kac_phase config key.
func (t *Clan) formatTuneRun(player *arcanet.Node) {
	courseList := arcanet.Void("course_list")
	player.AddChild(courseList)

	phase := t.GameConfig.GetInt("kac_phase", 0)
	if phase < 0 || int(phase) >= len(tuneRunPacks) {
		phase = 0
	}
	pack := tuneRunPacks[phase]
	for i, songID := range pack {
		course := arcanet.Void("course")
		courseList.AddChild(course)
		course.SetAttribute("id", strconv.Itoa(i+1))
		course.AddChild(arcanet.S32("music_id", int32(songID)))
	}
	courseList.SetAttribute("count", strconv.Itoa(len(pack)))
}

func (t *Clan) UnformatProfile(ctx context.Context, user domain.UserID, request *arcanet.Node, old *arcanet.Profile) (*arcanet.Profile, error) {
	if old == nil {
		return nil, nil
	}
	profile := old.CloneProfile()
	player := request.Child("data/player")
	t.unformatPlayer(profile, player)

	// machine-granted unlocks are not persisted
	if !t.GameConfig.GetBool("force_unlock_songs", false) {
		for _, id := range core.OwnedIDsFromBitmap(player.ChildIntArray("item/secret_list")) {
			if err := t.Achievements.Grant(ctx, user, Series, t.Version(), id, "song", nil); err != nil {
				return nil, err
			}
		}
	}

	if rivals := player.Child("rivallist"); rivals.Exists() {
		for _, rival := range rivals.Children {
			if rival.Name != "rival" {
				continue
			}
			extid := rival.ChildInt("jid")
			if err := t.Rivals.AddRival(ctx, user, Series, t.Version(), extid, clanRivalCap); err != nil &&
				!errors.Is(err, usecase.ErrRivalCapReached) && !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
		}
	}
	return profile, nil
}
