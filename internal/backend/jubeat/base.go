package jubeat

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/usecase"
)

// base carries the handlers and profile plumbing every jubeat entry
// shares. Concrete titles embed it and override the profile projection.
type base struct {
	*core.Base

	predecessor  usecase.ProfileFormatter
	musicVersion int
}

func newBase(deps core.Deps, config *arcanet.Mapping, version int, model arcanet.Model, predecessor usecase.ProfileFormatter) *base {
	return &base{
		Base:         core.NewBase(deps, config, Series, version, model),
		predecessor:  predecessor,
		musicVersion: version,
	}
}

func (b *base) Predecessor() usecase.ProfileFormatter { return b.predecessor }

func (b *base) rules() usecase.ScoreRules {
	return usecase.ScoreRules{
		Game:         Series,
		MusicVersion: b.musicVersion,
		Charts:       []int{ChartBasic, ChartAdvanced, ChartExtreme},
	}
}

// registerCommon installs the handlers every entry answers the same
// way. self is the concrete title so profile calls reach its overrides.
func (b *base) registerCommon(self core.Title) {
	b.Register("shopinfo", "regist", b.handleShopInfoRegist)
	b.Register("meeting", "get", b.handleMeetingGet)
	b.Register("lobby", "check", b.handleLobbyCheck)
	b.Register("lobby", "entry", b.handleLobbyEntry)
	b.Register("lobby", "refresh", b.handleLobbyRefresh)
	b.Register("lobby", "report", b.handleLobbyRefresh)
	b.Register("gametop", "regist", func(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
		return b.handleGametopRegist(ctx, self, req)
	})
	b.Register("gametop", "get", func(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
		return b.handleGametopGet(ctx, self, req)
	})
}

func (b *base) handleShopInfoRegist(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	if name := req.Body.ChildStr("shop_name"); name != "" {
		machine, err := b.Machines.Get(ctx, req.Machine.PCBID)
		if errors.Is(err, domain.ErrNotFound) {
			machine = &domain.Machine{PCBID: req.Machine.PCBID, Data: arcanet.NewMapping()}
		} else if err != nil {
			return nil, err
		}
		machine.Name = name
		if err := b.Machines.Put(ctx, machine); err != nil {
			return nil, err
		}
	}

	shopinfo := arcanet.Void("shopinfo")
	data := arcanet.Void("data")
	shopinfo.AddChild(data)
	data.AddChild(arcanet.U32("cabid", 1))
	locationid := req.Body.ChildStr("shop/locationid")
	if locationid == "" {
		locationid = "nowhere"
	}
	data.AddChild(arcanet.String("locationid", locationid))
	data.AddChild(arcanet.U8("is_send", 0))
	return shopinfo, nil
}

func (b *base) handleMeetingGet(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	root := arcanet.Void("meeting")
	data := arcanet.Void("data")
	root.AddChild(data)

	entryinfo := arcanet.Void("entryinfo")
	data.AddChild(entryinfo)
	entryinfo.SetAttribute("count", "0")

	reward := arcanet.Void("reward")
	data.AddChild(reward)
	reward.AddChild(arcanet.S32("total", 0))
	reward.AddChild(arcanet.S32("point", 0))
	return root, nil
}

// jubeat's in-game lobby is answered with a fixed single room; real
// matching for this series never left the stub stage upstream either.
func (b *base) handleLobbyCheck(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	root := arcanet.Void("lobby")
	data := arcanet.Void("data")
	root.AddChild(data)

	entrant := arcanet.U32("entrant_nr", 0)
	entrant.SetAttribute("time", "0")
	data.AddChild(entrant)
	data.AddChild(arcanet.S16("interval", 0))
	data.AddChild(arcanet.S16("entry_timeout", 30))

	waitlist := arcanet.Void("waitlist")
	data.AddChild(waitlist)
	waitlist.SetAttribute("count", "0")
	return root, nil
}

func (b *base) handleLobbyEntry(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	root := arcanet.Void("lobby")
	data := arcanet.Void("data")
	root.AddChild(data)

	roomid := arcanet.S64("roomid", 1)
	roomid.SetAttribute("master", "1")
	data.AddChild(roomid)
	data.AddChild(arcanet.S16("refresh_intr", 5))

	music := arcanet.Void("music")
	data.AddChild(music)
	music.AddChild(arcanet.U32("id", uint32(req.Body.ChildInt("data/music/id"))))
	music.AddChild(arcanet.U8("seq", uint8(req.Body.ChildInt("data/music/seq"))))
	return root, nil
}

func (b *base) handleLobbyRefresh(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	root := arcanet.Void("lobby")
	data := arcanet.Void("data")
	root.AddChild(data)
	data.AddChild(arcanet.S16("refresh_intr", 5))
	return root, nil
}

func (b *base) handleGametopRegist(ctx context.Context, self core.Title, req *core.Request) (*arcanet.Node, error) {
	refid := req.Body.ChildStr("data/player/pass/refid")
	name := req.Body.ChildStr("data/player/name")
	if refid == "" {
		return nil, fmt.Errorf("missing refid: %w", arcanet.ErrMalformedNode)
	}
	profile, err := b.Profile.NewProfileByRefID(ctx, self, refid, name, 0)
	if err != nil {
		return noProfileReply("gametop", arcanet.StatusCreateFailed), nil
	}
	return self.FormatProfile(ctx, profile)
}

func (b *base) handleGametopGet(ctx context.Context, self core.Title, req *core.Request) (*arcanet.Node, error) {
	refid := req.Body.ChildStr("data/player/pass/refid")
	root, err := b.Profile.GetProfileByRefID(ctx, self, refid)
	if errors.Is(err, domain.ErrNoProfile) {
		return noProfileReply("gametop", arcanet.StatusNoProfile), nil
	}
	if err != nil {
		return nil, err
	}
	if root.Name == "root" {
		// unknown card
		return noProfileReply("gametop", arcanet.StatusNoProfile), nil
	}
	return root, nil
}

func noProfileReply(module string, status int) *arcanet.Node {
	root := arcanet.Void(module)
	root.SetAttribute("status", strconv.Itoa(status))
	return root
}

// formatPlayer fills the profile fields every entry reports the same
// way: ids, name, play counters and the last-play cursor.
func (b *base) formatPlayer(profile *arcanet.Profile) *arcanet.Node {
	player := arcanet.Void("player")
	player.AddChild(arcanet.U32("session_id", 1))
	player.AddChild(arcanet.U32("jid", uint32(profile.ExtID)))
	player.AddChild(arcanet.String("name", profile.GetStr("name", "PLAYER")))

	info := arcanet.Void("info")
	player.AddChild(info)
	info.AddChild(arcanet.S32("play_cnt", int32(profile.GetInt("play_cnt", 0))))
	info.AddChild(arcanet.S32("save_cnt", int32(profile.GetInt("save_cnt", 0))))
	info.AddChild(arcanet.S32("saved_cnt", int32(profile.GetInt("saved_cnt", 0))))
	info.AddChild(arcanet.S32("match_cnt", int32(profile.GetInt("match_cnt", 0))))
	info.AddChild(arcanet.S32("beat_cnt", int32(profile.GetInt("beat_cnt", 0))))

	lastdict := profile.GetMapping("last")
	last := arcanet.Void("last")
	player.AddChild(last)
	last.AddChild(arcanet.U32("music_id", uint32(lastdict.GetInt("music_id", 0))))
	last.AddChild(arcanet.U8("seq_id", uint8(lastdict.GetInt("seq_id", 0))))
	last.AddChild(arcanet.U8("marker", uint8(lastdict.GetInt("marker", 0))))
	last.AddChild(arcanet.S16("title", int16(lastdict.GetInt("title", 0))))
	last.AddChild(arcanet.U8("theme", uint8(lastdict.GetInt("theme", 0))))
	last.AddChild(arcanet.U8("sort", uint8(lastdict.GetInt("sort", 0))))
	last.AddChild(arcanet.U32("filter", uint32(lastdict.GetInt("filter", 0))))
	return player
}

// unformatPlayer merges the per-play counters and the last cursor back
// into the profile.
func (b *base) unformatPlayer(profile *arcanet.Profile, player *arcanet.Node) {
	profile.ReplaceBool("saved", true)
	profile.IncrementInt("save_cnt")

	last := profile.GetMapping("last")
	for _, key := range []string{"marker", "title", "theme", "sort", "filter"} {
		if player.Child("last/" + key).Exists() {
			last.ReplaceInt(key, player.ChildInt("last/"+key))
		}
	}
	profile.ReplaceMapping("last", last)
}

// parseTunes walks the gameend result block and feeds each tune into
// the score engine. The clear attribute carries the flag bits, combo
// its best chain, mbar the ghost trace.
func (b *base) parseTunes(ctx context.Context, user domain.UserID, pcbid string, result *arcanet.Node) error {
	if !result.Exists() {
		return nil
	}
	now := b.Clock.Now()
	for _, tune := range result.Children {
		if tune.Name != "tune" {
			continue
		}
		songID := tune.ChildInt("music")
		chart := int(tune.Child("music").AttributeInt("seq", 0))
		player := tune.Child("player")
		points := player.ChildInt("score")
		flags := player.Child("score").AttributeInt("clear", 0)
		combo := player.Child("score").AttributeInt("combo", -1)
		ghost := ghostBytes(player.Child("mbar"))

		if flags&^flagKnownMask != 0 {
			return fmt.Errorf("clear flags %#x: %w", flags, domain.ErrInvalidArgument)
		}

		update := usecase.ScoreUpdate{
			SongID:    songID,
			Chart:     chart,
			Points:    points,
			ClearFlag: flags | FlagPlayed,
			Grade:     -1,
			Combo:     combo,
			MissCount: -1,
			FullCombo: flags&FlagFullCombo != 0 || flags&FlagExcellent != 0,
			Ghost:     ghost,
		}
		if _, err := b.Score.UpdateScore(ctx, user, pcbid, now, b.rules(), update); err != nil {
			return err
		}
	}
	return nil
}

// formatScores renders the stored records into the mdata block: one
// musicdata node per song with points, flag and ghost slots per chart.
func (b *base) formatScores(scores []*domain.Score) *arcanet.Node {
	playdata := arcanet.Void("playdata")

	bySong := map[int64][]*domain.Score{}
	var order []int64
	for _, score := range scores {
		if score.Chart < ChartBasic || score.Chart > ChartExtreme {
			continue
		}
		if _, seen := bySong[score.SongID]; !seen {
			order = append(order, score.SongID)
		}
		bySong[score.SongID] = append(bySong[score.SongID], score)
	}

	for _, songID := range order {
		points := make([]int64, 3)
		flags := make([]int64, 3)
		ghosts := make([][]byte, 3)
		for _, score := range bySong[songID] {
			points[score.Chart] = score.Points
			flags[score.Chart] = score.Data.GetInt("clear_flag", FlagPlayed)
			ghosts[score.Chart] = score.Data.GetBytes("ghost", nil)
		}

		musicdata := arcanet.Void("musicdata")
		playdata.AddChild(musicdata)
		musicdata.SetAttribute("music_id", strconv.FormatInt(songID, 10))
		musicdata.AddChild(arcanet.S32Array("score", points))
		musicdata.AddChild(arcanet.U8Array("clear", flags))
		for seq, ghost := range ghosts {
			if ghost == nil {
				continue
			}
			values := make([]int64, len(ghost))
			for i, v := range ghost {
				values[i] = int64(v)
			}
			bar := arcanet.U8Array("bar", values)
			bar.SetAttribute("seq", strconv.Itoa(seq))
			musicdata.AddChild(bar)
		}
	}
	return playdata
}

// ghostBytes accepts the ghost trace either as a binary blob or as the
// game's u8 array form.
func ghostBytes(n *arcanet.Node) []byte {
	if bin := n.BytesValue(); len(bin) > 0 {
		return bin
	}
	arr := n.IntArray()
	if len(arr) == 0 {
		return nil
	}
	out := make([]byte, len(arr))
	for i, v := range arr {
		out[i] = byte(v)
	}
	return out
}

// userFromProfile resolves the owner of a formatted profile.
func (b *base) userFromProfile(ctx context.Context, profile *arcanet.Profile) (domain.UserID, error) {
	return b.Profile.UserFromExtID(ctx, Series, b.Version(), profile.ExtID)
}
