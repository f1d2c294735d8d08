package iidx

import (
	"context"
	"errors"
	"math/bits"
	"strconv"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/usecase"
)

// HeroicVerse serves the LDJ models. Modules arrive prefixed with the
// wire version, IIDX27pc and friends.
type HeroicVerse struct {
	*core.Base
}

func NewHeroicVerse(deps core.Deps, config *arcanet.Mapping, model arcanet.Model) *HeroicVerse {
	t := &HeroicVerse{Base: core.NewBase(deps, config, Series, VersionHeroicVerse, model)}
	t.Register("IIDX27shop", "sentinfo", t.handleShopSentinfo)
	t.Register("IIDX27gameSystem", "systemInfo", t.handleSystemInfo)
	t.Register("IIDX27lobby", "entry", t.handleLobbyEntry)
	t.Register("IIDX27lobby", "delete", t.handleLobbyDelete)
	t.Register("IIDX27music", "getrank", t.handleMusicGetrank)
	t.Register("IIDX27music", "appoint", t.handleMusicAppoint)
	t.Register("IIDX27music", "reg", t.handleMusicReg)
	t.Register("IIDX27pc", "common", t.handlePcCommon)
	t.Register("IIDX27pc", "get", t.handlePcGet)
	t.Register("IIDX27pc", "reg", t.handlePcReg)
	t.Register("IIDX27pc", "oldget", t.handlePcOldget)
	t.Register("IIDX27pc", "save", t.handlePcSave)
	t.Register("IIDX27pc", "visit", t.handlePcVisit)
	t.Register("IIDX27pc", "delete", t.handlePcDelete)
	return t
}

func (t *HeroicVerse) Predecessor() usecase.ProfileFormatter { return nil }

func (t *HeroicVerse) rules() usecase.ScoreRules {
	return usecase.ScoreRules{
		Game:         Series,
		MusicVersion: VersionHeroicVerse,
		Charts: []int{
			ChartSPNormal, ChartSPHyper, ChartSPAnother,
			ChartDPNormal, ChartDPHyper, ChartDPAnother,
			ChartSPBeginner, ChartSPLeggendaria,
			ChartDPBeginner, ChartDPLeggendaria,
		},
		ClearFlags: []int64{
			1 << ClearStatusNoPlay, 1 << ClearStatusFailed, 1 << ClearStatusAssistClear,
			1 << ClearStatusEasyClear, 1 << ClearStatusClear, 1 << ClearStatusHardClear,
			1 << ClearStatusExHardClear, 1 << ClearStatusFullCombo,
		},
	}
}

// Clear statuses are stored one bit per status so the flag merge keeps
// every lamp ever earned; the best one is the highest set bit.
func statusFromFlags(flags int64) int64 {
	if flags == 0 {
		return ClearStatusNoPlay
	}
	return int64(bits.Len64(uint64(flags)) - 1)
}

func (t *HeroicVerse) handleShopSentinfo(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	return arcanet.Void("IIDX27shop"), nil
}

func (t *HeroicVerse) handleSystemInfo(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	root := arcanet.Void("IIDX27gameSystem")

	schedule := arcanet.Void("arena_schedule")
	root.AddChild(schedule)
	schedule.AddChild(arcanet.U8("phase", 3))
	schedule.AddChild(arcanet.U32("start", uint32(t.Clock.BeginningOfWeek().Unix())))
	schedule.AddChild(arcanet.U32("end", uint32(t.Clock.EndOfWeek().Unix())))

	for _, style := range []int64{StyleSingle, StyleDouble} {
		for class := int64(0); class < 20; class++ {
			difficult := arcanet.Void("arena_music_difficult")
			root.AddChild(difficult)
			difficult.AddChild(arcanet.S32("play_style", int32(style)))
			difficult.AddChild(arcanet.S32("arena_class", int32(class)))
			difficult.AddChild(arcanet.S32("low_difficult", 1))
			difficult.AddChild(arcanet.S32("high_difficult", 12))
			difficult.AddChild(arcanet.Bool("is_leggendaria", true))
			difficult.AddChild(arcanet.S32("force_music_list_id", 0))
		}
	}
	return root, nil
}

func (t *HeroicVerse) handleLobbyEntry(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	extid := req.Body.ChildInt("iidx_id")
	user, err := t.Profile.UserFromExtID(ctx, Series, VersionHeroicVerse, extid)
	if errors.Is(err, domain.ErrNotFound) {
		root := arcanet.Void("IIDX27lobby")
		root.SetAttribute("fault", "1")
		return root, nil
	}
	if err != nil {
		return nil, err
	}

	ga := req.Body.ChildIntArray("address/ga")
	gp := req.Body.ChildInt("address/gp")
	la := req.Body.ChildIntArray("address/la")
	class := req.Body.ChildInt("arena_class")

	if err := t.Lobby.PutPlaySessionInfo(ctx, &domain.PlaySessionInfo{
		UserID:        user,
		Game:          Series,
		Version:       VersionHeroicVerse,
		GameAddress:   ga,
		GamePort:      gp,
		LocalAddress:  la,
		MatchingClass: class,
		PlayStyle:     req.Body.ChildInt("play_style"),
		PCBID:         req.Machine.PCBID,
	}); err != nil {
		return nil, err
	}

	lobby, host, err := t.Lobby.Entry(ctx, Series, VersionHeroicVerse, usecase.EntryRequest{
		User:            user,
		GameAddress:     ga,
		GamePort:        gp,
		LocalAddress:    la,
		MatchingClass:   class,
		Capacity:        lobbyCapacity,
		DisableMatching: t.GameConfig.GetBool("disable_matching", false),
	})
	if err != nil {
		return nil, err
	}

	root := arcanet.Void("IIDX27lobby")
	root.AddChild(arcanet.Bool("host", host))
	root.AddChild(arcanet.S32("matching_class", int32(lobby.MatchingClass)))
	address := arcanet.Void("address")
	root.AddChild(address)
	address.AddChild(arcanet.U8Array("ga", pad(lobby.GameAddress, 4)))
	address.AddChild(arcanet.U16("gp", uint16(lobby.GamePort)))
	address.AddChild(arcanet.U8Array("la", pad(lobby.LocalAddress, 4)))
	return root, nil
}

func (t *HeroicVerse) handleLobbyDelete(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	err := t.Lobby.DeleteByAddress(ctx, Series, VersionHeroicVerse,
		req.Body.ChildIntArray("address/ga"),
		req.Body.ChildInt("address/gp"),
		req.Body.ChildIntArray("address/la"))
	if err != nil {
		return nil, err
	}
	return arcanet.Void("IIDX27lobby"), nil
}

// getrank serves the caller's score table and up to five rivals', one
// request per style. Rows are compact s16 tuples the client indexes by
// the leading rival number.
func (t *HeroicVerse) handleMusicGetrank(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	cltype := req.Body.AttributeInt("cltype", 0)

	root := arcanet.Void("IIDX27music")
	style := arcanet.Void("style")
	root.AddChild(style)
	style.SetAttribute("type", strconv.FormatInt(cltype, 10))

	for rival := -1; rival < rivalCap; rival++ {
		attr := "iidxid"
		if rival >= 0 {
			attr = "iidxid" + strconv.Itoa(rival)
		}
		raw := req.Body.Attribute(attr)
		if raw == "" {
			continue
		}
		extid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		user, err := t.Profile.UserFromExtID(ctx, Series, VersionHeroicVerse, extid)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		scores, err := t.Score.GetScores(ctx, user, Series, VersionHeroicVerse)
		if err != nil {
			return nil, err
		}
		for _, score := range scores {
			if singleChart(score.Chart) != (cltype == StyleSingle) {
				continue
			}
			root.AddChild(arcanet.S16Array("m", []int64{
				int64(rival),
				score.SongID,
				int64(score.Chart),
				score.Points,
				statusFromFlags(score.Data.GetInt("clear_flag", 0)),
				score.Data.GetInt("miss_count", -1),
			}))
		}

		mostPlayed, err := t.Score.GetMostPlayed(ctx, user, Series, VersionHeroicVerse, 20)
		if err != nil {
			return nil, err
		}
		for len(mostPlayed) < 20 {
			mostPlayed = append(mostPlayed, 0)
		}
		best := arcanet.U16Array("best", mostPlayed)
		best.SetAttribute("rno", strconv.Itoa(rival))
		root.AddChild(best)
	}
	return root, nil
}

func (t *HeroicVerse) handleMusicAppoint(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	songID := req.Body.AttributeInt("mid", 0)
	chart := int(req.Body.AttributeInt("clid", 0))
	extid := req.Body.AttributeInt("iidxid", 0)

	root := arcanet.Void("IIDX27music")
	user, err := t.Profile.UserFromExtID(ctx, Series, VersionHeroicVerse, extid)
	if errors.Is(err, domain.ErrNotFound) {
		return root, nil
	}
	if err != nil {
		return nil, err
	}

	score, err := t.Score.GetScore(ctx, user, Series, VersionHeroicVerse, songID, chart)
	if errors.Is(err, domain.ErrNotFound) {
		return root, nil
	}
	if err != nil {
		return nil, err
	}
	if ghost := score.Data.GetBytes("ghost", nil); ghost != nil {
		root.AddChild(arcanet.Bytes("mydata", ghost))
	}
	if gauge := score.Data.GetBytes("ghost_gauge", nil); gauge != nil {
		root.AddChild(arcanet.Bytes("my_gauge_data", gauge))
	}
	return root, nil
}

func (t *HeroicVerse) handleMusicReg(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	extid := req.Body.AttributeInt("iidxid", 0)
	songID := req.Body.AttributeInt("mid", 0)
	chart := int(req.Body.AttributeInt("clid", 0))
	status := req.Body.AttributeInt("cflg", ClearStatusNoPlay)
	pgreats := req.Body.AttributeInt("pgnum", 0)
	greats := req.Body.AttributeInt("gnum", 0)
	missCount := req.Body.AttributeInt("mnum", -1)

	user, err := t.Profile.UserFromExtID(ctx, Series, VersionHeroicVerse, extid)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	extra := arcanet.NewMapping()
	extra.ReplaceInt("pgreats", pgreats)
	extra.ReplaceInt("greats", greats)
	if gauge := req.Body.ChildBytes("ghost_gauge"); gauge != nil {
		extra.ReplaceBytes("ghost_gauge", gauge)
	}
	update := usecase.ScoreUpdate{
		SongID:    songID,
		Chart:     chart,
		Points:    pgreats*2 + greats,
		ClearFlag: 1 << status,
		Grade:     -1,
		Combo:     -1,
		MissCount: missCount,
		FullCombo: status == ClearStatusFullCombo,
		Ghost:     req.Body.ChildBytes("ghost"),
		Extra:     extra,
	}
	if _, err := t.Score.UpdateScore(ctx, user, req.Machine.PCBID, t.Clock.Now(), t.rules(), update); err != nil {
		return nil, err
	}

	root := arcanet.Void("IIDX27music")
	root.SetAttribute("mid", strconv.FormatInt(songID, 10))
	root.SetAttribute("clid", strconv.Itoa(chart))
	root.SetAttribute("rankside", req.Body.Attribute("rankside"))

	// chart-wide clear and full-combo rates, per mille
	all, err := t.Score.GetAllScores(ctx, Series, VersionHeroicVerse, songID, chart)
	if err != nil {
		return nil, err
	}
	var clears, fcs int
	for _, s := range all {
		best := statusFromFlags(s.Data.GetInt("clear_flag", 0))
		if best >= ClearStatusEasyClear {
			clears++
		}
		if best == ClearStatusFullCombo {
			fcs++
		}
	}
	if len(all) > 0 {
		root.SetAttribute("crate", strconv.Itoa(1000*clears/len(all)))
		root.SetAttribute("frate", strconv.Itoa(1000*fcs/len(all)))
	} else {
		root.SetAttribute("crate", "0")
		root.SetAttribute("frate", "0")
	}

	if user != domain.UserNone {
		ranklist := arcanet.Void("ranklist")
		root.AddChild(ranklist)
		ranklist.SetAttribute("total_user_num", strconv.Itoa(len(all)))
	}
	return root, nil
}

func (t *HeroicVerse) handlePcCommon(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	root := arcanet.Void("IIDX27pc")
	root.SetAttribute("expire", "1")

	root.AddChild(arcanet.U16Array("monthly_mranking", make([]int64, 20)))
	root.AddChild(arcanet.U16Array("total_mranking", make([]int64, 20)))
	root.AddChild(arcanet.S32Array("kac_mid", make([]int64, 30)))
	root.AddChild(arcanet.S32Array("kac_clid", make([]int64, 30)))

	ir := arcanet.Void("ir")
	root.AddChild(ir)
	ir.SetAttribute("beat", "2")

	boss := arcanet.Void("boss")
	root.AddChild(boss)
	boss.SetAttribute("phase", "1")

	root.AddChild(arcanet.Void("vip_pass_black"))

	deller := arcanet.Void("deller_bonus")
	root.AddChild(deller)
	deller.SetAttribute("open", "1")

	newsong := arcanet.Void("newsong_another")
	root.AddChild(newsong)
	newsong.SetAttribute("open", "1")

	event1 := arcanet.Void("event1_phase")
	root.AddChild(event1)
	event1.SetAttribute("phase", strconv.FormatInt(t.GameConfig.GetInt("event_phase", 1), 10))
	return root, nil
}

func (t *HeroicVerse) handlePcGet(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	refid := req.Body.Attribute("rid")
	root, err := t.Profile.GetProfileByRefID(ctx, t, refid)
	if errors.Is(err, domain.ErrNoProfile) {
		return arcanet.Void("IIDX27pc"), nil
	}
	if err != nil {
		return nil, err
	}
	if root.Name == "root" {
		return arcanet.Void("IIDX27pc"), nil
	}
	return root, nil
}

func (t *HeroicVerse) handlePcReg(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	refid := req.Body.Attribute("rid")
	name := req.Body.Attribute("name")
	pid := req.Body.AttributeInt("pid", 0)
	profile, err := t.Profile.NewProfileByRefID(ctx, t, refid, name, pid)
	if err != nil {
		return nil, err
	}

	root := arcanet.Void("IIDX27pc")
	root.SetAttribute("id", strconv.FormatInt(profile.ExtID, 10))
	root.SetAttribute("id_str", FormatExtID(profile.ExtID))
	return root, nil
}

// oldget tells the cabinet whether anything is waiting to be inherited
// from the previous entry.
func (t *HeroicVerse) handlePcOldget(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	refid := req.Body.Attribute("rid")
	root := arcanet.Void("IIDX27pc")
	root.SetAttribute("status", "1")

	// only report old data when a predecessor is wired to inherit it
	old := t.Predecessor()
	if old == nil {
		return root, nil
	}
	user, err := t.Profile.UserFromRefID(ctx, Series, VersionHeroicVerse, refid)
	if errors.Is(err, domain.ErrNotFound) {
		return root, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := t.Profile.GetProfileByUser(ctx, old.Game(), old.Version(), user); err == nil {
		root.SetAttribute("status", "0")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return root, nil
}

func (t *HeroicVerse) handlePcSave(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	extid := req.Body.AttributeInt("iidxid", 0)
	if _, err := t.Profile.PutProfileByExtID(ctx, t, extid, req.Body); err != nil {
		if errors.Is(err, domain.ErrNoProfile) {
			return arcanet.Void("IIDX27pc"), nil
		}
		return nil, err
	}
	user, err := t.Profile.UserFromExtID(ctx, Series, VersionHeroicVerse, extid)
	if err != nil {
		return nil, err
	}
	if _, err := t.Stats.Bump(ctx, user, Series); err != nil {
		return nil, err
	}
	return arcanet.Void("IIDX27pc"), nil
}

func (t *HeroicVerse) handlePcVisit(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	root := arcanet.Void("IIDX27pc")
	for _, attr := range []string{"anum", "snum", "pnum", "aflg", "sflg", "pflg"} {
		root.SetAttribute(attr, "0")
	}
	return root, nil
}

func (t *HeroicVerse) handlePcDelete(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	return arcanet.Void("IIDX27pc"), nil
}

func (t *HeroicVerse) FormatProfile(ctx context.Context, profile *arcanet.Profile) (*arcanet.Node, error) {
	user, err := t.Profile.UserFromExtID(ctx, Series, VersionHeroicVerse, profile.ExtID)
	if err != nil {
		return nil, err
	}
	stats, err := t.Stats.Get(ctx, user, Series)
	if err != nil {
		return nil, err
	}

	root := arcanet.Void("IIDX27pc")
	pcdata := arcanet.Void("pcdata")
	root.AddChild(pcdata)
	pcdata.SetAttribute("id", strconv.FormatInt(profile.ExtID, 10))
	pcdata.SetAttribute("idstr", FormatExtID(profile.ExtID))
	pcdata.SetAttribute("name", profile.GetStr("name", ""))
	pcdata.SetAttribute("pid", strconv.FormatInt(profile.GetInt("pid", 0), 10))
	pcdata.SetAttribute("spnum", strconv.FormatInt(profile.GetInt("single_plays", 0), 10))
	pcdata.SetAttribute("dpnum", strconv.FormatInt(profile.GetInt("double_plays", 0), 10))
	pcdata.SetAttribute("mode", strconv.FormatInt(profile.GetInt("mode", 0), 10))
	pcdata.SetAttribute("pmode", strconv.FormatInt(profile.GetInt("pmode", 0), 10))
	pcdata.SetAttribute("sgrade", strconv.FormatInt(profile.GetInt("sgrade", -1), 10))
	pcdata.SetAttribute("dgrade", strconv.FormatInt(profile.GetInt("dgrade", -1), 10))

	qprodata := profile.GetMapping("qpro")
	qpro := arcanet.Void("qprodata")
	root.AddChild(qpro)
	for _, part := range []string{"head", "hair", "face", "body", "hand"} {
		qpro.AddChild(arcanet.U32(part, uint32(qprodata.GetInt(part, 0))))
	}

	deller := arcanet.Void("deller")
	root.AddChild(deller)
	deller.SetAttribute("deller", strconv.FormatInt(profile.GetInt("deller", 0), 10))

	playinfo := arcanet.Void("playinfo")
	root.AddChild(playinfo)
	playinfo.SetAttribute("total_play", strconv.Itoa(stats.TotalPlays))
	playinfo.SetAttribute("today_play", strconv.Itoa(stats.TodayPlays))
	playinfo.SetAttribute("consecutive_days", strconv.Itoa(stats.ConsecutiveDays))

	if err := t.formatRivals(ctx, user, root); err != nil {
		return nil, err
	}
	return root, nil
}

func (t *HeroicVerse) formatRivals(ctx context.Context, user domain.UserID, root *arcanet.Node) error {
	links, err := t.Rivals.GetRivals(ctx, user, Series, VersionHeroicVerse)
	if err != nil {
		return err
	}
	rlist := arcanet.Void("rlist")
	root.AddChild(rlist)

	count := 0
	for _, link := range links {
		if count >= rivalCap {
			break
		}
		card, err := t.Rivals.RivalCard(ctx, Series, VersionHeroicVerse, link.OtherUserID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		rival := arcanet.Void("rival")
		rlist.AddChild(rival)
		rival.SetAttribute("spdp", strconv.FormatInt(link.Data.GetInt("spdp", 1), 10))
		rival.SetAttribute("id", strconv.FormatInt(card.ExtID, 10))
		rival.SetAttribute("id_str", FormatExtID(card.ExtID))
		rival.AddChild(arcanet.String("name", card.Name))
		count++
	}
	rlist.SetAttribute("count", strconv.Itoa(count))
	return nil
}

func (t *HeroicVerse) UnformatProfile(ctx context.Context, user domain.UserID, request *arcanet.Node, old *arcanet.Profile) (*arcanet.Profile, error) {
	if old == nil {
		return nil, nil
	}
	profile := old.CloneProfile()

	if name := request.Attribute("name"); name != "" {
		profile.ReplaceStr("name", name)
	}
	for _, key := range []string{"mode", "pmode", "pid", "sgrade", "dgrade", "deller"} {
		if raw := request.Attribute(key); raw != "" {
			if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
				profile.ReplaceInt(key, v)
			}
		}
	}
	switch request.AttributeInt("cltype", StyleSingle) {
	case StyleSingle:
		profile.IncrementInt("single_plays")
	case StyleDouble:
		profile.IncrementInt("double_plays")
	}

	if qpro := request.Child("qprodata"); qpro.Exists() {
		qprodata := profile.GetMapping("qpro")
		for _, part := range []string{"head", "hair", "face", "body", "hand"} {
			if qpro.Child(part).Exists() {
				qprodata.ReplaceInt(part, qpro.ChildInt(part))
			}
		}
		profile.ReplaceMapping("qpro", qprodata)
	}
	return profile, nil
}

// pad right-pads an address tuple to its wire length.
func pad(values []int64, length int) []int64 {
	if len(values) >= length {
		return values[:length]
	}
	out := make([]int64, length)
	copy(out, values)
	return out
}
