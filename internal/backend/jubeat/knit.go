package jubeat

import (
	"context"
	"errors"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
	"github.com/yumesaki/arcanet/internal/domain"
)

// Knit follows ripples and inherits its profiles.
type Knit struct {
	*base
}

func NewKnit(deps core.Deps, config *arcanet.Mapping, model arcanet.Model) *Knit {
	t := &Knit{base: newBase(deps, config, VersionKnit, model, NewRipples(deps, config, model))}
	t.registerCommon(t)
	t.Register("demodata", "get_news", t.handleDemodataGetNews)
	t.Register("demodata", "get_hitchart", t.handleDemodataGetHitchart)
	t.Register("gametop", "get_pdata", func(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
		return t.handleGametopGet(ctx, t, req)
	})
	t.Register("gametop", "get_mdata", t.handleGametopGetMdata)
	t.Register("gameend", "log", t.handleGameendLog)
	t.Register("gameend", "regist", t.handleGameendRegist)
	return t
}

func (t *Knit) handleDemodataGetNews(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	demodata := arcanet.Void("demodata")
	data := arcanet.Void("data")
	demodata.AddChild(data)
	officialnews := arcanet.Void("officialnews")
	data.AddChild(officialnews)
	officialnews.SetAttribute("count", "0")
	return demodata, nil
}

func (t *Knit) handleDemodataGetHitchart(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	demodata := arcanet.Void("demodata")
	data := arcanet.Void("data")
	demodata.AddChild(data)

	// both weekly charts are served empty
	for _, name := range []string{"hitchart_lic", "hitchart_org"} {
		chart := arcanet.Void(name)
		data.AddChild(chart)
		chart.SetAttribute("count", "0")
	}
	data.AddChild(arcanet.String("update", t.Clock.Now().Format("2006-01-02")))
	return demodata, nil
}

// get_mdata serves the caller's stored scores looked up by the in-game
// player id.
func (t *Knit) handleGametopGetMdata(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
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

func (t *Knit) handleGameendLog(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	return arcanet.Void("gameend"), nil
}

func (t *Knit) handleGameendRegist(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	refid := req.Body.ChildStr("data/player/pass/refid")
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

	gameend := arcanet.Void("gameend")
	data := arcanet.Void("data")
	gameend.AddChild(data)
	player := arcanet.Void("player")
	data.AddChild(player)
	player.AddChild(arcanet.U32("session_id", 1))
	return gameend, nil
}

func (t *Knit) FormatProfile(ctx context.Context, profile *arcanet.Profile) (*arcanet.Node, error) {
	user, err := t.userFromProfile(ctx, profile)
	if err != nil {
		return nil, err
	}

	root := arcanet.Void("gametop")
	data := arcanet.Void("data")
	root.AddChild(data)
	player := t.formatPlayer(profile)
	data.AddChild(player)

	item := arcanet.Void("item")
	player.AddChild(item)
	item.AddChild(arcanet.U32Array("marker_list", []int64{int64(uint32(profile.GetInt("marker_list", 0))), 0}))
	item.AddChild(arcanet.U32Array("theme_list", []int64{int64(uint32(profile.GetInt("theme_list", 0))), 0}))

	scores, err := t.Score.GetScores(ctx, user, Series, t.musicVersion)
	if err != nil {
		return nil, err
	}
	player.AddChild(t.formatScores(scores))
	return root, nil
}

func (t *Knit) UnformatProfile(ctx context.Context, user domain.UserID, request *arcanet.Node, old *arcanet.Profile) (*arcanet.Profile, error) {
	if old == nil {
		return nil, nil
	}
	profile := old.CloneProfile()
	player := request.Child("data/player")
	t.unformatPlayer(profile, player)

	if player.Child("marker_list").Exists() {
		profile.ReplaceInt("marker_list", player.ChildInt("marker_list"))
	}
	if player.Child("theme_list").Exists() {
		profile.ReplaceInt("theme_list", player.ChildInt("theme_list"))
	}
	return profile, nil
}
