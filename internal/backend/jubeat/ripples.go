package jubeat

import (
	"context"
	"errors"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
	"github.com/yumesaki/arcanet/internal/domain"
)

// Ripples is the first entry this backend serves. It inherits nothing.
type Ripples struct {
	*base
}

func NewRipples(deps core.Deps, config *arcanet.Mapping, model arcanet.Model) *Ripples {
	t := &Ripples{base: newBase(deps, config, VersionRipples, model, nil)}
	t.registerCommon(t)
	t.Register("gameend", "regist", t.handleGameendRegist)
	return t
}

func (t *Ripples) handleGameendRegist(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
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

func (t *Ripples) FormatProfile(ctx context.Context, profile *arcanet.Profile) (*arcanet.Node, error) {
	user, err := t.userFromProfile(ctx, profile)
	if err != nil {
		return nil, err
	}
	achievements, err := t.Achievements.GetAll(ctx, user, Series, t.Version())
	if err != nil {
		return nil, err
	}
	var secrets, titles []int64
	for _, a := range achievements {
		switch a.Type {
		case "secret":
			secrets = append(secrets, a.ID)
		case "title":
			titles = append(titles, a.ID)
		}
	}

	root := arcanet.Void("gametop")
	data := arcanet.Void("data")
	root.AddChild(data)
	player := t.formatPlayer(profile)
	data.AddChild(player)

	item := arcanet.Void("item")
	player.AddChild(item)
	item.AddChild(arcanet.U32Array("secret_list", core.BitmapFromOwnedIDs(secrets, 2)))
	item.AddChild(arcanet.U32("marker_list", uint32(profile.GetInt("marker_list", 0))))
	item.AddChild(arcanet.U8("theme_list", uint8(profile.GetInt("theme_list", 0))))
	item.AddChild(arcanet.U32Array("title_list", core.BitmapFromOwnedIDs(titles, 20)))

	scores, err := t.Score.GetScores(ctx, user, Series, t.musicVersion)
	if err != nil {
		return nil, err
	}
	player.AddChild(t.formatScores(scores))
	return root, nil
}

func (t *Ripples) UnformatProfile(ctx context.Context, user domain.UserID, request *arcanet.Node, old *arcanet.Profile) (*arcanet.Profile, error) {
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

	for _, id := range core.OwnedIDsFromBitmap(player.ChildIntArray("item/secret_list")) {
		if err := t.Achievements.Grant(ctx, user, Series, t.Version(), id, "secret", nil); err != nil {
			return nil, err
		}
	}
	for _, id := range core.OwnedIDsFromBitmap(player.ChildIntArray("item/title_list")) {
		if err := t.Achievements.Grant(ctx, user, Series, t.Version(), id, "title", nil); err != nil {
			return nil, err
		}
	}
	return profile, nil
}
