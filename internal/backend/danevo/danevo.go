// Package danevo implements the DanceEvolution backend. The game keeps
// its player state in opaque comma-delimited blobs, so the profile is a
// passthrough store rather than a structured mapping.
package danevo

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
	"github.com/yumesaki/arcanet/internal/domain"
	"github.com/yumesaki/arcanet/internal/usecase"
)

const Series = "danevo"

const Version = 1

// noData is what the cabinet expects for a profile tag it asked for but
// the server never stored.
const noData = "<NODATA>"

// RegisterTitles binds the DanceEvolution factory to its game code.
// There is only one version.
func RegisterTitles(registry *core.Registry) {
	registry.Register("KDM", Series, core.FactoryFunc(func(deps core.Deps, config *arcanet.Mapping, model arcanet.Model, parentModel *arcanet.Model) core.Title {
		return NewDanceEvolution(deps, config, model)
	}))
}

type DanceEvolution struct {
	*core.Base
}

func NewDanceEvolution(deps core.Deps, config *arcanet.Mapping, model arcanet.Model) *DanceEvolution {
	t := &DanceEvolution{Base: core.NewBase(deps, config, Series, Version, model)}
	t.Register("tax", "get_phase", t.handleTaxGetPhase)
	t.Register("system", "convcardnumber", t.handleConvCardNumber)
	t.Register("system", "getmaster", t.handleGetMaster)
	t.Register("playerdata", "usergamedata_recv", t.handleUserGameDataRecv)
	t.Register("playerdata", "usergamedata_send", t.handleUserGameDataSend)
	return t
}

func (t *DanceEvolution) Predecessor() usecase.ProfileFormatter { return nil }

func (t *DanceEvolution) handleTaxGetPhase(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	tax := arcanet.Void("tax")
	tax.AddChild(arcanet.S32("phase", 0))
	return tax, nil
}

// cardAlphabet is the character set printed on amusement cards.
const cardAlphabet = "0123456789ABCDEFGHJKLMNPRSTUWXYZ"

// ConvertCardID derives the printable number shown for a raw card id.
// The mapping is keyed-hash based rather than the manufacturer cipher,
// so numbers are stable per card but do not match numbers printed on
// physical cards.
func ConvertCardID(cardID string) string {
	sum := xxh3.HashString128(strings.ToUpper(cardID))
	out := make([]byte, 16)
	for i := range out {
		var idx uint64
		if i < 12 {
			idx = (sum.Lo >> (uint(i) * 5)) & 31
		} else {
			idx = (sum.Hi >> (uint(i-12) * 5)) & 31
		}
		out[i] = cardAlphabet[idx]
	}
	return string(out)
}

func (t *DanceEvolution) handleConvCardNumber(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	cardID := req.Body.ChildStr("data/card_id")

	system := arcanet.Void("system")
	data := arcanet.Void("data")
	system.AddChild(data)
	system.AddChild(arcanet.S32("result", 0))
	data.AddChild(arcanet.String("card_number", ConvertCardID(cardID)))
	return system, nil
}

// getmaster serves server-pushed message blobs. Only the system message
// channel is answered; every other datatype reports failure and the
// cabinet falls back to its on-disk data.
func (t *DanceEvolution) handleGetMaster(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	system := arcanet.Void("system")

	data := req.Body.Child("data")
	if !data.Exists() {
		system.AddChild(arcanet.S32("result", 0))
		return system, nil
	}
	if data.ChildStr("datatype") != "S_SRVMSG" {
		system.AddChild(arcanet.S32("result", 0))
		return system, nil
	}
	system.AddChild(arcanet.String("strdata1", ""))
	system.AddChild(arcanet.String("strdata2", ""))
	system.AddChild(arcanet.U64("updatedate", uint64(t.Clock.Now().UnixMilli())))
	system.AddChild(arcanet.S32("result", 1))
	return system, nil
}

// recvTags parses the recv_csv request field. The cabinet sends pairs
// of tag,column-count; only the tags matter here.
func recvTags(csv string) []string {
	fields := strings.Split(csv, ",")
	var tags []string
	for i := 0; i < len(fields); i += 2 {
		tags = append(tags, fields[i])
	}
	return tags
}

func (t *DanceEvolution) handleUserGameDataRecv(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	playerdata := arcanet.Void("playerdata")
	player := arcanet.Void("player")
	playerdata.AddChild(player)

	refid := req.Body.ChildStr("data/refid")
	user, err := t.Profile.UserFromRefID(ctx, Series, Version, refid)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err == nil {
		var blobs *arcanet.Mapping
		profile, err := t.Profile.GetProfileByUser(ctx, Series, Version, user)
		if err == nil {
			blobs = profile.GetMapping("usergamedata")
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		record := arcanet.Void("record")
		player.AddChild(record)
		records := 0
		for _, tag := range recvTags(req.Body.ChildStr("data/recv_csv")) {
			record.AddChild(blobNode(blobs, tag))
			records++
		}
		player.AddChild(arcanet.U32("record_num", uint32(records)))
	}

	playerdata.AddChild(arcanet.S32("result", 0))
	return playerdata, nil
}

// blobNode renders one stored tag as the base64 d/bin1 pair, or the
// no-data marker when the tag was never saved.
func blobNode(blobs *arcanet.Mapping, tag string) *arcanet.Node {
	if blobs == nil || !blobs.Has(tag) {
		return arcanet.String("d", noData)
	}
	entry := blobs.GetMapping(tag)
	d := arcanet.String("d", base64.StdEncoding.EncodeToString(entry.GetBytes("strdata", nil)))
	d.AddChild(arcanet.String("bin1", base64.StdEncoding.EncodeToString(entry.GetBytes("bindata", nil))))
	return d
}

func (t *DanceEvolution) handleUserGameDataSend(ctx context.Context, req *core.Request) (*arcanet.Node, error) {
	playerdata := arcanet.Void("playerdata")

	refid := req.Body.ChildStr("data/refid")
	if _, err := t.Profile.PutProfileByRefID(ctx, t, refid, req.Body); err != nil && !errors.Is(err, domain.ErrNoProfile) {
		return nil, err
	}

	playerdata.AddChild(arcanet.S32("result", 0))
	return playerdata, nil
}

// FormatProfile lists every stored tag. The game itself fetches blobs
// through usergamedata_recv with an explicit tag list; this projection
// exists for the shared profile surface.
func (t *DanceEvolution) FormatProfile(ctx context.Context, profile *arcanet.Profile) (*arcanet.Node, error) {
	playerdata := arcanet.Void("playerdata")
	record := arcanet.Void("record")
	playerdata.AddChild(record)

	blobs := profile.GetMapping("usergamedata")
	tags := blobs.Keys()
	sort.Strings(tags)
	for _, tag := range tags {
		record.AddChild(blobNode(blobs, tag))
	}
	return playerdata, nil
}

// UnformatProfile stores each reported record verbatim. The strdata
// payload arrives base64-wrapped as comma-delimited fields where the
// second field names the tag; everything after it is kept as-is.
func (t *DanceEvolution) UnformatProfile(ctx context.Context, user domain.UserID, request *arcanet.Node, old *arcanet.Profile) (*arcanet.Profile, error) {
	profile := arcanet.NewProfile(Series, Version, "", 0)
	if old != nil {
		profile = old.CloneProfile()
	}
	blobs := profile.GetMapping("usergamedata")

	records := request.Child("data/record")
	for _, rec := range records.Children {
		if rec.Name != "d" {
			continue
		}
		strdata, err := base64.StdEncoding.DecodeString(rec.StringValue())
		if err != nil {
			return nil, fmt.Errorf("decoding record: %w", arcanet.ErrMalformedNode)
		}
		bindata, err := base64.StdEncoding.DecodeString(rec.ChildStr("bin1"))
		if err != nil {
			return nil, fmt.Errorf("decoding record binary: %w", arcanet.ErrMalformedNode)
		}
		fields := bytes.SplitN(strdata, []byte(","), 3)
		if len(fields) < 3 {
			return nil, fmt.Errorf("short record: %w", arcanet.ErrMalformedNode)
		}

		entry := arcanet.NewMapping()
		entry.ReplaceBytes("strdata", fields[2])
		entry.ReplaceBytes("bindata", bindata)
		blobs.ReplaceMapping(string(fields[1]), entry)
	}

	profile.ReplaceMapping("usergamedata", blobs)
	profile.ReplaceInt("write_time", t.Clock.Now().Unix())
	return profile, nil
}
