// Package jubeat implements the jubeat title chain: ripples, knit and
// clan share a handler base and inherit profiles version to version.
package jubeat

import (
	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
)

const Series = "jubeat"

// Chart difficulties.
const (
	ChartBasic    = 0
	ChartAdvanced = 1
	ChartExtreme  = 2
)

// Clear flag bits as the game reports them on the score attribute.
const (
	FlagPlayed          = 0x1
	FlagCleared         = 0x2
	FlagFullCombo       = 0x4
	FlagExcellent       = 0x8
	FlagNearlyFullCombo = 0x10
	FlagNearlyExcellent = 0x20

	flagKnownMask = FlagPlayed | FlagCleared | FlagFullCombo | FlagExcellent |
		FlagNearlyFullCombo | FlagNearlyExcellent
)

// Internal version numbers along the chain.
const (
	VersionRipples = 2
	VersionKnit    = 4
	VersionClan    = 12
)

// Clan datecodes start here; older L44 models belong to earlier
// entries this backend does not serve.
const clanDatecode = 2017062600

// RegisterTitles binds the jubeat factories to their game codes.
func RegisterTitles(registry *core.Registry) {
	registry.Register("J44", Series, core.FactoryFunc(func(deps core.Deps, config *arcanet.Mapping, model arcanet.Model, parentModel *arcanet.Model) core.Title {
		return NewRipples(deps, config, model)
	}))
	registry.Register("K44", Series, core.FactoryFunc(func(deps core.Deps, config *arcanet.Mapping, model arcanet.Model, parentModel *arcanet.Model) core.Title {
		return NewKnit(deps, config, model)
	}))
	registry.Register("L44", Series, core.FactoryFunc(func(deps core.Deps, config *arcanet.Mapping, model arcanet.Model, parentModel *arcanet.Model) core.Title {
		if model.Version < clanDatecode {
			return nil
		}
		return NewClan(deps, config, model)
	}))
}
