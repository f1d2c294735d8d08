// Package sdvx implements the SOUND VOLTEX backend, currently the
// VIVID WAVE entry.
package sdvx

import (
	"fmt"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
)

const Series = "sdvx"

const VersionVividWave = 5

// Limited-song states.
const (
	LimitedLocked     = 1
	LimitedUnlockable = 2
	LimitedUnlocked   = 3
)

// Catalog item types on the item unlock lists.
const (
	CatalogTypeSong       = 0
	CatalogTypeAppealCard = 1
	CatalogTypeCrew       = 4
)

// Clear types, worst to best.
const (
	ClearTypeNoPlay               = 0
	ClearTypeFailed               = 1
	ClearTypeClear                = 2
	ClearTypeHardClear            = 3
	ClearTypeUltimateChain        = 4
	ClearTypePerfectUltimateChain = 5
)

// RegisterTitles binds the SOUND VOLTEX factories to their game code.
func RegisterTitles(registry *core.Registry) {
	registry.Register("KFC", Series, core.FactoryFunc(func(deps core.Deps, config *arcanet.Mapping, model arcanet.Model, parentModel *arcanet.Model) core.Title {
		return NewVividWave(deps, config, model)
	}))
}

// FormatExtID renders the printable SDVX id.
func FormatExtID(extid int64) string {
	return fmt.Sprintf("SV-%04d-%04d", extid/10000, extid%10000)
}
