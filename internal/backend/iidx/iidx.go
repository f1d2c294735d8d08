// Package iidx implements the beatmania IIDX backend, currently the
// HEROIC VERSE entry.
package iidx

import (
	"fmt"

	"github.com/yumesaki/arcanet"
	"github.com/yumesaki/arcanet/internal/backend/core"
)

const Series = "iidx"

// Internal version numbers.
const (
	VersionRootage     = 26
	VersionHeroicVerse = 27
)

// Chart slots as the game numbers them on the clid attribute.
const (
	ChartSPNormal      = 0
	ChartSPHyper       = 1
	ChartSPAnother     = 2
	ChartDPNormal      = 3
	ChartDPHyper       = 4
	ChartDPAnother     = 5
	ChartSPBeginner    = 6
	ChartSPLeggendaria = 7
	ChartDPBeginner    = 8
	ChartDPLeggendaria = 9
)

// Clear statuses, worst to best.
const (
	ClearStatusNoPlay      = 0
	ClearStatusFailed      = 1
	ClearStatusAssistClear = 2
	ClearStatusEasyClear   = 3
	ClearStatusClear       = 4
	ClearStatusHardClear   = 5
	ClearStatusExHardClear = 6
	ClearStatusFullCombo   = 7
)

// Play styles.
const (
	StyleSingle = 0
	StyleDouble = 1
)

const lobbyCapacity = 4

const rivalCap = 5

// RegisterTitles binds the IIDX factories to their game code.
func RegisterTitles(registry *core.Registry) {
	registry.Register("LDJ", Series, core.FactoryFunc(func(deps core.Deps, config *arcanet.Mapping, model arcanet.Model, parentModel *arcanet.Model) core.Title {
		return NewHeroicVerse(deps, config, model)
	}))
}

// FormatExtID renders the numeric player id the way the cabinet prints
// it on screen, four digits, a dash, four digits.
func FormatExtID(extid int64) string {
	return fmt.Sprintf("%04d-%04d", extid/10000, extid%10000)
}

// singleChart reports whether a chart slot belongs to single play.
func singleChart(chart int) bool {
	switch chart {
	case ChartSPNormal, ChartSPHyper, ChartSPAnother, ChartSPBeginner, ChartSPLeggendaria:
		return true
	}
	return false
}
