package domain

import (
	"time"

	"github.com/yumesaki/arcanet"
)

// Schedule cadences. Boundaries are computed on the cabinets' local
// calendar (JST).
const (
	CadenceDaily  = "daily"
	CadenceWeekly = "weekly"
)

// TimeSensitiveSetting is the active record for one recurring per-title
// job, bounded strictly by EndTime. At most one record is active per
// (game, version, name) at any instant.
type TimeSensitiveSetting struct {
	Game      string
	Version   int
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Data      *arcanet.Mapping
}

// Active reports whether the record covers the given instant.
func (s *TimeSensitiveSetting) Active(now time.Time) bool {
	return !now.Before(s.StartTime) && now.Before(s.EndTime)
}
