package domain

import (
	"time"

	"github.com/yumesaki/arcanet"
)

// Score is the merged high-score record for one
// (user, game, music version, song, chart) key. Points and the
// per-title data fields only ever move monotonically.
type Score struct {
	UserID       UserID
	Game         string
	MusicVersion int
	SongID       int64
	Chart        int
	Points       int64
	Data         *arcanet.Mapping
	Timestamp    time.Time // first achieved
	UpdatedAt    time.Time
	Location     string // PCBID of the cabinet that last raised it
	Plays        int
}

// Attempt is the append-only record of a single play, carrying the
// as-reported values rather than the merged ones.
type Attempt struct {
	UserID       UserID
	Game         string
	MusicVersion int
	SongID       int64
	Chart        int
	Points       int64
	Data         *arcanet.Mapping
	Timestamp    time.Time
	Location     string
	Raised       bool
}

// Song is one static music catalog entry.
type Song struct {
	Game    string
	Version int
	ID      int64
	Chart   int
	Title   string
	Artist  string
	Genre   string
	Data    *arcanet.Mapping
}
