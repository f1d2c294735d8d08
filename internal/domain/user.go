package domain

import "time"

// UserID is the opaque stable identifier of a registered player.
type UserID int64

// UserNone marks the absence of a user, e.g. anonymous attempts.
const UserNone UserID = 0

// PlayStatistics holds per-user aggregated play counters, updated once
// per play session.
type PlayStatistics struct {
	UserID          UserID
	Game            string
	TotalPlays      int
	TodayPlays      int
	TotalDays       int
	ConsecutiveDays int
	LastPlayedAt    time.Time
}
