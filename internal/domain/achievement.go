package domain

import "github.com/yumesaki/arcanet"

// Achievement is the generic container for owned items, event progress,
// course progress and similar per-user records. (scope, id, type) is
// unique per user.
type Achievement struct {
	UserID  UserID
	Game    string
	Version int
	ID      int64
	Type    string
	Data    *arcanet.Mapping
}

// Link is a directed relationship to another user, e.g. a rival. Count
// caps are enforced by each title's handlers.
type Link struct {
	UserID      UserID
	OtherUserID UserID
	Game        string
	Version     int
	Type        string
	Data        *arcanet.Mapping
}
