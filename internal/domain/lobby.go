package domain

import "time"

// Lobby is a transient matching room owned by its host. A user appears
// in at most one lobby per (game, version).
type Lobby struct {
	ID            string
	Game          string
	Version       int
	HostUserID    UserID
	GameAddress   []int64 // ga, four octets
	GamePort      int64   // gp
	LocalAddress  []int64 // la, four octets
	MatchingClass int64
	Capacity      int
	CreateTime    time.Time
	Participants  []UserID
}

// HasParticipant reports membership.
func (l *Lobby) HasParticipant(user UserID) bool {
	for _, p := range l.Participants {
		if p == user {
			return true
		}
	}
	return false
}

// AddressMatches compares the host address tuple exactly.
func (l *Lobby) AddressMatches(ga []int64, gp int64, la []int64) bool {
	return int64SlicesEqual(l.GameAddress, ga) &&
		l.GamePort == gp &&
		int64SlicesEqual(l.LocalAddress, la)
}

func int64SlicesEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// PlaySessionInfo mirrors the client-reported address and matching
// fields for one player, independent of any lobby.
type PlaySessionInfo struct {
	UserID        UserID
	Game          string
	Version       int
	GameAddress   []int64
	GamePort      int64
	LocalAddress  []int64
	MatchingClass int64
	PlayStyle     int64
	PCBID         string
}
