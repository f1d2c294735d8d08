package models

import (
	"time"
)

type User struct {
	ID    int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	CDate time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// Card binds a RefID to a user. Many RefIDs may point at one user over
// a card's lifetime.
type Card struct {
	RefID  string    `json:"refid" gorm:"primaryKey;type:text"`
	UserID int64     `json:"userID" gorm:"index;not null"`
	User   User      `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	CDate  time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// ExtID is the player-facing numeric id, one per (user, game series).
type ExtID struct {
	Game   string `json:"game" gorm:"primaryKey;type:text;uniqueIndex:uniq_extid_game"`
	UserID int64  `json:"userID" gorm:"primaryKey"`
	User   User   `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	ExtID  int64  `json:"extid" gorm:"uniqueIndex:uniq_extid_game;not null"`
}

type Profile struct {
	UserID  int64     `json:"userID" gorm:"primaryKey"`
	User    User      `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	Game    string    `json:"game" gorm:"primaryKey;type:text"`
	Version int       `json:"version" gorm:"primaryKey"`
	RefID   string    `json:"refid" gorm:"type:text"`
	Data    []byte    `json:"data" gorm:"type:bytea"`
	MDate   time.Time `json:"mdate" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}
