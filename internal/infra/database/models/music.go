package models

import (
	"time"
)

type Score struct {
	UserID       int64     `json:"userID" gorm:"primaryKey"`
	User         User      `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	Game         string    `json:"game" gorm:"primaryKey;type:text"`
	MusicVersion int       `json:"musicVersion" gorm:"primaryKey"`
	SongID       int64     `json:"songID" gorm:"primaryKey"`
	Chart        int       `json:"chart" gorm:"primaryKey"`
	Points       int64     `json:"points" gorm:"not null"`
	Data         []byte    `json:"data" gorm:"type:bytea"`
	Location     string    `json:"location" gorm:"type:text"`
	Plays        int       `json:"plays" gorm:"not null;default:0"`
	Timestamp    time.Time `json:"timestamp" gorm:"type:timestamp with time zone;not null"`
	MDate        time.Time `json:"mdate" gorm:"type:timestamp with time zone;not null"`
}

type Attempt struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       *int64    `json:"userID" gorm:"index"`
	Game         string    `json:"game" gorm:"index:idx_attempt_key;type:text"`
	MusicVersion int       `json:"musicVersion" gorm:"index:idx_attempt_key"`
	SongID       int64     `json:"songID" gorm:"index:idx_attempt_key"`
	Chart        int       `json:"chart" gorm:"index:idx_attempt_key"`
	Points       int64     `json:"points" gorm:"not null"`
	Data         []byte    `json:"data" gorm:"type:bytea"`
	Location     string    `json:"location" gorm:"type:text"`
	Raised       bool      `json:"raised" gorm:"not null;default:false"`
	Timestamp    time.Time `json:"timestamp" gorm:"index;type:timestamp with time zone;not null"`
}

type Song struct {
	Game    string `json:"game" gorm:"primaryKey;type:text"`
	Version int    `json:"version" gorm:"primaryKey"`
	SongID  int64  `json:"songID" gorm:"primaryKey"`
	Chart   int    `json:"chart" gorm:"primaryKey"`
	Title   string `json:"title" gorm:"type:text"`
	Artist  string `json:"artist" gorm:"type:text"`
	Genre   string `json:"genre" gorm:"type:text"`
	Data    []byte `json:"data" gorm:"type:bytea"`
}
