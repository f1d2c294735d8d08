package models

import (
	"time"
)

type Achievement struct {
	UserID        int64  `json:"userID" gorm:"primaryKey"`
	User          User   `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	Game          string `json:"game" gorm:"primaryKey;type:text"`
	Version       int    `json:"version" gorm:"primaryKey"`
	AchievementID int64  `json:"achievementID" gorm:"primaryKey"`
	Type          string `json:"type" gorm:"primaryKey;type:text"`
	Data          []byte `json:"data" gorm:"type:bytea"`
}

type Link struct {
	UserID      int64  `json:"userID" gorm:"primaryKey"`
	User        User   `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	Game        string `json:"game" gorm:"primaryKey;type:text"`
	Version     int    `json:"version" gorm:"primaryKey"`
	Type        string `json:"type" gorm:"primaryKey;type:text"`
	OtherUserID int64  `json:"otherUserID" gorm:"primaryKey"`
	Data        []byte `json:"data" gorm:"type:bytea"`
}

type PlayStatistics struct {
	UserID          int64     `json:"userID" gorm:"primaryKey"`
	User            User      `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	Game            string    `json:"game" gorm:"primaryKey;type:text"`
	TotalPlays      int       `json:"totalPlays" gorm:"not null;default:0"`
	TodayPlays      int       `json:"todayPlays" gorm:"not null;default:0"`
	TotalDays       int       `json:"totalDays" gorm:"not null;default:0"`
	ConsecutiveDays int       `json:"consecutiveDays" gorm:"not null;default:0"`
	LastPlayedAt    time.Time `json:"lastPlayedAt" gorm:"type:timestamp with time zone"`
}
