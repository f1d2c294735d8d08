package models

import (
	"time"
)

type Machine struct {
	PCBID  string `json:"pcbid" gorm:"column:pcb_id;primaryKey;type:text"`
	Name   string `json:"name" gorm:"type:text"`
	Region int    `json:"region" gorm:"not null;default:0"`
	// Nullable so auto-enrolled cabinets without a shop assignment
	// do not collide under the unique index.
	ShopID *int64 `json:"shopID" gorm:"uniqueIndex"`
	Data   []byte `json:"data" gorm:"type:bytea"`
}

// Setting is the active time-sensitive record for one recurring job.
type Setting struct {
	Game      string    `json:"game" gorm:"primaryKey;type:text"`
	Version   int       `json:"version" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"primaryKey;type:text"`
	StartTime time.Time `json:"startTime" gorm:"type:timestamp with time zone;not null"`
	EndTime   time.Time `json:"endTime" gorm:"type:timestamp with time zone;not null"`
	Data      []byte    `json:"data" gorm:"type:bytea"`
}

// ScheduledWork records that a job's record for the current cadence
// boundary has already been produced.
type ScheduledWork struct {
	Game     string    `json:"game" gorm:"primaryKey;type:text"`
	Version  int       `json:"version" gorm:"primaryKey"`
	Name     string    `json:"name" gorm:"primaryKey;type:text"`
	Cadence  string    `json:"cadence" gorm:"primaryKey;type:text"`
	Boundary time.Time `json:"boundary" gorm:"type:timestamp with time zone;not null"`
}
