package arcanet

import "time"

// Event is one realtime notification fanned out to stream subscribers
// after a cabinet request is served.
type Event struct {
	Game      string    `json:"game"`
	Version   int       `json:"version,omitempty"`
	Module    string    `json:"module"`
	Method    string    `json:"method"`
	PCBID     string    `json:"pcbid"`
	Timestamp time.Time `json:"timestamp"`
}
