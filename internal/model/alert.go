package model

import "time"

// AlertEvent is emitted by the throttler and consumed only by sinks.
type AlertEvent struct {
	ID             string       `json:"id"`
	Timestamp      time.Time    `json:"timestamp"`
	Instrument     string       `json:"instrument"`
	Timeframe      string       `json:"timeframe"`
	Kind           AlertKind    `json:"kind"`
	ReferencePrice float64      `json:"reference_price"`
	Oscillator     float64      `json:"oscillator"`
	Occurrence     int          `json:"occurrence"`
	Cap            int          `json:"cap,omitempty"` // 0 for cooldown-throttled kinds
	Levels         *TradeLevels `json:"levels,omitempty"`
}
