package recorder

import (
	"time"

	"DivergenceSentinel/internal/model"
)

// CycleRecord captures the outcome of one evaluation cycle.
type CycleRecord struct {
	Instrument string
	Timeframe  string
	BarTime    time.Time
	Close      float64
	Oscillator float64
	Zone       model.Zone
	Active     []model.AlertKind
	Emitted    int
	Bars       int
	Duration   time.Duration
	Err        string // empty for successful cycles
}

// Recorder persists alert and cycle history for later analysis.
type Recorder interface {
	RecordAlert(ev *model.AlertEvent) error
	RecordCycle(rec *CycleRecord) error
	RecentAlerts(limit int) ([]model.AlertEvent, error)
	Close() error
}
