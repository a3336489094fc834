package model

import "time"

// PivotKind distinguishes local maxima from local minima.
type PivotKind string

const (
	PivotHigh PivotKind = "high"
	PivotLow  PivotKind = "low"
)

// Pivot is a confirmed local extremum of a series.
type Pivot struct {
	Index int
	Value float64
	Kind  PivotKind
}

// PivotSet groups the four pivot lists the divergence classifier consumes.
type PivotSet struct {
	PriceHighs []Pivot
	PriceLows  []Pivot
	OscHighs   []Pivot
	OscLows    []Pivot
}

// Zone is the position of the oscillator relative to the fixed thresholds.
type Zone string

const (
	ZoneNeutral    Zone = "neutral"
	ZoneOverbought Zone = "overbought"
	ZoneOversold   Zone = "oversold"
)

// Evaluation is the output of one full pipeline pass over a bar history.
type Evaluation struct {
	Symbol    string
	Timeframe string
	BarTime   time.Time
	Close     float64

	Oscillator   []float64
	OscillatorMA []float64 // nil when the MA length exceeds the history
	ATR          float64

	Pivots      PivotSet
	Divergences DivergenceFlags
	Pairs       []DivergencePair
	Zone        Zone
	Crossover   AlertKind // KindCrossUp, KindCrossDown or ""
}

// Last returns the most recent oscillator value.
func (e *Evaluation) Last() float64 {
	if len(e.Oscillator) == 0 {
		return 0
	}
	return e.Oscillator[len(e.Oscillator)-1]
}

// LastMA returns the most recent oscillator MA value, or 0 when unavailable.
func (e *Evaluation) LastMA() float64 {
	if len(e.OscillatorMA) == 0 {
		return 0
	}
	return e.OscillatorMA[len(e.OscillatorMA)-1]
}
