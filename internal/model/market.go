package model

import (
	"strings"
	"time"
)

// Bar represents a single candlestick bar. Bars are immutable once received.
type Bar struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// History holds the ordered bar sequence fetched for one instrument-timeframe.
type History struct {
	Symbol    string
	Timeframe string
	Bars      []Bar
	FetchedAt time.Time
}

// Closes returns the close series aligned 1:1 with bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high series aligned 1:1 with bars.
func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows returns the low series aligned 1:1 with bars.
func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// InstrumentKey identifies one instrument-timeframe pair, e.g. "XRPUSDT@5m".
func InstrumentKey(symbol, timeframe string) string {
	return strings.ToUpper(symbol) + "@" + strings.ToLower(timeframe)
}
