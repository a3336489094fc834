package model

import "time"

// InstrumentStatus is the latest observable state of one monitored instrument.
type InstrumentStatus struct {
	Key          string            `json:"key"`
	Symbol       string            `json:"symbol"`
	Timeframe    string            `json:"timeframe"`
	LivePrice    float64           `json:"live_price"`
	LastClose    float64           `json:"last_close"`
	Oscillator   float64           `json:"oscillator"`
	OscillatorMA float64           `json:"oscillator_ma,omitempty"`
	Zone         Zone              `json:"zone"`
	Active       []AlertKind       `json:"active,omitempty"`
	Counts       map[AlertKind]int `json:"counts,omitempty"`
	LastError    string            `json:"last_error,omitempty"`
	Failures     int               `json:"consecutive_failures"`
	LastCycleAt  time.Time         `json:"last_cycle_at"`
	PriceAt      time.Time         `json:"price_at"`
}

// Bias summarizes the active kinds as bullish, bearish or "".
func (s InstrumentStatus) Bias() string {
	for _, k := range s.Active {
		if k.Bullish() {
			return "bullish"
		}
	}
	if len(s.Active) > 0 {
		return "bearish"
	}
	return ""
}
