package strategy

import (
	"errors"
	"fmt"

	"DivergenceSentinel/internal/calculator"
	"DivergenceSentinel/internal/model"
)

// ErrInsufficientData reports a history too short for detection.
var ErrInsufficientData = calculator.ErrInsufficientData

// PriceSource selects which bar field feeds price pivots.
type PriceSource string

const (
	// PriceWicks uses highs for pivot highs and lows for pivot lows.
	PriceWicks PriceSource = "wick"
	// PriceClose uses the close for both.
	PriceClose PriceSource = "close"
)

// ThresholdConfig enables overbought/oversold alerts.
type ThresholdConfig struct {
	Enabled    bool
	Overbought float64
	Oversold   float64
}

// Bounds returns the zone bounds. The zone is reported even when threshold
// alerts are disabled, so an unusable pair falls back to the defaults.
func (t ThresholdConfig) Bounds() (overbought, oversold float64) {
	if t.Oversold >= 0 && t.Overbought <= 100 && t.Oversold < t.Overbought {
		return t.Overbought, t.Oversold
	}
	d := DefaultConfig().Threshold
	return d.Overbought, d.Oversold
}

// CrossoverConfig enables oscillator/MA crossover alerts.
type CrossoverConfig struct {
	Enabled      bool
	MALength     int
	MAType       calculator.MAType
	TPMultiplier float64
	SLMultiplier float64
}

// Config holds detection parameters. It is static for the life of a run.
type Config struct {
	Period        int
	LookbackLeft  int
	LookbackRight int
	Distance      DistanceRange
	Enabled       model.DivergenceFlags
	PriceSource   PriceSource
	ATRLength     int

	Threshold ThresholdConfig
	Crossover CrossoverConfig
}

// DefaultConfig mirrors the classic pivot-divergence indicator defaults:
// RSI(14), 5/5 pivots, pairing range 5..60 bars, hidden kinds off.
func DefaultConfig() Config {
	return Config{
		Period:        14,
		LookbackLeft:  5,
		LookbackRight: 5,
		Distance:      DistanceRange{Min: 5, Max: 60},
		Enabled:       model.DivergenceFlags{RegularBullish: true, RegularBearish: true},
		PriceSource:   PriceWicks,
		ATRLength:     14,
		Threshold:     ThresholdConfig{Overbought: 70, Oversold: 30},
		Crossover: CrossoverConfig{
			MALength:     14,
			MAType:       calculator.SMA,
			TPMultiplier: 2.0,
			SLMultiplier: 1.0,
		},
	}
}

// Validate rejects parameter combinations that cannot produce a result.
func (c Config) Validate() error {
	var errs []error
	if c.Period <= 0 {
		errs = append(errs, fmt.Errorf("period must be positive, got %d", c.Period))
	}
	if c.LookbackLeft < 1 || c.LookbackRight < 1 {
		errs = append(errs, fmt.Errorf("pivot lookbacks must be >= 1, got left=%d right=%d", c.LookbackLeft, c.LookbackRight))
	}
	if c.Distance.Min < 0 {
		errs = append(errs, fmt.Errorf("min distance must be >= 0, got %d", c.Distance.Min))
	}
	if c.Distance.Max < 1 {
		errs = append(errs, fmt.Errorf("max distance must be >= 1, got %d", c.Distance.Max))
	}
	if c.Distance.Min > c.Distance.Max {
		errs = append(errs, fmt.Errorf("min distance %d exceeds max distance %d", c.Distance.Min, c.Distance.Max))
	}
	switch c.PriceSource {
	case PriceWicks, PriceClose:
	default:
		errs = append(errs, fmt.Errorf("unknown price source %q", c.PriceSource))
	}
	if c.ATRLength <= 0 {
		errs = append(errs, fmt.Errorf("atr length must be positive, got %d", c.ATRLength))
	}
	if c.Threshold.Enabled {
		if c.Threshold.Oversold >= c.Threshold.Overbought {
			errs = append(errs, fmt.Errorf("oversold %.1f must be below overbought %.1f", c.Threshold.Oversold, c.Threshold.Overbought))
		}
		if c.Threshold.Oversold < 0 || c.Threshold.Overbought > 100 {
			errs = append(errs, errors.New("thresholds must lie within [0, 100]"))
		}
	}
	if c.Crossover.Enabled {
		if c.Crossover.MALength <= 0 {
			errs = append(errs, fmt.Errorf("ma length must be positive, got %d", c.Crossover.MALength))
		}
		if _, err := calculator.ParseMAType(string(c.Crossover.MAType)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RequiredBars is the minimum history needed for divergence detection.
func (c Config) RequiredBars() int {
	return c.Period + c.LookbackLeft + c.Distance.Max
}

// FetchLimit returns how many bars to request so the newest pivots can be confirmed.
func (c Config) FetchLimit(historyLimit int) int {
	need := c.RequiredBars() + c.LookbackRight + 1
	if historyLimit > need {
		return historyLimit
	}
	return need
}
