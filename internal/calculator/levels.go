package calculator

import (
	"errors"
	"math"

	"DivergenceSentinel/internal/model"
)

// SwingExtremes scans the most recent window bars and returns the high and low.
func SwingExtremes(bars []model.Bar, window int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	if window <= 0 {
		return 0, 0, errors.New("window must be positive")
	}
	n := len(bars)
	start := n - window
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// ATRLevels places target and stop at fixed ATR multiples from entry.
func ATRLevels(dir model.Direction, entry, atr, tpMult, slMult float64) model.TradeLevels {
	lv := model.TradeLevels{Direction: dir, Entry: entry}
	if dir == model.Long {
		lv.Target1 = entry + atr*tpMult
		lv.Stop = entry - atr*slMult
	} else {
		lv.Target1 = entry - atr*tpMult
		lv.Stop = entry + atr*slMult
	}
	return lv
}

// DivergenceSetup anchors the stop half an ATR beyond the swing extreme and
// places two targets at 1.5 and 3 ATR from entry. swing is the swing low for
// longs and the swing high for shorts.
func DivergenceSetup(dir model.Direction, entry, swing, atr float64) model.TradeLevels {
	lv := model.TradeLevels{Direction: dir, Entry: entry}
	if dir == model.Long {
		lv.Stop = swing - 0.5*atr
		lv.Target1 = entry + 1.5*atr
		lv.Target2 = entry + 3.0*atr
	} else {
		lv.Stop = swing + 0.5*atr
		lv.Target1 = entry - 1.5*atr
		lv.Target2 = entry - 3.0*atr
	}
	return lv
}
