package strategy

import "DivergenceSentinel/internal/model"

// ZoneOf places value relative to the overbought/oversold thresholds.
// Both comparisons are strict.
func ZoneOf(value, overbought, oversold float64) model.Zone {
	switch {
	case value > overbought:
		return model.ZoneOverbought
	case value < oversold:
		return model.ZoneOversold
	default:
		return model.ZoneNeutral
	}
}

// Crossover inspects the last two aligned values of osc and ma. It returns
// KindCrossUp when osc moved from at-or-below ma to above it, KindCrossDown
// for the mirror case, and "" otherwise.
func Crossover(osc, ma []float64) model.AlertKind {
	n := len(osc)
	if n < 2 || len(ma) != n {
		return ""
	}
	prevOsc, lastOsc := osc[n-2], osc[n-1]
	prevMA, lastMA := ma[n-2], ma[n-1]
	switch {
	case prevOsc <= prevMA && lastOsc > lastMA:
		return model.KindCrossUp
	case prevOsc >= prevMA && lastOsc < lastMA:
		return model.KindCrossDown
	default:
		return ""
	}
}
