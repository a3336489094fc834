package strategy

import (
	"DivergenceSentinel/internal/calculator"
	"DivergenceSentinel/internal/model"
)

// DistanceRange bounds the bar distance between the two oscillator pivots
// of a pairing. Both ends are inclusive.
type DistanceRange struct {
	Min int
	Max int
}

func (r DistanceRange) contains(d int) bool {
	return d >= r.Min && d <= r.Max
}

// Classify pairs the two most recent pivots of each list and reports every
// enabled divergence kind that holds. All four kinds are evaluated
// independently; a kind disabled in mask is never reported.
func Classify(ps model.PivotSet, dist DistanceRange, mask model.DivergenceFlags) (model.DivergenceFlags, []model.DivergencePair) {
	var flags model.DivergenceFlags
	var pairs []model.DivergencePair

	check := func(kind model.AlertKind, price, osc []model.Pivot, holds func(pp, pl, op, ol float64) bool) {
		if !mask.Active(kind) {
			return
		}
		oPrev, oLast, ok := calculator.LastTwo(osc)
		if !ok {
			return
		}
		pPrev, pLast, ok := calculator.LastTwo(price)
		if !ok {
			return
		}
		d := oLast.Index - oPrev.Index
		if !dist.contains(d) {
			return
		}
		if !holds(pPrev.Value, pLast.Value, oPrev.Value, oLast.Value) {
			return
		}
		flags.Set(kind)
		pairs = append(pairs, model.DivergencePair{
			Kind:      kind,
			PricePrev: pPrev,
			PriceLast: pLast,
			OscPrev:   oPrev,
			OscLast:   oLast,
			Distance:  d,
		})
	}

	// price lower low, oscillator higher low
	check(model.KindRegularBullish, ps.PriceLows, ps.OscLows, func(pp, pl, op, ol float64) bool {
		return pl < pp && ol > op
	})
	// price higher low, oscillator lower low
	check(model.KindHiddenBullish, ps.PriceLows, ps.OscLows, func(pp, pl, op, ol float64) bool {
		return pl > pp && ol < op
	})
	// price higher high, oscillator lower high
	check(model.KindRegularBearish, ps.PriceHighs, ps.OscHighs, func(pp, pl, op, ol float64) bool {
		return pl > pp && ol < op
	})
	// price lower high, oscillator higher high
	check(model.KindHiddenBearish, ps.PriceHighs, ps.OscHighs, func(pp, pl, op, ol float64) bool {
		return pl < pp && ol > op
	})

	return flags, pairs
}
