package model

// AlertKind names a condition the throttler can emit alerts for.
type AlertKind string

const (
	KindRegularBullish AlertKind = "regular_bullish"
	KindHiddenBullish  AlertKind = "hidden_bullish"
	KindRegularBearish AlertKind = "regular_bearish"
	KindHiddenBearish  AlertKind = "hidden_bearish"

	KindOverbought AlertKind = "overbought"
	KindOversold   AlertKind = "oversold"

	KindCrossUp   AlertKind = "cross_up"
	KindCrossDown AlertKind = "cross_down"
)

// DivergenceKinds lists the four divergence kinds in evaluation order.
var DivergenceKinds = []AlertKind{
	KindRegularBullish,
	KindHiddenBullish,
	KindRegularBearish,
	KindHiddenBearish,
}

// Bullish reports whether the kind implies upward pressure.
func (k AlertKind) Bullish() bool {
	switch k {
	case KindRegularBullish, KindHiddenBullish, KindOversold, KindCrossUp:
		return true
	}
	return false
}

// Label returns a human readable name, e.g. "REGULAR BULLISH".
func (k AlertKind) Label() string {
	switch k {
	case KindRegularBullish:
		return "REGULAR BULLISH"
	case KindHiddenBullish:
		return "HIDDEN BULLISH"
	case KindRegularBearish:
		return "REGULAR BEARISH"
	case KindHiddenBearish:
		return "HIDDEN BEARISH"
	case KindOverbought:
		return "OVERBOUGHT"
	case KindOversold:
		return "OVERSOLD"
	case KindCrossUp:
		return "RSI CROSS UP"
	case KindCrossDown:
		return "RSI CROSS DOWN"
	default:
		return string(k)
	}
}

// DivergenceFlags holds the currently active divergence kinds.
type DivergenceFlags struct {
	RegularBullish bool
	HiddenBullish  bool
	RegularBearish bool
	HiddenBearish  bool
}

// Active reports whether the given divergence kind is set.
func (f DivergenceFlags) Active(kind AlertKind) bool {
	switch kind {
	case KindRegularBullish:
		return f.RegularBullish
	case KindHiddenBullish:
		return f.HiddenBullish
	case KindRegularBearish:
		return f.RegularBearish
	case KindHiddenBearish:
		return f.HiddenBearish
	}
	return false
}

// Set marks the given divergence kind active. Non-divergence kinds are ignored.
func (f *DivergenceFlags) Set(kind AlertKind) {
	switch kind {
	case KindRegularBullish:
		f.RegularBullish = true
	case KindHiddenBullish:
		f.HiddenBullish = true
	case KindRegularBearish:
		f.RegularBearish = true
	case KindHiddenBearish:
		f.HiddenBearish = true
	}
}

// Kinds returns the active kinds in evaluation order.
func (f DivergenceFlags) Kinds() []AlertKind {
	var out []AlertKind
	for _, k := range DivergenceKinds {
		if f.Active(k) {
			out = append(out, k)
		}
	}
	return out
}

// Any reports whether at least one divergence is active.
func (f DivergenceFlags) Any() bool {
	return f.RegularBullish || f.HiddenBullish || f.RegularBearish || f.HiddenBearish
}

// DivergencePair is the pivot pairing that produced an active divergence.
type DivergencePair struct {
	Kind      AlertKind
	PricePrev Pivot
	PriceLast Pivot
	OscPrev   Pivot
	OscLast   Pivot
	Distance  int // bars between the two oscillator pivots
}

// Direction of a suggested setup.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// TradeLevels are suggested stop/target prices. Informational only.
type TradeLevels struct {
	Direction Direction `json:"direction"`
	Entry     float64   `json:"entry"`
	Stop      float64   `json:"stop"`
	Target1   float64   `json:"target1"`
	Target2   float64   `json:"target2,omitempty"`
}
