package strategy

import (
	"fmt"

	"DivergenceSentinel/internal/calculator"
	"DivergenceSentinel/internal/model"
	"DivergenceSentinel/internal/throttle"
)

// Engine runs the detection pipeline:
// oscillator → pivots → divergence classifier, plus the optional threshold
// and crossover modes. It holds no per-instrument state.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid strategy config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's parameters.
func (e *Engine) Config() Config { return e.cfg }

// Evaluate computes the full evaluation for one bar history.
func (e *Engine) Evaluate(h *model.History) (*model.Evaluation, error) {
	bars := h.Bars
	if need := e.cfg.RequiredBars(); len(bars) < need {
		return nil, fmt.Errorf("%s: need %d bars, have %d: %w",
			model.InstrumentKey(h.Symbol, h.Timeframe), need, len(bars), ErrInsufficientData)
	}

	closes := model.Closes(bars)
	osc, err := calculator.CalculateRSI(closes, e.cfg.Period)
	if err != nil {
		return nil, err
	}

	last := bars[len(bars)-1]
	ev := &model.Evaluation{
		Symbol:     h.Symbol,
		Timeframe:  h.Timeframe,
		BarTime:    last.OpenTime,
		Close:      last.Close,
		Oscillator: osc,
	}

	highs, lows := closes, closes
	if e.cfg.PriceSource == PriceWicks {
		highs, lows = model.Highs(bars), model.Lows(bars)
	}
	l, r := e.cfg.LookbackLeft, e.cfg.LookbackRight
	ev.Pivots = model.PivotSet{
		PriceHighs: calculator.FindPivots(highs, l, r, model.PivotHigh),
		PriceLows:  calculator.FindPivots(lows, l, r, model.PivotLow),
		OscHighs:   calculator.FindPivots(osc, l, r, model.PivotHigh),
		OscLows:    calculator.FindPivots(osc, l, r, model.PivotLow),
	}
	ev.Divergences, ev.Pairs = Classify(ev.Pivots, e.cfg.Distance, e.cfg.Enabled)

	overbought, oversold := e.cfg.Threshold.Bounds()
	ev.Zone = ZoneOf(ev.Last(), overbought, oversold)

	cx := e.cfg.Crossover
	if cx.MALength > 0 && len(osc) > cx.MALength {
		if ma, err := calculator.MovingAverage(osc, cx.MALength, cx.MAType); err == nil {
			ev.OscillatorMA = ma
			if cx.Enabled {
				ev.Crossover = Crossover(osc, ma)
			}
		}
	}

	// ATR only sizes suggested levels; a short history just leaves it at zero.
	if atr, err := calculator.CalculateATR(bars, e.cfg.ATRLength); err == nil {
		ev.ATR = atr
	}
	return ev, nil
}

// Conditions maps an evaluation to the throttle conditions of every enabled kind.
func (e *Engine) Conditions(ev *model.Evaluation) []throttle.Condition {
	var conds []throttle.Condition
	for _, k := range model.DivergenceKinds {
		if !e.cfg.Enabled.Active(k) {
			continue
		}
		conds = append(conds, throttle.Condition{Kind: k, Active: ev.Divergences.Active(k), Mode: throttle.Discrete})
	}
	if e.cfg.Threshold.Enabled {
		conds = append(conds,
			throttle.Condition{Kind: model.KindOverbought, Active: ev.Zone == model.ZoneOverbought,
				Mode: throttle.Continuous, Group: "threshold", RearmOnNeutral: true},
			throttle.Condition{Kind: model.KindOversold, Active: ev.Zone == model.ZoneOversold,
				Mode: throttle.Continuous, Group: "threshold", RearmOnNeutral: true},
		)
	}
	if e.cfg.Crossover.Enabled {
		conds = append(conds,
			throttle.Condition{Kind: model.KindCrossUp, Active: ev.Crossover == model.KindCrossUp,
				Mode: throttle.Continuous, Group: "crossover", SharedCooldown: true},
			throttle.Condition{Kind: model.KindCrossDown, Active: ev.Crossover == model.KindCrossDown,
				Mode: throttle.Continuous, Group: "crossover", SharedCooldown: true},
		)
	}
	return conds
}

// Levels returns suggested stop/target prices for an alert of kind, or nil
// when the kind has no setup or ATR is unavailable. Entry is the last close.
func (e *Engine) Levels(ev *model.Evaluation, bars []model.Bar, kind model.AlertKind) *model.TradeLevels {
	if ev.ATR <= 0 {
		return nil
	}
	dir := model.Short
	if kind.Bullish() {
		dir = model.Long
	}
	switch kind {
	case model.KindCrossUp, model.KindCrossDown:
		lv := calculator.ATRLevels(dir, ev.Close, ev.ATR, e.cfg.Crossover.TPMultiplier, e.cfg.Crossover.SLMultiplier)
		return &lv
	case model.KindRegularBullish, model.KindHiddenBullish, model.KindRegularBearish, model.KindHiddenBearish:
		high, low, err := calculator.SwingExtremes(bars, e.cfg.LookbackLeft+e.cfg.LookbackRight+1)
		if err != nil {
			return nil
		}
		swing := high
		if dir == model.Long {
			swing = low
		}
		lv := calculator.DivergenceSetup(dir, ev.Close, swing, ev.ATR)
		return &lv
	}
	return nil
}
