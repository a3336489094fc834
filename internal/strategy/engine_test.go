package strategy

import (
	"errors"
	"testing"
	"time"

	"DivergenceSentinel/internal/model"
	"DivergenceSentinel/internal/throttle"
)

var scenarioCloses = []float64{10, 11, 12, 11, 10, 9, 10, 11, 12, 13, 14, 13, 12}

func flatHistory(closes []float64) *model.History {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{OpenTime: start.Add(time.Duration(i) * 5 * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	return &model.History{Symbol: "XRPUSDT", Timeframe: "5m", Bars: bars}
}

func scenarioConfig(period int) Config {
	cfg := DefaultConfig()
	cfg.Period = period
	cfg.LookbackLeft = 2
	cfg.LookbackRight = 2
	cfg.Distance = DistanceRange{Min: 2, Max: 8}
	cfg.PriceSource = PriceClose
	cfg.Enabled = model.DivergenceFlags{RegularBullish: true, HiddenBullish: true, RegularBearish: true, HiddenBearish: true}
	cfg.ATRLength = 3
	return cfg
}

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEvaluate_ScenarioRegularBearish(t *testing.T) {
	// RSI(2) trace: highs at 2 (100) and 10 (97.27), price highs 12 -> 14
	e := mustEngine(t, scenarioConfig(2))
	ev, err := e.Evaluate(flatHistory(scenarioCloses))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := model.DivergenceFlags{RegularBearish: true}
	if ev.Divergences != want {
		t.Fatalf("flags = %+v, want %+v", ev.Divergences, want)
	}
	if len(ev.Pairs) != 1 {
		t.Fatalf("expected one pair, got %d", len(ev.Pairs))
	}
	p := ev.Pairs[0]
	if p.OscPrev.Index != 2 || p.OscLast.Index != 10 || p.Distance != 8 {
		t.Errorf("unexpected pairing: %+v", p)
	}
	if p.PricePrev.Value != 12 || p.PriceLast.Value != 14 {
		t.Errorf("unexpected price pivots: %+v %+v", p.PricePrev, p.PriceLast)
	}
	if ev.Close != 12 {
		t.Errorf("close = %v, want 12", ev.Close)
	}
}

func TestEvaluate_ScenarioSlowerOscillatorNoDivergence(t *testing.T) {
	// RSI(3) makes a higher high at 10, agreeing with price
	e := mustEngine(t, scenarioConfig(3))
	ev, err := e.Evaluate(flatHistory(scenarioCloses))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Divergences.Any() {
		t.Errorf("expected no divergence, got %+v", ev.Divergences)
	}
}

func TestEvaluate_DistanceGate(t *testing.T) {
	cfg := scenarioConfig(2)
	cfg.Distance = DistanceRange{Min: 2, Max: 7}
	e := mustEngine(t, cfg)
	ev, err := e.Evaluate(flatHistory(append([]float64{10, 10}, scenarioCloses...)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Divergences.RegularBearish {
		t.Error("pivots 8 bars apart must not pair when max distance is 7")
	}
}

func TestEvaluate_MaskedKindNeverReported(t *testing.T) {
	cfg := scenarioConfig(2)
	cfg.Enabled = model.DivergenceFlags{RegularBullish: true, HiddenBullish: true, HiddenBearish: true}
	e := mustEngine(t, cfg)
	ev, err := e.Evaluate(flatHistory(scenarioCloses))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Divergences.RegularBearish || len(ev.Pairs) != 0 {
		t.Errorf("masked kind reported: %+v", ev.Divergences)
	}
}

func TestEvaluate_InsufficientData(t *testing.T) {
	e := mustEngine(t, scenarioConfig(2))
	_, err := e.Evaluate(flatHistory(scenarioCloses[:11]))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestEvaluate_ZoneUsesConfiguredBounds(t *testing.T) {
	// last RSI(2) value of the scenario is 24.3
	tests := []struct {
		name      string
		threshold ThresholdConfig
		want      model.Zone
	}{
		{"defaults", DefaultConfig().Threshold, model.ZoneOversold},
		{"custom while disabled", ThresholdConfig{Overbought: 80, Oversold: 20}, model.ZoneNeutral},
		{"custom while enabled", ThresholdConfig{Enabled: true, Overbought: 90, Oversold: 25}, model.ZoneOversold},
		{"unusable pair falls back", ThresholdConfig{Overbought: 20, Oversold: 80}, model.ZoneOversold},
		{"zero pair falls back", ThresholdConfig{}, model.ZoneOversold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scenarioConfig(2)
			cfg.Threshold = tt.threshold
			ev, err := mustEngine(t, cfg).Evaluate(flatHistory(scenarioCloses))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.Zone != tt.want {
				t.Errorf("zone = %s at rsi %.2f, want %s", ev.Zone, ev.Last(), tt.want)
			}
		})
	}
}

func TestThresholdBounds(t *testing.T) {
	hi, lo := ThresholdConfig{Overbought: 65, Oversold: 35}.Bounds()
	if hi != 65 || lo != 35 {
		t.Errorf("bounds = %v/%v, want 65/35", hi, lo)
	}
	hi, lo = ThresholdConfig{Overbought: 120, Oversold: 35}.Bounds()
	if hi != 70 || lo != 30 {
		t.Errorf("bounds = %v/%v, want defaults 70/30", hi, lo)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := mustEngine(t, scenarioConfig(2))
	a, _ := e.Evaluate(flatHistory(scenarioCloses))
	b, _ := e.Evaluate(flatHistory(scenarioCloses))
	for i := range a.Oscillator {
		if a.Oscillator[i] != b.Oscillator[i] {
			t.Fatalf("oscillator differs at %d", i)
		}
	}
	if a.Divergences != b.Divergences {
		t.Error("flags differ between identical runs")
	}
}

func TestLevels_DivergenceSetup(t *testing.T) {
	e := mustEngine(t, scenarioConfig(2))
	h := flatHistory(scenarioCloses)
	ev, err := e.Evaluate(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ATR != 1 {
		t.Fatalf("atr = %v, want 1", ev.ATR)
	}
	lv := e.Levels(ev, h.Bars, model.KindRegularBearish)
	if lv == nil {
		t.Fatal("expected levels")
	}
	if lv.Direction != model.Short || lv.Stop != 14.5 || lv.Target1 != 10.5 || lv.Target2 != 9 {
		t.Errorf("unexpected levels: %+v", lv)
	}
	if e.Levels(ev, h.Bars, model.KindOverbought) != nil {
		t.Error("threshold alerts carry no levels")
	}
}

func TestConditions_OnlyEnabledKinds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Threshold.Enabled = true
	e := mustEngine(t, cfg)
	ev := &model.Evaluation{Divergences: model.DivergenceFlags{RegularBullish: true, HiddenBullish: true}, Zone: model.ZoneOversold}
	conds := e.Conditions(ev)
	if len(conds) != 4 {
		t.Fatalf("expected 4 conditions, got %d", len(conds))
	}
	active := map[model.AlertKind]bool{}
	for _, c := range conds {
		if c.Kind == model.KindHiddenBullish {
			t.Error("hidden bullish is disabled by default")
		}
		active[c.Kind] = c.Active
		if c.Kind == model.KindOversold && (c.Mode != throttle.Continuous || !c.RearmOnNeutral) {
			t.Errorf("unexpected oversold condition: %+v", c)
		}
	}
	if !active[model.KindRegularBullish] || !active[model.KindOversold] || active[model.KindOverbought] {
		t.Errorf("unexpected activity: %v", active)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero period", func(c *Config) { c.Period = 0 }, false},
		{"min above max", func(c *Config) { c.Distance = DistanceRange{Min: 10, Max: 5} }, false},
		{"zero lookback", func(c *Config) { c.LookbackRight = 0 }, false},
		{"bad price source", func(c *Config) { c.PriceSource = "typical" }, false},
		{"inverted thresholds", func(c *Config) { c.Threshold = ThresholdConfig{Enabled: true, Overbought: 30, Oversold: 70} }, false},
		{"bad ma type", func(c *Config) { c.Crossover.Enabled = true; c.Crossover.MAType = "wma" }, false},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.modify(&cfg)
		err := cfg.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}

func TestConfigRequiredBars(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.RequiredBars(); got != 14+5+60 {
		t.Errorf("RequiredBars = %d", got)
	}
	if got := cfg.FetchLimit(100); got != 100 {
		t.Errorf("FetchLimit(100) = %d", got)
	}
	if got := cfg.FetchLimit(10); got != 14+5+60+5+1 {
		t.Errorf("FetchLimit(10) = %d", got)
	}
}
