package calculator

import (
	"errors"
	"math"
	"testing"
)

var scenarioCloses = []float64{10, 11, 12, 11, 10, 9, 10, 11, 12, 13, 14, 13, 12}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCalculateRSI_HandComputedTrace(t *testing.T) {
	want := []float64{100, 100, 100, 50, 25, 12.5, 56.25, 78.125, 89.0625, 94.53125, 97.265625, 48.6328125, 24.31640625}
	got, err := CalculateRSI(scenarioCloses, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if !approx(got[i], want[i]) {
			t.Errorf("rsi[%d] = %.10f, want %.10f", i, got[i], want[i])
		}
	}
}

func TestCalculateRSI_WarmupRegionCarriesSeed(t *testing.T) {
	got, err := CalculateRSI(scenarioCloses, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seed := 200.0 / 3.0
	for i := 0; i < 3; i++ {
		if !approx(got[i], seed) {
			t.Errorf("warm-up rsi[%d] = %.6f, want seed %.6f", i, got[i], seed)
		}
	}
	if !approx(got[3], 400.0/9.0) {
		t.Errorf("rsi[3] = %.6f, want %.6f", got[3], 400.0/9.0)
	}
}

func TestCalculateRSI_Bounds(t *testing.T) {
	closes := []float64{44, 44.5, 43.8, 44.2, 45, 44.6, 45.3, 46, 45.7, 46.4, 45.1, 44.9, 46.8, 47.2, 46.1}
	for _, period := range []int{2, 4, 7, 14} {
		got, err := CalculateRSI(closes, period)
		if err != nil {
			t.Fatalf("period %d: unexpected error: %v", period, err)
		}
		for i, v := range got {
			if v < 0 || v > 100 || math.IsNaN(v) {
				t.Errorf("period %d: rsi[%d] = %f out of [0,100]", period, i, v)
			}
		}
	}
}

func TestCalculateRSI_MonotonicRiseSaturates(t *testing.T) {
	got, err := CalculateRSI([]float64{1, 2, 3, 4, 5, 6}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if v != 100 {
			t.Errorf("rsi[%d] = %f, want 100", i, v)
		}
	}
}

func TestCalculateRSI_Deterministic(t *testing.T) {
	a, _ := CalculateRSI(scenarioCloses, 3)
	b, _ := CalculateRSI(scenarioCloses, 3)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("rsi[%d] differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestCalculateRSI_InsufficientData(t *testing.T) {
	_, err := CalculateRSI(scenarioCloses, 14)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	// exactly period+1 closes is enough
	got, err := CalculateRSI(scenarioCloses[:3], 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 values, got %d", len(got))
	}
}

func TestCalculateRSI_InvalidPeriod(t *testing.T) {
	if _, err := CalculateRSI(scenarioCloses, 0); err == nil {
		t.Fatal("expected error for zero period")
	}
}

func TestMovingAverage(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}
	sma, err := MovingAverage(series, 3, SMA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(sma[4], 4) || !approx(sma[2], 2) {
		t.Errorf("unexpected sma tail: %v", sma)
	}
	ema, err := MovingAverage(series, 3, EMA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ema) != len(series) {
		t.Errorf("ema not aligned with input: %d vs %d", len(ema), len(series))
	}
	if _, err := MovingAverage(series, 6, SMA); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestParseMAType(t *testing.T) {
	tests := []struct {
		in      string
		want    MAType
		wantErr bool
	}{
		{"", SMA, false},
		{"SMA", SMA, false},
		{"ema", EMA, false},
		{"wma", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMAType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMAType(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMAType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
