package collector

import (
	"errors"
	"fmt"
	"math"

	"DivergenceSentinel/internal/model"
)

// ErrMalformedBars marks a provider batch that violates bar invariants.
var ErrMalformedBars = errors.New("malformed bars")

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ValidateBars checks ordering, positive prices and OHLC consistency of a batch.
// The batch is rejected whole; bars are never repaired or reordered.
func ValidateBars(bars []model.Bar) error {
	for i, b := range bars {
		if !finite(b.Open) || !finite(b.High) || !finite(b.Low) || !finite(b.Close) || !finite(b.Volume) {
			return fmt.Errorf("bar %d: non-finite value: %w", i, ErrMalformedBars)
		}
		if b.Low <= 0 || b.Open <= 0 || b.Close <= 0 || b.Volume < 0 {
			return fmt.Errorf("bar %d: non-positive price or negative volume: %w", i, ErrMalformedBars)
		}
		if b.High < b.Low {
			return fmt.Errorf("bar %d: high %.8g below low %.8g: %w", i, b.High, b.Low, ErrMalformedBars)
		}
		if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
			return fmt.Errorf("bar %d: open/close outside high/low range: %w", i, ErrMalformedBars)
		}
		if i > 0 && !b.OpenTime.After(bars[i-1].OpenTime) {
			return fmt.Errorf("bar %d: open time %s not after %s: %w",
				i, b.OpenTime.Format("2006-01-02 15:04"), bars[i-1].OpenTime.Format("2006-01-02 15:04"), ErrMalformedBars)
		}
	}
	return nil
}
