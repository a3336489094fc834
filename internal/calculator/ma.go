package calculator

import (
	"fmt"
	"strings"

	"github.com/markcheno/go-talib"
)

// MAType selects the smoothing applied to the oscillator.
type MAType string

const (
	SMA MAType = "sma"
	EMA MAType = "ema"
)

// ParseMAType accepts "sma" or "ema" in any case. Empty defaults to SMA.
func ParseMAType(s string) (MAType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sma":
		return SMA, nil
	case "ema":
		return EMA, nil
	default:
		return "", fmt.Errorf("unknown moving average type %q", s)
	}
}

// MovingAverage returns the moving average of series aligned 1:1 with it.
// Values before index length-1 are zero (talib lookback). Returns
// ErrInsufficientData when the series is shorter than length.
func MovingAverage(series []float64, length int, kind MAType) ([]float64, error) {
	if length <= 0 {
		return nil, fmt.Errorf("ma length must be positive, got %d", length)
	}
	if len(series) < length {
		return nil, fmt.Errorf("%s(%d) needs %d values, have %d: %w", kind, length, length, len(series), ErrInsufficientData)
	}
	if length == 1 {
		out := make([]float64, len(series))
		copy(out, series)
		return out, nil
	}
	switch kind {
	case EMA:
		return talib.Ema(series, length), nil
	case SMA, "":
		return talib.Sma(series, length), nil
	default:
		return nil, fmt.Errorf("unknown moving average type %q", kind)
	}
}

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("sma period must be positive, got %d", period)
	}
	if len(prices) < period {
		return 0, fmt.Errorf("sma(%d) needs %d values, have %d: %w", period, period, len(prices), ErrInsufficientData)
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}
