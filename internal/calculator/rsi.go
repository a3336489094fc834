package calculator

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when a series is too short for the requested period.
var ErrInsufficientData = errors.New("insufficient data")

// saturationEpsilon is the average-loss floor below which RSI saturates at 100.
const saturationEpsilon = 1e-10

// CalculateRSI computes the Wilder-smoothed RSI series over closes.
// The result is aligned 1:1 with closes. Indices below period form the
// warm-up region and carry the seed value derived from the simple mean of the
// first period gains/losses. Requires at least period+1 closes.
func CalculateRSI(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("rsi period must be positive, got %d", period)
	}
	n := len(closes)
	if n < period+1 {
		return nil, fmt.Errorf("rsi(%d) needs %d closes, have %d: %w", period, period+1, n, ErrInsufficientData)
	}

	gains := make([]float64, n-1)
	losses := make([]float64, n-1)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	out := make([]float64, n)
	seed := rsiValue(avgGain, avgLoss)
	for i := 0; i < period; i++ {
		out[i] = seed
	}

	// Wilder smoothing. Index i consumes the change ending at bar i-1.
	p := float64(period)
	for i := period; i < n; i++ {
		avgGain = (avgGain*(p-1) + gains[i-1]) / p
		avgLoss = (avgLoss*(p-1) + losses[i-1]) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss < saturationEpsilon {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
