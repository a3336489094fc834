package calculator

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"DivergenceSentinel/internal/model"
)

// CalculateATR returns the simple mean of the last length true ranges.
// The first bar has no previous close, so length+1 bars are required.
func CalculateATR(bars []model.Bar, length int) (float64, error) {
	if length <= 0 {
		return 0, fmt.Errorf("atr length must be positive, got %d", length)
	}
	if len(bars) < length+1 {
		return 0, fmt.Errorf("atr(%d) needs %d bars, have %d: %w", length, length+1, len(bars), ErrInsufficientData)
	}
	tr := talib.TRange(model.Highs(bars), model.Lows(bars), model.Closes(bars))
	// tr[0] is undefined
	return CalculateSMA(tr[1:], length)
}
