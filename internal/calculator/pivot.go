package calculator

import "DivergenceSentinel/internal/model"

// FindPivots returns every index i in [left, n-right) whose value is the
// maximum (PivotHigh) or minimum (PivotLow) of the closed window
// [i-left, i+right]. Ties are accepted, so a plateau yields several pivots.
// Results are ordered by index.
func FindPivots(values []float64, left, right int, kind model.PivotKind) []model.Pivot {
	if left < 0 || right < 0 {
		return nil
	}
	var out []model.Pivot
	for i := left; i < len(values)-right; i++ {
		v := values[i]
		pivot := true
		for j := i - left; j <= i+right; j++ {
			if kind == model.PivotHigh && values[j] > v ||
				kind == model.PivotLow && values[j] < v {
				pivot = false
				break
			}
		}
		if pivot {
			out = append(out, model.Pivot{Index: i, Value: v, Kind: kind})
		}
	}
	return out
}

// LastTwo returns the two most recent pivots, or ok=false when fewer exist.
func LastTwo(pivots []model.Pivot) (prev, last model.Pivot, ok bool) {
	if len(pivots) < 2 {
		return model.Pivot{}, model.Pivot{}, false
	}
	return pivots[len(pivots)-2], pivots[len(pivots)-1], true
}
