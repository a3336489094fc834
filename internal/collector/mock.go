package collector

import (
	"context"
	"math"
	"sync"
	"time"

	"DivergenceSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// When Bars is nil it generates a deterministic oscillating series.
type MockFetcher struct {
	mu    sync.Mutex
	Price float64
	Bars  []model.Bar
	Err   error
	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(ctx context.Context, _, timeframe string, limit int) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		out := make([]model.Bar, len(m.Bars))
		copy(out, m.Bars)
		return out, nil
	}
	step, err := TimeframeDuration(timeframe)
	if err != nil {
		step = time.Minute
	}
	return GenerateMockBars(m.basePrice(), limit, step), nil
}

func (m *MockFetcher) FetchLastPrice(ctx context.Context, _ string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return m.basePrice(), nil
}

// SetBars swaps the served bars.
func (m *MockFetcher) SetBars(bars []model.Bar) {
	m.mu.Lock()
	m.Bars = bars
	m.mu.Unlock()
}

// SetErr makes subsequent calls fail with err (nil clears it).
func (m *MockFetcher) SetErr(err error) {
	m.mu.Lock()
	m.Err = err
	m.mu.Unlock()
}

// Calls returns how many times FetchBars was invoked.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockFetcher) basePrice() float64 {
	if m.Price > 0 {
		return m.Price
	}
	return 100
}

// GenerateMockBars produces count bars oscillating around basePrice, ending
// at the most recent step boundary.
func GenerateMockBars(basePrice float64, count int, step time.Duration) []model.Bar {
	end := time.Now().UTC().Truncate(step)
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.02*math.Sin(float64(i)/4) + 0.005*math.Sin(float64(i)/1.3))
		bars[i] = model.Bar{
			OpenTime: end.Add(-time.Duration(count-1-i) * step),
			Open:     p * 0.999,
			High:     p * 1.003,
			Low:      p * 0.997,
			Close:    p,
			Volume:   1000,
		}
	}
	return bars
}

// BarsFromCloses builds flat bars (open=high=low=close) from a close series.
func BarsFromCloses(start time.Time, step time.Duration, closes []float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{OpenTime: start.Add(time.Duration(i) * step), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}
