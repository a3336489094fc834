package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"DivergenceSentinel/internal/model"
)

// ErrNoData is returned when a provider answers with an empty batch.
var ErrNoData = errors.New("provider returned no bars")

// Collector wraps a Fetcher with a per-call timeout, batch validation and a
// cache of the last history that passed validation.
type Collector struct {
	fetcher Fetcher
	timeout time.Duration

	mu       sync.RWMutex
	lastGood map[string]*model.History
}

// NewCollector creates a new Collector. timeout bounds every provider call.
func NewCollector(fetcher Fetcher, timeout time.Duration) *Collector {
	return &Collector{
		fetcher:  fetcher,
		timeout:  timeout,
		lastGood: make(map[string]*model.History),
	}
}

// Source names the underlying provider.
func (c *Collector) Source() string { return c.fetcher.Name() }

func (c *Collector) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Collect fetches and validates the latest bars. A rejected batch leaves the
// cached history untouched.
func (c *Collector) Collect(ctx context.Context, symbol, timeframe string, limit int) (*model.History, error) {
	fctx, cancel := c.withTimeout(ctx)
	defer cancel()

	bars, err := c.fetcher.FetchBars(fctx, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s bars: %w", symbol, timeframe, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch %s %s bars: %w", symbol, timeframe, ErrNoData)
	}
	if err := ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("%s %s: %w", symbol, timeframe, err)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	h := &model.History{
		Symbol:    symbol,
		Timeframe: timeframe,
		Bars:      bars,
		FetchedAt: time.Now(),
	}
	c.mu.Lock()
	c.lastGood[model.InstrumentKey(symbol, timeframe)] = h
	c.mu.Unlock()
	return h, nil
}

// LastGood returns the most recent history that passed validation.
func (c *Collector) LastGood(symbol, timeframe string) (*model.History, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.lastGood[model.InstrumentKey(symbol, timeframe)]
	return h, ok
}

// LastPrice fetches the live reference price used for display.
func (c *Collector) LastPrice(ctx context.Context, symbol string) (float64, error) {
	fctx, cancel := c.withTimeout(ctx)
	defer cancel()
	p, err := c.fetcher.FetchLastPrice(fctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("fetch %s price: %w", symbol, err)
	}
	return p, nil
}
