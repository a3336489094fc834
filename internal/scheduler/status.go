package scheduler

import (
	"sort"
	"sync"
	"time"

	"DivergenceSentinel/internal/model"
)

// Board holds the latest status of every instrument plus a bounded list of
// recent alerts. Workers write their own instrument's entry; readers get copies.
type Board struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*model.InstrumentStatus
	recent  []model.AlertEvent
	keep    int
}

// NewBoard keeps up to keep recent alerts.
func NewBoard(keep int) *Board {
	if keep <= 0 {
		keep = 50
	}
	return &Board{entries: make(map[string]*model.InstrumentStatus), keep: keep}
}

// Register adds an instrument in display order. Re-registering is a no-op.
func (b *Board) Register(symbol, timeframe string) {
	key := model.InstrumentKey(symbol, timeframe)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[key]; ok {
		return
	}
	b.order = append(b.order, key)
	b.entries[key] = &model.InstrumentStatus{Key: key, Symbol: symbol, Timeframe: timeframe, Zone: model.ZoneNeutral}
}

// UpdateEvaluation records a completed cycle.
func (b *Board) UpdateEvaluation(key string, ev *model.Evaluation, counts map[model.AlertKind]int, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.entries[key]
	if !ok {
		return
	}
	s.LastClose = ev.Close
	s.Oscillator = ev.Last()
	s.OscillatorMA = ev.LastMA()
	s.Zone = ev.Zone
	s.Active = ev.Divergences.Kinds()
	if ev.Crossover != "" {
		s.Active = append(s.Active, ev.Crossover)
	}
	s.Counts = counts
	s.LastError = ""
	s.Failures = 0
	s.LastCycleAt = at
}

// SetError records a failed or skipped cycle.
func (b *Board) SetError(key string, err error, failures int, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.entries[key]; ok {
		s.LastError = err.Error()
		s.Failures = failures
		s.LastCycleAt = at
	}
}

// SetPrice updates the live price of every timeframe monitored for symbol.
func (b *Board) SetPrice(symbol string, price float64, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.entries {
		if s.Symbol == symbol {
			s.LivePrice = price
			s.PriceAt = at
		}
	}
}

// Symbols returns the distinct monitored symbols.
func (b *Board) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, key := range b.order {
		sym := b.entries[key].Symbol
		if !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	return out
}

// Statuses returns copies of every status in registration order.
func (b *Board) Statuses() []model.InstrumentStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.InstrumentStatus, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, copyStatus(b.entries[key]))
	}
	return out
}

// Status returns one instrument's status.
func (b *Board) Status(key string) (model.InstrumentStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.entries[key]
	if !ok {
		return model.InstrumentStatus{}, false
	}
	return copyStatus(s), true
}

func copyStatus(s *model.InstrumentStatus) model.InstrumentStatus {
	c := *s
	c.Active = append([]model.AlertKind(nil), s.Active...)
	if s.Counts != nil {
		c.Counts = make(map[model.AlertKind]int, len(s.Counts))
		for k, v := range s.Counts {
			c.Counts[k] = v
		}
	}
	return c
}

// AddAlerts appends events to the recent list, dropping the oldest beyond capacity.
func (b *Board) AddAlerts(events ...model.AlertEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recent = append(b.recent, events...)
	sort.SliceStable(b.recent, func(i, j int) bool { return b.recent[i].Timestamp.Before(b.recent[j].Timestamp) })
	if over := len(b.recent) - b.keep; over > 0 {
		b.recent = append([]model.AlertEvent(nil), b.recent[over:]...)
	}
}

// Recent returns up to n alerts, newest first.
func (b *Board) Recent(n int) []model.AlertEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > len(b.recent) {
		n = len(b.recent)
	}
	out := make([]model.AlertEvent, 0, n)
	for i := len(b.recent) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, b.recent[i])
	}
	return out
}
