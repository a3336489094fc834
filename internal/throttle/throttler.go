package throttle

import (
	"sync"
	"time"

	"DivergenceSentinel/internal/model"
)

// Emission is one alert the caller should publish.
type Emission struct {
	Kind       model.AlertKind
	Occurrence int
	Cap        int // zero for continuous kinds
}

// Snapshot is the serializable throttle state of every instrument.
type Snapshot map[string]map[model.AlertKind]KindState

type instrumentState struct {
	mu    sync.Mutex
	kinds map[model.AlertKind]KindState
}

// Throttler owns per-instrument throttle state. Each instrument has its own
// lock so workers evaluating different instruments never contend.
type Throttler struct {
	mu          sync.RWMutex
	cfg         Config
	instruments map[string]*instrumentState
}

// New creates an empty Throttler.
func New(cfg Config) *Throttler {
	return &Throttler{cfg: cfg, instruments: make(map[string]*instrumentState)}
}

func (t *Throttler) instrument(key string) *instrumentState {
	t.mu.RLock()
	is, ok := t.instruments[key]
	t.mu.RUnlock()
	if ok {
		return is
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if is, ok = t.instruments[key]; ok {
		return is
	}
	is = &instrumentState{kinds: make(map[model.AlertKind]KindState)}
	t.instruments[key] = is
	return is
}

// Process applies one cycle of conditions for the instrument identified by key
// and returns the emissions in condition order.
func (t *Throttler) Process(key string, now time.Time, conds []Condition) []Emission {
	is := t.instrument(key)
	is.mu.Lock()
	defer is.mu.Unlock()

	// neutral re-arm
	anyActive := make(map[string]bool)
	rearm := make(map[string]bool)
	for _, c := range conds {
		if c.Group == "" {
			continue
		}
		if c.Active {
			anyActive[c.Group] = true
		}
		if c.RearmOnNeutral {
			rearm[c.Group] = true
		}
	}
	for _, c := range conds {
		if c.Group != "" && rearm[c.Group] && !anyActive[c.Group] {
			st := is.kinds[c.Kind]
			st.Latched = false
			st.LatchedAt = time.Time{}
			is.kinds[c.Kind] = st
		}
	}

	var out []Emission
	for _, c := range conds {
		st, emit := Step(is.kinds[c.Kind], c, now, t.cfg)
		is.kinds[c.Kind] = st
		if !emit {
			continue
		}
		e := Emission{Kind: c.Kind, Occurrence: st.Count}
		if c.Mode == Discrete {
			e.Cap = t.cfg.Cap
		}
		out = append(out, e)

		if c.Group == "" {
			continue
		}
		for _, sib := range conds {
			if sib.Group != c.Group || sib.Kind == c.Kind {
				continue
			}
			ss := is.kinds[sib.Kind]
			if c.SharedCooldown {
				ss.Latched = true
				ss.LatchedAt = now
			} else {
				ss.Latched = false
				ss.LatchedAt = time.Time{}
			}
			is.kinds[sib.Kind] = ss
		}
	}
	return out
}

// State returns a copy of one instrument's kind states.
func (t *Throttler) State(key string) map[model.AlertKind]KindState {
	t.mu.RLock()
	is, ok := t.instruments[key]
	t.mu.RUnlock()
	if !ok {
		return nil
	}
	is.mu.Lock()
	defer is.mu.Unlock()
	out := make(map[model.AlertKind]KindState, len(is.kinds))
	for k, v := range is.kinds {
		out[k] = v
	}
	return out
}

// Snapshot copies the state of every instrument.
func (t *Throttler) Snapshot() Snapshot {
	t.mu.RLock()
	keys := make([]string, 0, len(t.instruments))
	for k := range t.instruments {
		keys = append(keys, k)
	}
	t.mu.RUnlock()

	snap := make(Snapshot, len(keys))
	for _, k := range keys {
		snap[k] = t.State(k)
	}
	return snap
}

// Restore replaces the state of every instrument present in snap.
func (t *Throttler) Restore(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, kinds := range snap {
		is := &instrumentState{kinds: make(map[model.AlertKind]KindState, len(kinds))}
		for k, v := range kinds {
			is.kinds[k] = v
		}
		t.instruments[key] = is
	}
}
