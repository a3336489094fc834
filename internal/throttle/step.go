// Package throttle turns per-cycle condition flags into rate-limited alert
// emissions. Discrete conditions are capped per activation; continuous
// conditions are spaced by a cooldown.
package throttle

import (
	"time"

	"DivergenceSentinel/internal/model"
)

// Mode selects the rate-limiting rule applied to a condition.
type Mode int

const (
	// Discrete conditions emit up to Cap times per activation.
	Discrete Mode = iota
	// Continuous conditions re-emit once the cooldown has elapsed.
	Continuous
)

// Phase is the per-kind state machine position.
type Phase string

const (
	Idle       Phase = "idle"
	Armed      Phase = "armed"
	Suppressed Phase = "suppressed"
)

// Config holds the throttling limits shared by all instruments.
type Config struct {
	Cap      int
	Cooldown time.Duration
}

// Condition is one kind's flag for the current cycle.
type Condition struct {
	Kind   model.AlertKind
	Active bool
	Mode   Mode

	// Group links continuous kinds that share a latch.
	Group string
	// RearmOnNeutral clears every latch in the group when no member is active.
	RearmOnNeutral bool
	// SharedCooldown makes an emission by any member start the cooldown for all.
	SharedCooldown bool
}

// KindState is the persisted throttle state of one (instrument, kind).
type KindState struct {
	Count        int       `json:"count"`
	Phase        Phase     `json:"phase"`
	LastEmission time.Time `json:"last_emission,omitempty"`
	Latched      bool      `json:"latched,omitempty"`
	LatchedAt    time.Time `json:"latched_at,omitempty"`
}

// Step advances one kind's state for the current cycle and reports whether
// an alert should be emitted. Group effects (sibling latches, neutral
// re-arm) are applied by the Throttler around Step.
func Step(st KindState, c Condition, now time.Time, cfg Config) (KindState, bool) {
	if !c.Active {
		st.Count = 0
		st.Phase = Idle
		return st, false
	}

	switch c.Mode {
	case Continuous:
		if st.Latched && now.Sub(st.LatchedAt) <= cfg.Cooldown {
			st.Phase = Suppressed
			return st, false
		}
		st.Latched = true
		st.LatchedAt = now
	default:
		if st.Count >= cfg.Cap {
			st.Phase = Suppressed
			return st, false
		}
		// only capped kinds count occurrences
		st.Count++
	}

	st.LastEmission = now
	st.Phase = Armed
	return st, true
}
