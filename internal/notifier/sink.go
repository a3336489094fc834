package notifier

import (
	"context"

	"DivergenceSentinel/internal/logger"
	"DivergenceSentinel/internal/model"
)

// Sink receives alert events. Errors are reported but never stop monitoring.
type Sink interface {
	Name() string
	Notify(ctx context.Context, ev model.AlertEvent) error
}

// Multi fans an event out to every sink.
type Multi struct {
	sinks     []Sink
	OnFailure func(sink string, err error)
}

// NewMulti creates a fan-out over sinks.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Add appends a sink.
func (m *Multi) Add(s Sink) { m.sinks = append(m.sinks, s) }

// Names lists the configured sinks.
func (m *Multi) Names() []string {
	out := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		out[i] = s.Name()
	}
	return out
}

// Publish delivers ev to every sink and returns how many accepted it.
// Failures are logged and passed to OnFailure.
func (m *Multi) Publish(ctx context.Context, ev model.AlertEvent) int {
	delivered := 0
	for _, s := range m.sinks {
		if err := s.Notify(ctx, ev); err != nil {
			logger.Warn("sink %s failed for %s %s: %v", s.Name(), ev.Instrument, ev.Kind, err)
			if m.OnFailure != nil {
				m.OnFailure(s.Name(), err)
			}
			continue
		}
		delivered++
	}
	return delivered
}
