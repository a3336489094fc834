package recorder

import "DivergenceSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAlert(_ *model.AlertEvent) error          { return nil }
func (n *NoopRecorder) RecordCycle(_ *CycleRecord) error               { return nil }
func (n *NoopRecorder) RecentAlerts(_ int) ([]model.AlertEvent, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                   { return nil }
