package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DivergenceSentinel/internal/metrics"
	"DivergenceSentinel/internal/model"
)

type stubBoard struct {
	statuses []model.InstrumentStatus
	alerts   []model.AlertEvent
}

func (b *stubBoard) Statuses() []model.InstrumentStatus { return b.statuses }

func (b *stubBoard) Status(key string) (model.InstrumentStatus, bool) {
	for _, s := range b.statuses {
		if s.Key == key {
			return s, true
		}
	}
	return model.InstrumentStatus{}, false
}

func (b *stubBoard) Recent(n int) []model.AlertEvent {
	if n > len(b.alerts) {
		n = len(b.alerts)
	}
	return b.alerts[:n]
}

func newTestServer() *Server {
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	board := &stubBoard{
		statuses: []model.InstrumentStatus{
			{Key: "XRPUSDT@5m", Symbol: "XRPUSDT", Timeframe: "5m", LastClose: 0.52, Oscillator: 27.5, Zone: model.ZoneOversold},
		},
		alerts: []model.AlertEvent{
			{ID: "b", Timestamp: at.Add(time.Minute), Instrument: "XRPUSDT", Kind: model.KindOversold},
			{ID: "a", Timestamp: at, Instrument: "XRPUSDT", Kind: model.KindRegularBullish},
		},
	}
	m := metrics.New()
	m.AlertsTotal.WithLabelValues("XRPUSDT@5m", string(model.KindOversold)).Inc()
	return New("", board, m.Handler())
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	w := get(t, newTestServer(), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStatuses(t *testing.T) {
	w := get(t, newTestServer(), "/status")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Instruments []model.InstrumentStatus `json:"instruments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Instruments, 1)
	assert.Equal(t, "XRPUSDT@5m", body.Instruments[0].Key)
	assert.Equal(t, model.ZoneOversold, body.Instruments[0].Zone)
}

func TestStatusByKey(t *testing.T) {
	s := newTestServer()
	assert.Equal(t, http.StatusOK, get(t, s, "/status/XRPUSDT@5m").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/status/BTCUSDT@1h").Code)
}

func TestAlertsLimit(t *testing.T) {
	s := newTestServer()

	w := get(t, s, "/alerts?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Alerts []model.AlertEvent `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Alerts, 1)
	assert.Equal(t, "b", body.Alerts[0].ID)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/alerts?limit=zero").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/alerts?limit=-3").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	w := get(t, newTestServer(), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `sentinel_alerts_total{instrument="XRPUSDT@5m",kind="oversold"} 1`)
}

func TestRun_BindFailureDoesNotFail(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := New(ln.Addr().String(), &stubBoard{}, metrics.New().Handler())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.NoError(t, ctx.Err(), "Run should return on bind failure, not on cancellation")
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after bind failure")
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	s := New("127.0.0.1:0", &stubBoard{}, metrics.New().Handler())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
