package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingServer serves a fixed body and remembers the last request URL.
type recordingServer struct {
	mu     sync.Mutex
	status int
	body   string
	last   *url.URL
}

func (s *recordingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.last = r.URL
	status, body := s.status, s.body
	s.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *recordingServer) lastURL() *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func newMexcServer(t *testing.T, status int, body string) (*MexcFetcher, *recordingServer) {
	t.Helper()
	rs := &recordingServer{status: status, body: body}
	srv := httptest.NewServer(rs)
	t.Cleanup(srv.Close)
	return &MexcFetcher{BaseURL: srv.URL, Client: srv.Client()}, rs
}

func newYahooServer(t *testing.T, body string) (*YahooFetcher, *recordingServer) {
	t.Helper()
	rs := &recordingServer{body: body}
	srv := httptest.NewServer(rs)
	t.Cleanup(srv.Close)
	f := NewYahooFetcher("", time.Second)
	f.BaseURL = srv.URL
	f.Client = srv.Client()
	return f, rs
}

func TestMexcFetcher_FetchBars(t *testing.T) {
	f, rs := newMexcServer(t, 0, `[
		[1735689600000, "0.5000", "0.5200", "0.4900", "0.5100", "1200.5", 1735693199999, "612.3"],
		[1735693200000, "0.5100", "0.5300", "0.5050", "0.5250", "800", 1735696799999, "420.0"]
	]`)

	bars, err := f.FetchBars(context.Background(), "XRP/USDT", "1h", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	q := rs.lastURL()
	assert.Equal(t, "/api/v3/klines", q.Path)
	assert.Equal(t, "60m", q.Query().Get("interval"))
	assert.Equal(t, "XRPUSDT", q.Query().Get("symbol"))
	assert.Equal(t, "2", q.Query().Get("limit"))

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].OpenTime)
	assert.InDelta(t, 0.50, bars[0].Open, 1e-12)
	assert.InDelta(t, 0.52, bars[0].High, 1e-12)
	assert.InDelta(t, 0.49, bars[0].Low, 1e-12)
	assert.InDelta(t, 0.51, bars[0].Close, 1e-12)
	assert.InDelta(t, 1200.5, bars[0].Volume, 1e-9)
	assert.Equal(t, time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC), bars[1].OpenTime)
	require.NoError(t, ValidateBars(bars))
}

func TestMexcFetcher_IntervalPassthrough(t *testing.T) {
	f, rs := newMexcServer(t, 0, `[]`)
	for tf, want := range map[string]string{"5m": "5m", "4h": "4h", "1d": "1d"} {
		_, err := f.FetchBars(context.Background(), "XRPUSDT", tf, 10)
		require.NoError(t, err)
		assert.Equal(t, want, rs.lastURL().Query().Get("interval"), tf)
	}
	_, err := f.FetchBars(context.Background(), "XRPUSDT", "2h", 10)
	assert.Error(t, err)
}

func TestMexcFetcher_Non200(t *testing.T) {
	f, _ := newMexcServer(t, http.StatusTooManyRequests, `{"code":429,"msg":"rate limit"}`)

	_, err := f.FetchBars(context.Background(), "XRPUSDT", "5m", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "rate limit")

	_, err = f.FetchLastPrice(context.Background(), "XRPUSDT")
	assert.ErrorContains(t, err, "status 429")
}

func TestMexcFetcher_UnparseableRowRejected(t *testing.T) {
	f, _ := newMexcServer(t, 0, `[
		[1735689600000, "0.5000", "0.5200", "0.4900", "0.5100", "1200", 1735693199999, "600"],
		[1735689900000, "n/a", "n/a", "n/a", "n/a", "n/a", 1735690199999, "n/a"]
	]`)

	_, err := f.FetchBars(context.Background(), "XRPUSDT", "5m", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")

	c := NewCollector(f, time.Second)
	_, err = c.Collect(context.Background(), "XRPUSDT", "5m", 10)
	require.Error(t, err)
	_, ok := c.LastGood("XRPUSDT", "5m")
	assert.False(t, ok, "a rejected batch must not be cached")
}

func TestMexcFetcher_ZeroRowRejectedByCollector(t *testing.T) {
	f, _ := newMexcServer(t, 0, `[
		[1735689600000, "0.5000", "0.5200", "0.4900", "0.5100", "1200", 1735693199999, "600"],
		[1735689900000, "0", "0", "0", "0", "0", 1735690199999, "0"]
	]`)

	c := NewCollector(f, time.Second)
	_, err := c.Collect(context.Background(), "XRPUSDT", "5m", 10)
	assert.ErrorIs(t, err, ErrMalformedBars)
}

func TestMexcFetcher_FetchLastPrice(t *testing.T) {
	f, rs := newMexcServer(t, 0, `{"symbol":"XRPUSDT","price":"0.5234"}`)

	p, err := f.FetchLastPrice(context.Background(), "xrp-usdt")
	require.NoError(t, err)
	assert.InDelta(t, 0.5234, p, 1e-12)
	assert.Equal(t, "/api/v3/ticker/price", rs.lastURL().Path)
	assert.Equal(t, "XRPUSDT", rs.lastURL().Query().Get("symbol"))
}

// yahooBody renders a chart response; nil entries become JSON null.
func yahooBody(t *testing.T, price float64, ts []int64, open, high, low, closes, volume []interface{}) string {
	t.Helper()
	quote := map[string]interface{}{"open": open, "high": high, "low": low, "close": closes, "volume": volume}
	doc := map[string]interface{}{
		"chart": map[string]interface{}{
			"result": []interface{}{map[string]interface{}{
				"meta":       map[string]interface{}{"regularMarketPrice": price},
				"timestamp":  ts,
				"indicators": map[string]interface{}{"quote": []interface{}{quote}},
			}},
			"error": nil,
		},
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(b)
}

const jan1 = int64(1735689600) // 2025-01-01T00:00:00Z, aligned to 4h

func TestYahooFetcher_SkipsNullBars(t *testing.T) {
	ts := []int64{jan1, jan1 + 300, jan1 + 600}
	body := yahooBody(t, 0.52, ts,
		[]interface{}{0.50, nil, 0.51},
		[]interface{}{0.52, nil, 0.53},
		[]interface{}{0.49, nil, 0.50},
		[]interface{}{0.51, nil, 0.52},
		[]interface{}{100.0, nil, nil},
	)
	f, rs := newYahooServer(t, body)

	bars, err := f.FetchBars(context.Background(), "XRPUSDT", "5m", 10)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "/v8/finance/chart/XRP-USD", rs.lastURL().Path)
	assert.Equal(t, "5m", rs.lastURL().Query().Get("interval"))
	assert.Equal(t, time.Unix(jan1, 0).UTC(), bars[0].OpenTime)
	assert.Equal(t, time.Unix(jan1+600, 0).UTC(), bars[1].OpenTime)
	assert.InDelta(t, 100, bars[0].Volume, 1e-9)
	assert.Zero(t, bars[1].Volume)
	require.NoError(t, ValidateBars(bars))
}

func TestYahooFetcher_FourHourResample(t *testing.T) {
	var ts []int64
	var open, high, low, closes, volume []interface{}
	for i := 0; i < 8; i++ {
		p := 1.0 + float64(i)*0.1
		ts = append(ts, jan1+int64(i)*3600)
		open = append(open, p)
		high = append(high, p+0.05)
		low = append(low, p-0.05)
		closes = append(closes, p+0.02)
		volume = append(volume, 10.0)
	}
	f, rs := newYahooServer(t, yahooBody(t, 1.72, ts, open, high, low, closes, volume))

	bars, err := f.FetchBars(context.Background(), "XRPUSDT", "4h", 10)
	require.NoError(t, err)
	assert.Equal(t, "60m", rs.lastURL().Query().Get("interval"))
	require.Len(t, bars, 2)

	first := bars[0]
	assert.Equal(t, time.Unix(jan1, 0).UTC(), first.OpenTime)
	assert.InDelta(t, 1.0, first.Open, 1e-9)
	assert.InDelta(t, 1.35, first.High, 1e-9)
	assert.InDelta(t, 0.95, first.Low, 1e-9)
	assert.InDelta(t, 1.32, first.Close, 1e-9)
	assert.InDelta(t, 40, first.Volume, 1e-9)
	assert.Equal(t, time.Unix(jan1+4*3600, 0).UTC(), bars[1].OpenTime)
	assert.InDelta(t, 1.72, bars[1].Close, 1e-9)

	bars, err = f.FetchBars(context.Background(), "XRPUSDT", "4h", 1)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, time.Unix(jan1+4*3600, 0).UTC(), bars[0].OpenTime)
}

func TestYahooFetcher_FetchLastPrice(t *testing.T) {
	f, rs := newYahooServer(t, yahooBody(t, 0.5234, []int64{jan1},
		[]interface{}{0.5}, []interface{}{0.6}, []interface{}{0.4}, []interface{}{0.55}, []interface{}{1.0}))

	p, err := f.FetchLastPrice(context.Background(), "XRPUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 0.5234, p, 1e-12)
	assert.Equal(t, "1m", rs.lastURL().Query().Get("interval"))

	f, _ = newYahooServer(t, yahooBody(t, 0, []int64{jan1},
		[]interface{}{0.5}, []interface{}{0.6}, []interface{}{0.4}, []interface{}{0.55}, []interface{}{1.0}))
	_, err = f.FetchLastPrice(context.Background(), "XRPUSDT")
	assert.ErrorContains(t, err, "no price data")
}

func TestYahooFetcher_APIError(t *testing.T) {
	f, _ := newYahooServer(t, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)

	_, err := f.FetchBars(context.Background(), "XRPUSDT", "5m", 10)
	assert.ErrorContains(t, err, "delisted")
}
