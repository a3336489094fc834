package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"DivergenceSentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
// FetchBars returns up to limit bars in ascending OpenTime order.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol, timeframe string, limit int) ([]model.Bar, error)
	FetchLastPrice(ctx context.Context, symbol string) (float64, error)
	Name() string
}

// TimeframeDuration maps a timeframe label to its bar duration.
func TimeframeDuration(timeframe string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(timeframe)) {
	case "1m":
		return time.Minute, nil
	case "3m":
		return 3 * time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "2h":
		return 2 * time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// aggregateBars merges bars into buckets of the given duration aligned to
// the Unix epoch. Bars must be in ascending order.
func aggregateBars(bars []model.Bar, bucket time.Duration) []model.Bar {
	if len(bars) == 0 {
		return nil
	}
	var out []model.Bar
	var cur model.Bar
	var started bool
	for _, b := range bars {
		start := b.OpenTime.Truncate(bucket)
		if !started || !start.Equal(cur.OpenTime) {
			if started {
				out = append(out, cur)
			}
			cur = model.Bar{OpenTime: start, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
			started = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	return append(out, cur)
}

// parseNumber accepts the JSON number or numeric string shapes exchanges return.
func parseNumber(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", n, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unexpected value %v of type %T", v, v)
	}
}
