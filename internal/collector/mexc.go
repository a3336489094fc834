package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"DivergenceSentinel/internal/model"
)

const mexcBaseURL = "https://api.mexc.com"

// MexcFetcher implements Fetcher using the MEXC spot REST API.
type MexcFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewMexcFetcher creates a new fetcher with optional proxy support.
func NewMexcFetcher(baseURL, proxyURL string, timeout time.Duration) *MexcFetcher {
	if baseURL == "" {
		baseURL = mexcBaseURL
	}
	return &MexcFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  newHTTPClient(proxyURL, timeout),
	}
}

func (f *MexcFetcher) Name() string { return "mexc" }

// mexcInterval maps timeframes to MEXC kline intervals; hours use minutes below 4h.
func mexcInterval(timeframe string) (string, error) {
	switch strings.ToLower(timeframe) {
	case "1m", "5m", "15m", "30m", "4h":
		return strings.ToLower(timeframe), nil
	case "1h":
		return "60m", nil
	case "1d":
		return "1d", nil
	default:
		return "", fmt.Errorf("mexc: unsupported timeframe %q", timeframe)
	}
}

func (f *MexcFetcher) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	endpoint := f.BaseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("mexc %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mexc %s: status %d, body: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mexc %s: decode: %w", path, err)
	}
	return nil
}

func (f *MexcFetcher) FetchBars(ctx context.Context, symbol, timeframe string, limit int) ([]model.Bar, error) {
	interval, err := mexcInterval(timeframe)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("symbol", binanceSymbol(symbol))
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	// [openTime, open, high, low, close, volume, closeTime, quoteVolume]
	var rows [][]interface{}
	if err := f.get(ctx, "/api/v3/klines", q, &rows); err != nil {
		return nil, err
	}
	bars := make([]model.Bar, 0, len(rows))
	for i, r := range rows {
		if len(r) < 6 {
			return nil, fmt.Errorf("mexc klines: row %d: short row of %d fields", i, len(r))
		}
		var vals [6]float64
		for j := range vals {
			v, err := parseNumber(r[j])
			if err != nil {
				return nil, fmt.Errorf("mexc klines: row %d field %d: %w", i, j, err)
			}
			vals[j] = v
		}
		bars = append(bars, model.Bar{
			OpenTime: time.UnixMilli(int64(vals[0])).UTC(),
			Open:     vals[1],
			High:     vals[2],
			Low:      vals[3],
			Close:    vals[4],
			Volume:   vals[5],
		})
	}
	return bars, nil
}

func (f *MexcFetcher) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", binanceSymbol(symbol))
	var result struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := f.get(ctx, "/api/v3/ticker/price", q, &result); err != nil {
		return 0, err
	}
	p, err := strconv.ParseFloat(result.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("mexc price %s: parse %q: %w", symbol, result.Price, err)
	}
	return p, nil
}
