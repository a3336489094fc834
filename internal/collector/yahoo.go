package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"DivergenceSentinel/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	return &YahooFetcher{
		BaseURL:   yahooBaseURL,
		Client:    newHTTPClient(proxyURL, timeout),
		SymbolMap: map[string]string{
			"BTCUSDT": "BTC-USD",
			"ETHUSDT": "ETH-USD",
			"XRPUSDT": "XRP-USD",
			"SOLUSDT": "SOL-USD",
			"SPX500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// yahooQuery picks the chart interval/range for a timeframe. Yahoo has no
// 4h interval, so 4h bars are resampled from hourly data.
func yahooQuery(timeframe string) (interval, rng string, resample time.Duration, err error) {
	switch strings.ToLower(timeframe) {
	case "1m":
		return "1m", "5d", 0, nil
	case "5m", "15m", "30m":
		return strings.ToLower(timeframe), "1mo", 0, nil
	case "1h":
		return "60m", "3mo", 0, nil
	case "4h":
		return "60m", "6mo", 4 * time.Hour, nil
	case "1d":
		return "1d", "2y", 0, nil
	default:
		return "", "", 0, fmt.Errorf("yahoo: unsupported timeframe %q", timeframe)
	}
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval, rng string) (*yahooChart, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		strings.TrimRight(f.BaseURL, "/"), url.PathEscape(f.yahooSymbol(symbol)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}
	return &chart, nil
}

func (f *YahooFetcher) FetchBars(ctx context.Context, symbol, timeframe string, limit int) ([]model.Bar, error) {
	interval, rng, resample, err := yahooQuery(timeframe)
	if err != nil {
		return nil, err
	}
	chart, err := f.fetchChart(ctx, symbol, interval, rng)
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no bars for %s", symbol)
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		raw := []interface{}{at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)}
		if raw[0] == nil || raw[1] == nil || raw[2] == nil || raw[3] == nil {
			continue // null bar
		}
		var ohlc [4]float64
		for j, v := range raw {
			x, err := parseNumber(v)
			if err != nil {
				return nil, fmt.Errorf("yahoo %s bar %d: %w", symbol, i, err)
			}
			ohlc[j] = x
		}
		var vol float64
		if v := at(quote.Volume, i); v != nil {
			if vol, err = parseNumber(v); err != nil {
				return nil, fmt.Errorf("yahoo %s bar %d volume: %w", symbol, i, err)
			}
		}
		bars = append(bars, model.Bar{
			OpenTime: time.Unix(ts, 0).UTC(),
			Open:     ohlc[0],
			High:     ohlc[1],
			Low:      ohlc[2],
			Close:    ohlc[3],
			Volume:   vol,
		})
	}
	if resample > 0 {
		bars = aggregateBars(bars, resample)
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

func (f *YahooFetcher) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	chart, err := f.fetchChart(ctx, symbol, "1m", "1d")
	if err != nil {
		return 0, err
	}
	if p := chart.Chart.Result[0].Meta.RegularMarketPrice; p > 0 {
		return p, nil
	}
	return 0, fmt.Errorf("yahoo: no price data for %s", symbol)
}

func at(xs []interface{}, i int) interface{} {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}
