package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"

	"DivergenceSentinel/internal/model"
)

// BinanceMarket selects the Binance venue.
type BinanceMarket string

const (
	BinanceSpot    BinanceMarket = "spot"
	BinanceFutures BinanceMarket = "futures"
)

// BinanceOptions configures a BinanceFetcher. Keys are optional for market data.
type BinanceOptions struct {
	APIKey    string
	SecretKey string
	Market    BinanceMarket
	ProxyURL  string
	Timeout   time.Duration
}

// BinanceFetcher implements Fetcher on the Binance spot or USDT-M futures REST API.
type BinanceFetcher struct {
	market  BinanceMarket
	spot    *binance.Client
	futures *futures.Client
}

// NewBinanceFetcher creates a fetcher for the configured market.
func NewBinanceFetcher(opts BinanceOptions) (*BinanceFetcher, error) {
	f := &BinanceFetcher{market: opts.Market}
	httpClient := newHTTPClient(opts.ProxyURL, opts.Timeout)
	switch opts.Market {
	case BinanceSpot, "":
		f.market = BinanceSpot
		f.spot = binance.NewClient(opts.APIKey, opts.SecretKey)
		f.spot.HTTPClient = httpClient
	case BinanceFutures:
		f.futures = binance.NewFuturesClient(opts.APIKey, opts.SecretKey)
		f.futures.HTTPClient = httpClient
	default:
		return nil, fmt.Errorf("unknown binance market %q", opts.Market)
	}
	return f, nil
}

func (f *BinanceFetcher) Name() string { return "binance-" + string(f.market) }

func binanceSymbol(symbol string) string {
	return strings.ToUpper(strings.NewReplacer("/", "", "-", "", ":USDT", "").Replace(symbol))
}

func (f *BinanceFetcher) FetchBars(ctx context.Context, symbol, timeframe string, limit int) ([]model.Bar, error) {
	sym := binanceSymbol(symbol)
	interval := strings.ToLower(timeframe)
	if f.market == BinanceFutures {
		klines, err := f.futures.NewKlinesService().Symbol(sym).Interval(interval).Limit(limit).Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("binance futures klines %s %s: %w", sym, interval, err)
		}
		bars := make([]model.Bar, 0, len(klines))
		for _, k := range klines {
			b, err := parseKline(k.OpenTime, k.Open, k.High, k.Low, k.Close, k.Volume)
			if err != nil {
				return nil, fmt.Errorf("binance futures klines %s: %w", sym, err)
			}
			bars = append(bars, b)
		}
		return bars, nil
	}

	klines, err := f.spot.NewKlinesService().Symbol(sym).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", sym, interval, err)
	}
	bars := make([]model.Bar, 0, len(klines))
	for _, k := range klines {
		b, err := parseKline(k.OpenTime, k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s: %w", sym, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func (f *BinanceFetcher) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	sym := binanceSymbol(symbol)
	var raw string
	if f.market == BinanceFutures {
		prices, err := f.futures.NewListPricesService().Symbol(sym).Do(ctx)
		if err != nil {
			return 0, fmt.Errorf("binance futures price %s: %w", sym, err)
		}
		if len(prices) == 0 {
			return 0, fmt.Errorf("binance futures price %s: empty response", sym)
		}
		raw = prices[0].Price
	} else {
		prices, err := f.spot.NewListPricesService().Symbol(sym).Do(ctx)
		if err != nil {
			return 0, fmt.Errorf("binance price %s: %w", sym, err)
		}
		if len(prices) == 0 {
			return 0, fmt.Errorf("binance price %s: empty response", sym)
		}
		raw = prices[0].Price
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("binance price %s: parse %q: %w", sym, raw, err)
	}
	return p, nil
}

func parseKline(openTime int64, o, h, l, c, v string) (model.Bar, error) {
	var b model.Bar
	b.OpenTime = time.UnixMilli(openTime).UTC()
	fields := []struct {
		dst *float64
		raw string
	}{
		{&b.Open, o}, {&b.High, h}, {&b.Low, l}, {&b.Close, c}, {&b.Volume, v},
	}
	for _, fd := range fields {
		x, err := strconv.ParseFloat(fd.raw, 64)
		if err != nil {
			return model.Bar{}, fmt.Errorf("parse %q: %w", fd.raw, err)
		}
		*fd.dst = x
	}
	return b, nil
}
