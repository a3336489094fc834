package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"DivergenceSentinel/internal/calculator"
	"DivergenceSentinel/internal/collector"
	"DivergenceSentinel/internal/model"
	"DivergenceSentinel/internal/strategy"
	"DivergenceSentinel/internal/throttle"
)

// Config holds all application configuration.
type Config struct {
	Symbols      []string `yaml:"symbols"`
	Timeframe    string   `yaml:"timeframe"`
	PollInterval string   `yaml:"poll_interval"` // empty: one bar of the timeframe

	DataSource struct {
		Provider     string        `yaml:"provider"` // binance | mexc | yahoo | mock
		Market       string        `yaml:"market"`   // spot | futures, binance only
		BaseURL      string        `yaml:"base_url"`
		APIKey       string        `yaml:"api_key"`
		SecretKey    string        `yaml:"secret_key"`
		FetchTimeout time.Duration `yaml:"fetch_timeout"`
		HistoryLimit int           `yaml:"history_limit"`
	} `yaml:"data_source"`

	Strategy struct {
		Period      int    `yaml:"rsi_period"`
		PivotLeft   int    `yaml:"pivot_left"`
		PivotRight  int    `yaml:"pivot_right"`
		MinDistance int    `yaml:"min_distance"`
		MaxDistance int    `yaml:"max_distance"`
		PriceSource string `yaml:"price_source"` // wick | close
		ATRLength   int    `yaml:"atr_length"`
		Divergences struct {
			RegularBullish bool `yaml:"regular_bullish"`
			HiddenBullish  bool `yaml:"hidden_bullish"`
			RegularBearish bool `yaml:"regular_bearish"`
			HiddenBearish  bool `yaml:"hidden_bearish"`
		} `yaml:"divergences"`
		Threshold struct {
			Enabled    bool    `yaml:"enabled"`
			Overbought float64 `yaml:"overbought"`
			Oversold   float64 `yaml:"oversold"`
		} `yaml:"threshold"`
		Crossover struct {
			Enabled      bool    `yaml:"enabled"`
			MALength     int     `yaml:"ma_length"`
			MAType       string  `yaml:"ma_type"`
			TPMultiplier float64 `yaml:"tp_multiplier"`
			SLMultiplier float64 `yaml:"sl_multiplier"`
		} `yaml:"crossover"`
	} `yaml:"strategy"`

	Throttle struct {
		MaxOccurrences int           `yaml:"max_occurrences"`
		Cooldown       time.Duration `yaml:"cooldown"`
		StateFile      string        `yaml:"state_file"`
	} `yaml:"throttle"`

	Schedule struct {
		RetryBackoff   time.Duration `yaml:"retry_backoff"`
		MaxBackoff     time.Duration `yaml:"max_backoff"`
		PriceCron      string        `yaml:"price_cron"`
		DashboardCron  string        `yaml:"dashboard_cron"`
		CheckpointCron string        `yaml:"checkpoint_cron"`
	} `yaml:"schedule"`

	Sinks struct {
		Console struct {
			Enabled bool `yaml:"enabled"`
			Bell    bool `yaml:"bell"`
		} `yaml:"console"`
		File struct {
			Path string `yaml:"path"`
		} `yaml:"file"`
		Telegram struct {
			BotToken   string `yaml:"bot_token"`
			ChatID     string `yaml:"chat_id"`
			MaxRetries int    `yaml:"max_retries"`
		} `yaml:"telegram"`
	} `yaml:"sinks"`

	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"` // empty disables the HTTP server
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Target is one instrument-timeframe pair with its resolved poll interval.
type Target struct {
	Symbol       string
	Timeframe    string
	PollInterval time.Duration
}

// Default returns the configuration used for any key the file leaves out.
func Default() *Config {
	cfg := &Config{}
	sc := strategy.DefaultConfig()

	cfg.Symbols = []string{"XRPUSDT"}
	cfg.Timeframe = "5m"
	cfg.DataSource.Provider = "binance"
	cfg.DataSource.Market = string(collector.BinanceFutures)
	cfg.DataSource.FetchTimeout = 15 * time.Second
	cfg.DataSource.HistoryLimit = 100

	cfg.Strategy.Period = sc.Period
	cfg.Strategy.PivotLeft = sc.LookbackLeft
	cfg.Strategy.PivotRight = sc.LookbackRight
	cfg.Strategy.MinDistance = sc.Distance.Min
	cfg.Strategy.MaxDistance = sc.Distance.Max
	cfg.Strategy.PriceSource = string(sc.PriceSource)
	cfg.Strategy.ATRLength = sc.ATRLength
	cfg.Strategy.Divergences.RegularBullish = sc.Enabled.RegularBullish
	cfg.Strategy.Divergences.HiddenBullish = sc.Enabled.HiddenBullish
	cfg.Strategy.Divergences.RegularBearish = sc.Enabled.RegularBearish
	cfg.Strategy.Divergences.HiddenBearish = sc.Enabled.HiddenBearish
	cfg.Strategy.Threshold.Overbought = sc.Threshold.Overbought
	cfg.Strategy.Threshold.Oversold = sc.Threshold.Oversold
	cfg.Strategy.Crossover.MALength = sc.Crossover.MALength
	cfg.Strategy.Crossover.MAType = string(sc.Crossover.MAType)
	cfg.Strategy.Crossover.TPMultiplier = sc.Crossover.TPMultiplier
	cfg.Strategy.Crossover.SLMultiplier = sc.Crossover.SLMultiplier

	cfg.Throttle.MaxOccurrences = 3
	cfg.Throttle.Cooldown = 5 * time.Minute
	cfg.Throttle.StateFile = "data/throttle_state.json"

	cfg.Schedule.RetryBackoff = time.Minute
	cfg.Schedule.MaxBackoff = 15 * time.Minute
	cfg.Schedule.PriceCron = "@every 5s"
	cfg.Schedule.DashboardCron = "@every 5s"
	cfg.Schedule.CheckpointCron = "@every 1m"

	cfg.Sinks.Console.Enabled = true
	cfg.Sinks.File.Path = "data/divergence_log.txt"
	cfg.Sinks.Telegram.MaxRetries = 3

	cfg.Database.SQLitePath = "data/divergence_sentinel.db"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Symbols = splitList(v)
	}
	if v := os.Getenv("TIMEFRAME"); v != "" {
		cfg.Timeframe = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" {
		cfg.DataSource.SecretKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Sinks.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Sinks.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MAX_OCCURRENCES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Throttle.MaxOccurrences = n
		}
	}

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks that the configuration can start a monitor. All problems
// are reported together.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Symbols) == 0 {
		errs = append(errs, errors.New("at least one symbol is required"))
	}
	if _, err := collector.TimeframeDuration(c.Timeframe); err != nil {
		errs = append(errs, err)
	}
	if c.PollInterval != "" {
		if d, err := time.ParseDuration(c.PollInterval); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("poll_interval %q must be a positive duration", c.PollInterval))
		}
	}
	switch c.DataSource.Provider {
	case "binance":
		switch collector.BinanceMarket(c.DataSource.Market) {
		case collector.BinanceSpot, collector.BinanceFutures:
		default:
			errs = append(errs, fmt.Errorf("data_source.market %q must be spot or futures", c.DataSource.Market))
		}
	case "mexc", "yahoo", "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider))
	}
	if c.DataSource.FetchTimeout <= 0 {
		errs = append(errs, errors.New("data_source.fetch_timeout must be positive"))
	}
	if sc, err := c.StrategyConfig(); err != nil {
		errs = append(errs, err)
	} else if err := sc.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("strategy: %w", err))
	}
	if c.Throttle.MaxOccurrences < 1 {
		errs = append(errs, errors.New("throttle.max_occurrences must be >= 1"))
	}
	if c.Throttle.Cooldown < 0 {
		errs = append(errs, errors.New("throttle.cooldown must not be negative"))
	}
	if c.Schedule.RetryBackoff <= 0 || c.Schedule.MaxBackoff < c.Schedule.RetryBackoff {
		errs = append(errs, errors.New("schedule.max_backoff must be >= retry_backoff > 0"))
	}
	tg := c.Sinks.Telegram
	if tg.BotToken != "" {
		if _, err := strconv.ParseInt(tg.ChatID, 10, 64); err != nil {
			errs = append(errs, errors.New("sinks.telegram.chat_id must be numeric when a bot token is set"))
		}
	}
	return errors.Join(errs...)
}

// StrategyConfig converts the strategy section to detection parameters.
func (c *Config) StrategyConfig() (strategy.Config, error) {
	s := c.Strategy
	maType, err := calculator.ParseMAType(s.Crossover.MAType)
	if err != nil {
		return strategy.Config{}, err
	}
	return strategy.Config{
		Period:        s.Period,
		LookbackLeft:  s.PivotLeft,
		LookbackRight: s.PivotRight,
		Distance:      strategy.DistanceRange{Min: s.MinDistance, Max: s.MaxDistance},
		Enabled: model.DivergenceFlags{
			RegularBullish: s.Divergences.RegularBullish,
			HiddenBullish:  s.Divergences.HiddenBullish,
			RegularBearish: s.Divergences.RegularBearish,
			HiddenBearish:  s.Divergences.HiddenBearish,
		},
		PriceSource: strategy.PriceSource(s.PriceSource),
		ATRLength:   s.ATRLength,
		Threshold: strategy.ThresholdConfig{
			Enabled:    s.Threshold.Enabled,
			Overbought: s.Threshold.Overbought,
			Oversold:   s.Threshold.Oversold,
		},
		Crossover: strategy.CrossoverConfig{
			Enabled:      s.Crossover.Enabled,
			MALength:     s.Crossover.MALength,
			MAType:       maType,
			TPMultiplier: s.Crossover.TPMultiplier,
			SLMultiplier: s.Crossover.SLMultiplier,
		},
	}, nil
}

// ThrottleConfig converts the throttle section.
func (c *Config) ThrottleConfig() throttle.Config {
	return throttle.Config{Cap: c.Throttle.MaxOccurrences, Cooldown: c.Throttle.Cooldown}
}

// Targets expands the symbol list into monitored pairs. The poll interval
// defaults to one bar of the timeframe.
func (c *Config) Targets() []Target {
	poll, _ := collector.TimeframeDuration(c.Timeframe)
	if d, err := time.ParseDuration(c.PollInterval); err == nil && d > 0 {
		poll = d
	}
	out := make([]Target, 0, len(c.Symbols))
	for _, sym := range c.Symbols {
		out = append(out, Target{Symbol: strings.ToUpper(sym), Timeframe: c.Timeframe, PollInterval: poll})
	}
	return out
}
