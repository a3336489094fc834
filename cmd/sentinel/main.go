package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"DivergenceSentinel/internal/collector"
	"DivergenceSentinel/internal/config"
	"DivergenceSentinel/internal/logger"
	"DivergenceSentinel/internal/metrics"
	"DivergenceSentinel/internal/notifier"
	"DivergenceSentinel/internal/recorder"
	"DivergenceSentinel/internal/scheduler"
	"DivergenceSentinel/internal/server"
	"DivergenceSentinel/internal/strategy"
	"DivergenceSentinel/internal/throttle"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("load config: %v", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("config validation: %v", err)
	}
	logger.Info("DivergenceSentinel starting...")

	// Init fetcher
	fetcher, err := newFetcher(cfg)
	if err != nil {
		logger.Fatal("init fetcher: %v", err)
	}
	logger.Info("data source: %s", fetcher.Name())
	col := collector.NewCollector(fetcher, cfg.DataSource.FetchTimeout)

	// Init detection engine and throttle
	sc, err := cfg.StrategyConfig()
	if err != nil {
		logger.Fatal("strategy config: %v", err)
	}
	eng, err := strategy.NewEngine(sc)
	if err != nil {
		logger.Fatal("init engine: %v", err)
	}
	th := throttle.New(cfg.ThrottleConfig())
	if cfg.Throttle.StateFile != "" {
		snap, err := throttle.LoadState(cfg.Throttle.StateFile)
		if err != nil {
			logger.Warn("load throttle state, starting fresh: %v", err)
		} else {
			th.Restore(snap)
			logger.Info("throttle state restored for %d instrument(s)", len(snap))
		}
	}

	// Init sinks
	sinks := notifier.NewMulti()
	if cfg.Sinks.Console.Enabled {
		sinks.Add(notifier.NewConsoleSink(os.Stdout, cfg.Sinks.Console.Bell))
	}
	if cfg.Sinks.File.Path != "" {
		fs, err := notifier.NewFileSink(cfg.Sinks.File.Path)
		if err != nil {
			logger.Fatal("init alert log: %v", err)
		}
		sinks.Add(fs)
	}
	var tn *notifier.TelegramNotifier
	if tg := cfg.Sinks.Telegram; tg.BotToken != "" {
		tn, err = notifier.NewTelegramNotifier(tg.BotToken, tg.ChatID, cfg.Proxy, tg.MaxRetries)
		if err != nil {
			logger.Fatal("init telegram: %v", err)
		}
		sinks.Add(tn)
	}
	logger.Info("alert sinks: %v", sinks.Names())

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	m := metrics.New()

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init scheduler
	var instruments []scheduler.Instrument
	for _, t := range cfg.Targets() {
		instruments = append(instruments, scheduler.Instrument{Symbol: t.Symbol, Timeframe: t.Timeframe, PollInterval: t.PollInterval})
	}
	opts := scheduler.Options{
		Instruments:    instruments,
		HistoryLimit:   cfg.DataSource.HistoryLimit,
		RetryBackoff:   cfg.Schedule.RetryBackoff,
		MaxBackoff:     cfg.Schedule.MaxBackoff,
		PriceCron:      cfg.Schedule.PriceCron,
		CheckpointCron: cfg.Schedule.CheckpointCron,
		ThrottleFile:   cfg.Throttle.StateFile,
		DashboardOut:   os.Stdout,
	}
	if cfg.Sinks.Console.Enabled {
		opts.DashboardCron = cfg.Schedule.DashboardCron
	}
	sched := scheduler.NewScheduler(ctx, opts, col, eng, th, sinks, rec, m)
	if tn != nil {
		sched.Announcer = tn
	}
	if err := sched.RegisterAll(); err != nil {
		logger.Fatal("register cron tasks: %v", err)
	}

	// Start Telegram polling
	if tn != nil {
		tn.ListenForCommands(ctx, sched.HandleCommand)
		logger.Info("Telegram polling started")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	if cfg.Server.Addr != "" {
		srv := server.New(cfg.Server.Addr, sched.Board, m.Handler())
		g.Go(func() error { return srv.Run(gctx) })
	}

	logger.Info("DivergenceSentinel is running: %d instrument(s) on %s. Press Ctrl+C to stop.", len(instruments), cfg.Timeframe)
	if err := g.Wait(); err != nil {
		logger.Error("stopped with error: %v", err)
	}
	logger.Info("DivergenceSentinel stopped")
}

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	ds := cfg.DataSource
	switch ds.Provider {
	case "mexc":
		return collector.NewMexcFetcher(ds.BaseURL, cfg.Proxy, ds.FetchTimeout), nil
	case "yahoo":
		return collector.NewYahooFetcher(cfg.Proxy, ds.FetchTimeout), nil
	case "mock":
		return &collector.MockFetcher{}, nil
	default:
		return collector.NewBinanceFetcher(collector.BinanceOptions{
			APIKey:    ds.APIKey,
			SecretKey: ds.SecretKey,
			Market:    collector.BinanceMarket(ds.Market),
			ProxyURL:  cfg.Proxy,
			Timeout:   ds.FetchTimeout,
		})
	}
}
