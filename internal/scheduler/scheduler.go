package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"DivergenceSentinel/internal/collector"
	"DivergenceSentinel/internal/logger"
	"DivergenceSentinel/internal/metrics"
	"DivergenceSentinel/internal/model"
	"DivergenceSentinel/internal/notifier"
	"DivergenceSentinel/internal/recorder"
	"DivergenceSentinel/internal/strategy"
	"DivergenceSentinel/internal/throttle"
)

// Instrument is one monitored instrument-timeframe pair.
type Instrument struct {
	Symbol       string
	Timeframe    string
	PollInterval time.Duration
}

// Key identifies the instrument in throttle state, metrics and the board.
func (i Instrument) Key() string { return model.InstrumentKey(i.Symbol, i.Timeframe) }

// Options tunes worker cadence and the periodic jobs. Empty cron specs disable a job.
type Options struct {
	Instruments    []Instrument
	HistoryLimit   int
	RetryBackoff   time.Duration
	MaxBackoff     time.Duration
	PriceCron      string
	DashboardCron  string
	CheckpointCron string
	ThrottleFile   string
	RecentAlerts   int
	DashboardOut   io.Writer
}

// Announcer delivers operational notices such as failure and recovery.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// Scheduler runs one evaluation worker per instrument plus cron jobs.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Engine    *strategy.Engine
	Throttler *throttle.Throttler
	Sinks     *notifier.Multi
	Recorder  recorder.Recorder
	Metrics   *metrics.Metrics
	Board     *Board
	Announcer Announcer
	Ctx       context.Context

	opts Options
	now  func() time.Time
}

// NewScheduler creates a new Scheduler. ctx bounds the cron jobs.
func NewScheduler(ctx context.Context, opts Options, col *collector.Collector, eng *strategy.Engine,
	th *throttle.Throttler, sinks *notifier.Multi, rec recorder.Recorder, m *metrics.Metrics) *Scheduler {
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Minute
	}
	if opts.MaxBackoff < opts.RetryBackoff {
		opts.MaxBackoff = opts.RetryBackoff
	}
	if opts.DashboardOut == nil {
		opts.DashboardOut = os.Stdout
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if m == nil {
		m = metrics.New()
	}
	if sinks == nil {
		sinks = notifier.NewMulti()
	}
	sinks.OnFailure = func(sink string, _ error) { m.SinkFailures.WithLabelValues(sink).Inc() }

	cronLog := cron.PrintfLogger(logger.Printer(logger.DebugLevel))
	s := &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		Collector: col,
		Engine:    eng,
		Throttler: th,
		Sinks:     sinks,
		Recorder:  rec,
		Metrics:   m,
		Board:     NewBoard(opts.RecentAlerts),
		Ctx:       ctx,
		opts:      opts,
		now:       time.Now,
	}
	for _, inst := range opts.Instruments {
		s.Board.Register(inst.Symbol, inst.Timeframe)
	}
	if recent, err := rec.RecentAlerts(s.Board.keep); err != nil {
		logger.Warn("load recent alerts: %v", err)
	} else {
		s.Board.AddAlerts(recent...)
	}
	return s
}

// RegisterAll registers the price refresher, dashboard and checkpoint jobs.
func (s *Scheduler) RegisterAll() error {
	if s.opts.PriceCron != "" {
		if _, err := s.Cron.AddFunc(s.opts.PriceCron, s.refreshPrices); err != nil {
			return fmt.Errorf("register price refresher: %w", err)
		}
	}
	if s.opts.DashboardCron != "" {
		if _, err := s.Cron.AddFunc(s.opts.DashboardCron, s.renderDashboard); err != nil {
			return fmt.Errorf("register dashboard: %w", err)
		}
	}
	if s.opts.CheckpointCron != "" && s.opts.ThrottleFile != "" {
		if _, err := s.Cron.AddFunc(s.opts.CheckpointCron, s.checkpoint); err != nil {
			return fmt.Errorf("register throttle checkpoint: %w", err)
		}
	}
	return nil
}

// Run starts cron and the workers and blocks until ctx is cancelled.
// Cron jobs in flight are awaited and the throttle state is checkpointed
// before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Cron.Start()
	logger.Info("scheduler started: %d instrument(s)", len(s.opts.Instruments))

	g, gctx := errgroup.WithContext(ctx)
	for _, inst := range s.opts.Instruments {
		inst := inst
		g.Go(func() error {
			s.runWorker(gctx, inst)
			return nil
		})
	}
	err := g.Wait()

	<-s.Cron.Stop().Done()
	s.checkpoint()
	logger.Info("scheduler stopped")
	return err
}

// RunCycle performs one fetch → evaluate → throttle → publish pass and
// returns the emitted events.
func (s *Scheduler) RunCycle(ctx context.Context, inst Instrument) ([]model.AlertEvent, error) {
	key := inst.Key()
	started := s.now()
	cfg := s.Engine.Config()

	h, err := s.Collector.Collect(ctx, inst.Symbol, inst.Timeframe, cfg.FetchLimit(s.opts.HistoryLimit))
	if err != nil {
		reason := "provider"
		if errors.Is(err, collector.ErrMalformedBars) {
			reason = "malformed"
		}
		s.Metrics.FetchErrors.WithLabelValues(key, reason).Inc()
		return nil, err
	}

	ev, err := s.Engine.Evaluate(h)
	if err != nil {
		return nil, err
	}

	now := s.now()
	emissions := s.Throttler.Process(key, now, s.Engine.Conditions(ev))
	events := make([]model.AlertEvent, 0, len(emissions))
	for _, em := range emissions {
		alert := model.AlertEvent{
			ID:             uuid.NewString(),
			Timestamp:      now,
			Instrument:     inst.Symbol,
			Timeframe:      inst.Timeframe,
			Kind:           em.Kind,
			ReferencePrice: ev.Close,
			Oscillator:     ev.Last(),
			Occurrence:     em.Occurrence,
			Cap:            em.Cap,
			Levels:         s.Engine.Levels(ev, h.Bars, em.Kind),
		}
		logger.Info("ALERT %s %s price=%.6g rsi=%.2f occurrence=%d", key, alert.Kind, alert.ReferencePrice, alert.Oscillator, alert.Occurrence)
		s.Sinks.Publish(ctx, alert)
		if err := s.Recorder.RecordAlert(&alert); err != nil {
			logger.Error("record alert: %v", err)
		}
		s.Metrics.AlertsTotal.WithLabelValues(key, string(alert.Kind)).Inc()
		events = append(events, alert)
	}
	s.Board.AddAlerts(events...)

	counts := make(map[model.AlertKind]int)
	for k, st := range s.Throttler.State(key) {
		if st.Count > 0 {
			counts[k] = st.Count
		}
	}
	s.Board.UpdateEvaluation(key, ev, counts, now)
	s.Metrics.Oscillator.WithLabelValues(key).Set(ev.Last())

	// Measured after publishing so sink latency is included.
	elapsed := s.now().Sub(started)
	s.Metrics.CycleDuration.WithLabelValues(key).Observe(elapsed.Seconds())

	if err := s.Recorder.RecordCycle(&recorder.CycleRecord{
		Instrument: inst.Symbol,
		Timeframe:  inst.Timeframe,
		BarTime:    ev.BarTime,
		Close:      ev.Close,
		Oscillator: ev.Last(),
		Zone:       ev.Zone,
		Active:     ev.Divergences.Kinds(),
		Emitted:    len(events),
		Bars:       len(h.Bars),
		Duration:   elapsed,
	}); err != nil {
		logger.Error("record cycle: %v", err)
	}
	return events, nil
}

func (s *Scheduler) refreshPrices() {
	for _, sym := range s.Board.Symbols() {
		p, err := s.Collector.LastPrice(s.Ctx, sym)
		if err != nil {
			logger.Warn("price refresh %s: %v", sym, err)
			continue
		}
		s.Board.SetPrice(sym, p, s.now())
		s.Metrics.LivePrice.WithLabelValues(sym).Set(p)
	}
}

func (s *Scheduler) renderDashboard() {
	notifier.RenderDashboard(s.opts.DashboardOut, s.Board.Statuses(), s.Board.Recent(5), s.now())
}

func (s *Scheduler) checkpoint() {
	if s.opts.ThrottleFile == "" {
		return
	}
	if err := s.Throttler.Checkpoint(s.opts.ThrottleFile); err != nil {
		logger.Error("save throttle state: %v", err)
		return
	}
	logger.Debug("throttle state saved to %s", s.opts.ThrottleFile)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/status", "/start":
		return notifier.FormatStatus(s.Board.Statuses())
	case "/alerts":
		return notifier.FormatRecentAlerts(s.Board.Recent(10))
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) announce(ctx context.Context, text string) {
	if s.Announcer == nil {
		return
	}
	if err := s.Announcer.Announce(ctx, text); err != nil {
		logger.Error("send notice: %v", err)
	}
}
