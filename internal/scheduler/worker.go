package scheduler

import (
	"context"
	"errors"
	"time"

	"DivergenceSentinel/internal/logger"
	"DivergenceSentinel/internal/notifier"
	"DivergenceSentinel/internal/recorder"
	"DivergenceSentinel/internal/strategy"
)

// nextBackoff doubles base for each consecutive failure, capped at max.
func nextBackoff(failures int, base, max time.Duration) time.Duration {
	d := base
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// runWorker evaluates one instrument sequentially until ctx is cancelled.
// A cycle always completes before the next one is scheduled.
func (s *Scheduler) runWorker(ctx context.Context, inst Instrument) {
	key := inst.Key()
	logger.Info("worker %s started, poll every %v", key, inst.PollInterval)
	failures := 0

	for {
		wait := inst.PollInterval
		_, err := s.RunCycle(ctx, inst)
		switch {
		case err == nil:
			if failures > 0 {
				logger.Info("%s recovered after %d failure(s)", key, failures)
				s.announce(ctx, notifier.FormatRecoveryNotice(key, failures))
			}
			failures = 0
			s.Metrics.CyclesTotal.WithLabelValues(key, "ok").Inc()
		case ctx.Err() != nil:
			logger.Info("worker %s stopped", key)
			return
		case errors.Is(err, strategy.ErrInsufficientData):
			logger.Warn("%s: %v, skipping detection", key, err)
			s.Board.SetError(key, err, failures, s.now())
			s.recordFailure(inst, err)
			s.Metrics.CyclesTotal.WithLabelValues(key, "insufficient").Inc()
		default:
			failures++
			wait = nextBackoff(failures, s.opts.RetryBackoff, s.opts.MaxBackoff)
			logger.Error("%s cycle failed (%d in a row): %v, retrying in %v", key, failures, err, wait)
			s.Board.SetError(key, err, failures, s.now())
			s.recordFailure(inst, err)
			s.Metrics.CyclesTotal.WithLabelValues(key, "error").Inc()
			if failures == 1 {
				s.announce(ctx, notifier.FormatErrorNotice(key, err, s.now()))
			}
		}
		s.Metrics.ConsecutiveFailure.WithLabelValues(key).Set(float64(failures))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("worker %s stopped", key)
			return
		case <-timer.C:
		}
	}
}

func (s *Scheduler) recordFailure(inst Instrument, err error) {
	rec := &recorder.CycleRecord{Instrument: inst.Symbol, Timeframe: inst.Timeframe, Err: err.Error()}
	if rerr := s.Recorder.RecordCycle(rec); rerr != nil {
		logger.Error("record cycle: %v", rerr)
	}
}
