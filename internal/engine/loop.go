package engine

import (
	"context"
	"time"

	"sentinel/internal/broker"
)

const closedPollInterval = time.Minute

// Run drives polling cycles until ctx is cancelled. Each iteration settles
// into exactly one of four states: market closed, lunch pause, after close,
// or active trading.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Infow("sentinel started",
		"poll_interval", e.cfg.PollInterval,
		"atr_period", e.cfg.ATRPeriod,
		"kill_switch", e.cfg.KillSwitch)

	for {
		if err := ctx.Err(); err != nil {
			return e.shutdown(ctx)
		}

		now := e.hours.Now()
		e.rolloverIfNewDay(now)

		clock, err := e.broker.MarketClock(ctx)
		if err != nil {
			e.log.Warnw("market clock fetch failed", "error", err)
			if err := broker.WaitForContext(ctx, closedPollInterval); err != nil {
				return e.shutdown(ctx)
			}
			continue
		}

		switch {
		case !clock.IsOpen:
			wait := closedPollInterval
			if until := time.Until(clock.NextOpen); until > 0 && until < wait {
				wait = until
			}
			e.log.Infow("market closed", "next_open", clock.NextOpen)
			if err := broker.WaitForContext(ctx, wait); err != nil {
				return e.shutdown(ctx)
			}

		case e.hours.AfterClose(now):
			e.sendReportOnce(ctx, now, false)
			if err := broker.WaitForContext(ctx, closedPollInterval); err != nil {
				return e.shutdown(ctx)
			}

		case !e.hours.InTradingWindow(now):
			// After-close is handled above, so this is the lunch interval.
			e.log.Infow("lunch pause, skipping cycle")
			if err := broker.WaitForContext(ctx, e.cfg.PollInterval); err != nil {
				return e.shutdown(ctx)
			}

		default:
			if err := e.RunCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return e.shutdown(ctx)
				}
				// Only fatal persistence failures surface here. Trading
				// halts; the early summary doubles as the alert.
				_ = e.shutdown(ctx)
				return err
			}
			e.checkpoint()
			if err := broker.WaitForContext(ctx, e.cfg.PollInterval); err != nil {
				return e.shutdown(ctx)
			}
		}
	}
}

// rolloverIfNewDay clears per-day state when the trading date changes.
// The ledger is reloaded from disk so that prior-day purchase records are
// discarded by the same path used at startup.
func (e *Engine) rolloverIfNewDay(now time.Time) {
	date := now.Format("2006-01-02")
	if e.lastTradingDate == date {
		return
	}
	if e.lastTradingDate != "" {
		e.log.Infow("trading day rollover", "from", e.lastTradingDate, "to", date)
		if err := e.ledger.Load(now); err != nil {
			e.log.Errorw("ledger reload on rollover failed", "error", err)
		}
	}
	e.lastTradingDate = date
	e.reportSent = false
	e.tradedToday = false
}

func (e *Engine) sendReportOnce(ctx context.Context, now time.Time, early bool) {
	if e.reportSent || e.reporter == nil {
		return
	}
	if err := e.reporter.SendDaily(ctx, now, early); err != nil {
		e.log.Errorw("daily report failed", "error", err)
		return
	}
	e.reportSent = true
	e.log.Infow("daily report sent", "early", early)
}

// checkpoint persists the rolling window between cycles so a restart on the
// same day resumes with warm statistics.
func (e *Engine) checkpoint() {
	if err := e.tracker.SaveSnapshot(e.cfg.WindowPath, e.hours.Now()); err != nil {
		e.log.Errorw("window snapshot save failed", "error", err)
	}
}

// shutdown persists all state and, if any trade happened today and no
// report has gone out yet, sends an early summary. Delivery uses a short
// detached context because the run context is already cancelled.
func (e *Engine) shutdown(_ context.Context) error {
	e.log.Infow("shutting down")
	now := e.hours.Now()

	e.checkpoint()
	if err := e.baselines.Save(e.cfg.BaselinePath); err != nil {
		e.log.Errorw("baseline save on shutdown failed", "error", err)
	}

	if e.tradedToday && !e.reportSent {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		e.sendReportOnce(sendCtx, now, true)
	}

	if err := e.trades.Close(); err != nil {
		e.log.Errorw("trade log close failed", "error", err)
	}
	return nil
}
