// Package report builds and delivers the daily trading summary from the
// append-only trade log.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"sentinel/internal/broker"
	"sentinel/internal/config"
	"sentinel/internal/engine"
)

// AccountReader supplies the account figures quoted in the summary.
type AccountReader interface {
	Equity(ctx context.Context) (float64, error)
	UnrealizedPL(ctx context.Context) (float64, error)
}

// Mailer delivers a finished summary. The SMTP implementation lives in
// this package; tests substitute a recorder.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

type profileSummary struct {
	buys   int
	sells  int
	profit float64
}

// Reporter aggregates one day of trade events into a plain-text summary.
type Reporter struct {
	tradeLogPath string
	account      AccountReader
	mailer       Mailer
	log          *zap.SugaredLogger
}

func New(cfg config.Config, account AccountReader, mailer Mailer, log *zap.SugaredLogger) *Reporter {
	return &Reporter{
		tradeLogPath: cfg.TradeLogPath,
		account:      account,
		mailer:       mailer,
		log:          log,
	}
}

// SendDaily composes and delivers the summary for the given trading day.
// With no mailer configured the summary is logged instead of mailed.
func (r *Reporter) SendDaily(ctx context.Context, day time.Time, early bool) error {
	events, err := engine.ReadDay(r.tradeLogPath, day)
	if err != nil {
		return fmt.Errorf("read trade log: %w", err)
	}

	body, err := r.compose(ctx, day, events, early)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Trading summary %s", day.Format("2006-01-02"))
	if early {
		subject += " (early shutdown)"
	}

	if r.mailer == nil {
		r.log.Infow("daily summary", "subject", subject, "body", body)
		return nil
	}
	return r.mailer.Send(ctx, subject, body)
}

func (r *Reporter) compose(ctx context.Context, day time.Time, events []engine.TradeEvent, early bool) (string, error) {
	byProfile := map[config.ProfileName]*profileSummary{}
	for _, ev := range events {
		s := byProfile[ev.Profile]
		if s == nil {
			s = &profileSummary{}
			byProfile[ev.Profile] = s
		}
		switch ev.Side {
		case broker.Buy:
			s.buys++
		case broker.Sell:
			s.sells++
			s.profit += ev.Profit
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily trading summary for %s\n", day.Format("2006-01-02"))
	if early {
		b.WriteString("Note: sent at shutdown, before market close.\n")
	}
	b.WriteString("\n")

	if len(events) == 0 {
		b.WriteString("No trades today.\n")
	}

	names := make([]config.ProfileName, 0, len(byProfile))
	for name := range byProfile {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, name := range names {
		s := byProfile[name]
		label := string(name)
		if label == "" {
			label = "bootstrap"
		}
		fmt.Fprintf(&b, "Profile %s: %d buys, %d sells, realized P/L %.2f\n", label, s.buys, s.sells, s.profit)
	}

	for _, ev := range events {
		switch ev.Side {
		case broker.Buy:
			fmt.Fprintf(&b, "  BUY  %-6s %4d @ %.2f (%s)\n", ev.Symbol, ev.Quantity, ev.Price, ev.Reason)
		case broker.Sell:
			fmt.Fprintf(&b, "  SELL %-6s %4d @ %.2f (%s) P/L %.2f\n", ev.Symbol, ev.Quantity, ev.Price, ev.Reason, ev.Profit)
		}
	}

	if warnings := Validate(events); len(warnings) > 0 {
		b.WriteString("\nTrade log warnings:\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	b.WriteString("\n")
	if equity, err := r.account.Equity(ctx); err != nil {
		r.log.Warnw("equity fetch for summary failed", "error", err)
		b.WriteString("End-of-day equity: unavailable\n")
	} else {
		fmt.Fprintf(&b, "End-of-day equity: %.2f\n", equity)
	}
	if pl, err := r.account.UnrealizedPL(ctx); err != nil {
		r.log.Warnw("unrealized P/L fetch for summary failed", "error", err)
		b.WriteString("Open position P/L: unavailable\n")
	} else {
		fmt.Fprintf(&b, "Open position P/L: %.2f\n", pl)
	}

	return b.String(), nil
}

// Validate inspects one day of trade events for inconsistencies worth a
// human look. Warnings never block delivery.
func Validate(events []engine.TradeEvent) []string {
	var warnings []string
	openBuys := map[string]int{}
	for _, ev := range events {
		switch ev.Side {
		case broker.Buy:
			if openBuys[ev.Symbol] > 0 {
				warnings = append(warnings, fmt.Sprintf("%s: multiple buys without an intervening sell", ev.Symbol))
			}
			openBuys[ev.Symbol]++
		case broker.Sell:
			if openBuys[ev.Symbol] == 0 {
				warnings = append(warnings, fmt.Sprintf("%s: sell without a matching buy", ev.Symbol))
			} else {
				openBuys[ev.Symbol]--
			}
			if ev.EntryPrice == 0 {
				warnings = append(warnings, fmt.Sprintf("%s: sell with no recorded entry price", ev.Symbol))
			}
		}
		if ev.Quantity <= 0 {
			warnings = append(warnings, fmt.Sprintf("%s: non-positive quantity %d", ev.Symbol, ev.Quantity))
		}
	}
	return warnings
}
