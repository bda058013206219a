package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sentinel/internal/baseline"
	"sentinel/internal/broker"
	"sentinel/internal/calendar"
	"sentinel/internal/config"
	"sentinel/internal/ledger"
	"sentinel/internal/position"
	"sentinel/internal/risk"
	"sentinel/internal/stats"
	"sentinel/internal/trigger"
)

// Broker is the brokerage capability the engine consumes.
type Broker interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
	SubmitOrder(ctx context.Context, symbol string, side broker.Side, qty int) (broker.OrderRef, error)
	Equity(ctx context.Context) (float64, error)
	OpenPositions(ctx context.Context) ([]broker.Position, error)
	MarketClock(ctx context.Context) (broker.Clock, error)
}

// Reporter delivers the day-end summary.
type Reporter interface {
	SendDaily(ctx context.Context, day time.Time, early bool) error
}

// Engine advances the whole decision pipeline one symbol at a time:
// quote, statistics, baseline, trigger, sizing, order, ledger, trade log.
// It owns all mutable state and runs on a single goroutine.
type Engine struct {
	cfg       config.Config
	broker    Broker
	tracker   *stats.Tracker
	baselines *baseline.Store
	evaluator trigger.Evaluator
	gate      risk.Gate
	ledger    *ledger.Ledger
	positions *position.Store
	trades    *TradeLog
	hours     *calendar.Hours
	reporter  Reporter
	log       *zap.SugaredLogger

	lastTradingDate string
	reportSent      bool
	tradedToday     bool
}

func New(
	cfg config.Config,
	brokerClient Broker,
	tracker *stats.Tracker,
	baselines *baseline.Store,
	gate risk.Gate,
	purchaseLedger *ledger.Ledger,
	positions *position.Store,
	trades *TradeLog,
	hours *calendar.Hours,
	reporter Reporter,
	log *zap.SugaredLogger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		broker:    brokerClient,
		tracker:   tracker,
		baselines: baselines,
		evaluator: trigger.Evaluator{VolatilityFilter: cfg.VolatilityFilter},
		gate:      gate,
		ledger:    purchaseLedger,
		positions: positions,
		trades:    trades,
		hours:     hours,
		reporter:  reporter,
		log:       log,
	}
}

// RunCycle executes one polling cycle across both profiles. A single
// symbol's failure is logged and skipped; only a ledger persistence failure
// after a confirmed buy aborts the cycle.
func (e *Engine) RunCycle(ctx context.Context) error {
	equity, err := e.broker.Equity(ctx)
	if err != nil {
		e.log.Warnw("equity fetch failed, skipping cycle", "error", err)
		return nil
	}
	e.log.Infow("cycle start", "equity", equity)

	for _, profile := range e.cfg.Profiles() {
		symbols, err := config.ReadSymbols(profile.SymbolsFile)
		if err != nil {
			e.log.Errorw("symbols file unreadable", "profile", profile.Name, "file", profile.SymbolsFile, "error", err)
			continue
		}
		for _, symbol := range symbols {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := e.processSymbol(ctx, profile, symbol, equity); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) processSymbol(ctx context.Context, profile config.Profile, symbol string, equity float64) error {
	now := e.hours.Now()

	price, err := e.broker.LatestPrice(ctx, symbol)
	if err != nil {
		e.log.Warnw("quote fetch failed", "profile", profile.Name, "symbol", symbol, "error", err)
		return nil
	}
	if price <= 0 {
		e.log.Warnw("non-positive quote discarded", "profile", profile.Name, "symbol", symbol, "price", price)
		return nil
	}

	sma, volatility := e.tracker.Observe(symbol, price)

	basePrice, resetReason := e.baselines.CheckAndMaybeReset(symbol, price, now)
	if resetReason != baseline.ResetNone {
		e.log.Infow("baseline reset", "profile", profile.Name, "symbol", symbol, "price", basePrice, "reason", resetReason)
		if err := e.baselines.Save(e.cfg.BaselinePath); err != nil {
			e.log.Errorw("baseline save failed", "error", err)
		}
	}

	decision, why := e.evaluator.Evaluate(profile, trigger.Snapshot{
		Price:      price,
		Baseline:   basePrice,
		SMA:        sma,
		Volatility: volatility,
	})
	e.log.Infow("evaluated",
		"profile", profile.Name, "symbol", symbol, "price", price, "baseline", basePrice,
		"sma", sma, "volatility", volatility, "decision", decision, "reason", why)

	order, err := e.gate.Evaluate(decision, risk.Context{
		Profile:           profile,
		Price:             price,
		Equity:            equity,
		Volatility:        volatility,
		PositionQty:       e.positions.Quantity(symbol),
		BoughtToday:       e.ledger.BoughtToday(symbol, now),
		HasPurchaseRecord: e.ledger.HasOpenPosition(symbol, now),
		RiskPct:           e.cfg.RiskPct,
		VolatilityFloor:   e.cfg.VolatilityFloor,
		KillSwitch:        e.cfg.KillSwitch,
	})
	if err != nil {
		// A gate rejection is a reported skip, not a cycle failure.
		e.log.Infow("order skipped", "profile", profile.Name, "symbol", symbol, "decision", decision, "reason", err.Error())
		return nil
	}
	if decision == trigger.Hold {
		return nil
	}

	switch decision {
	case trigger.Buy:
		return e.executeBuy(ctx, profile, symbol, price, order.Qty, now)
	case trigger.Sell:
		e.executeSell(ctx, profile, symbol, price, order.Qty, why, now)
	}
	return nil
}

// executeBuy submits the order first and records it second; an unconfirmed
// order must never reach the ledger. A ledger persist failure after
// confirmation is escalated: without a durable record the next cycle could
// double-buy.
func (e *Engine) executeBuy(ctx context.Context, profile config.Profile, symbol string, price float64, qty int, now time.Time) error {
	ref, err := e.broker.SubmitOrder(ctx, symbol, broker.Buy, qty)
	if err != nil {
		e.log.Errorw("buy order failed", "profile", profile.Name, "symbol", symbol, "qty", qty, "error", err)
		return nil
	}

	if err := e.ledger.RecordBuy(symbol, now); err != nil {
		return fmt.Errorf("ledger persist after buy of %s: %w", symbol, err)
	}

	tradeID := uuid.New().String()
	if err := e.positions.Open(tradeID, position.Position{
		Symbol:     symbol,
		Quantity:   qty,
		EntryPrice: price,
		OpenTime:   now,
	}); err != nil {
		e.log.Errorw("position checkpoint failed", "symbol", symbol, "error", err)
	}

	e.appendTrade(TradeEvent{
		Timestamp:  now,
		TradeID:    tradeID,
		Symbol:     symbol,
		Side:       broker.Buy,
		Price:      price,
		Quantity:   qty,
		Profile:    profile.Name,
		Reason:     "dip_below_trigger",
		EntryPrice: price,
		OrderID:    ref.ID,
	})
	e.tradedToday = true
	e.log.Infow("bought", "profile", profile.Name, "symbol", symbol, "qty", qty, "price", price, "trade_id", tradeID)
	return nil
}

func (e *Engine) executeSell(ctx context.Context, profile config.Profile, symbol string, price float64, qty int, why string, now time.Time) {
	ref, err := e.broker.SubmitOrder(ctx, symbol, broker.Sell, qty)
	if err != nil {
		e.log.Errorw("sell order failed", "profile", profile.Name, "symbol", symbol, "qty", qty, "error", err)
		return
	}

	tradeID, lot, ok, err := e.positions.CloseSymbol(symbol)
	if err != nil {
		e.log.Errorw("position checkpoint failed", "symbol", symbol, "error", err)
	}
	var entryPrice, profit float64
	if ok {
		entryPrice = lot.EntryPrice
		profit = (price - lot.EntryPrice) * float64(qty)
	} else {
		tradeID = uuid.New().String()
		e.log.Warnw("sell without tracked lot", "symbol", symbol)
	}

	if err := e.ledger.RecordSell(symbol, now); err != nil {
		e.log.Errorw("ledger persist after sell failed", "symbol", symbol, "error", err)
	}

	e.appendTrade(TradeEvent{
		Timestamp:  now,
		TradeID:    tradeID,
		Symbol:     symbol,
		Side:       broker.Sell,
		Price:      price,
		Quantity:   qty,
		Profile:    profile.Name,
		Reason:     why,
		EntryPrice: entryPrice,
		Profit:     profit,
		OrderID:    ref.ID,
	})
	e.tradedToday = true
	e.log.Infow("sold", "profile", profile.Name, "symbol", symbol, "qty", qty, "price", price, "profit", profit, "reason", why)
}

func (e *Engine) appendTrade(event TradeEvent) {
	if err := e.trades.Append(event); err != nil {
		e.log.Errorw("trade log append failed", "symbol", event.Symbol, "error", err)
	}
}
