package risk

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"sentinel/internal/config"
	"sentinel/internal/trigger"
)

// Context carries everything the gate needs for one decision.
type Context struct {
	Profile           config.Profile
	Price             float64
	Equity            float64
	Volatility        float64
	PositionQty       int
	BoughtToday       bool
	HasPurchaseRecord bool
	RiskPct           float64
	VolatilityFloor   float64
	KillSwitch        bool
}

// Order is an approved, sized order.
type Order struct {
	Qty    int
	Reason string
}

// Gate sizes buy orders from the account's risk budget and enforces the
// one-buy-one-sell-per-symbol-per-day rule. Rejections come back as errors
// with short machine-readable reasons; a rejected order is a reported skip,
// not a failure of the cycle.
type Gate struct {
	log *zap.SugaredLogger
}

func NewGate(log *zap.SugaredLogger) Gate {
	return Gate{log: log}
}

func (g Gate) Evaluate(decision trigger.Decision, ctx Context) (Order, error) {
	if decision == trigger.Hold {
		return Order{Reason: "hold"}, nil
	}

	if ctx.KillSwitch {
		g.log.Infow("risk rejected", "reason", "kill_switch_enabled", "decision", decision)
		return Order{}, fmt.Errorf("kill_switch_enabled")
	}

	switch decision {
	case trigger.Sell:
		return g.evaluateSell(ctx)
	case trigger.Buy:
		return g.evaluateBuy(ctx)
	}
	return Order{}, fmt.Errorf("unknown_decision")
}

func (g Gate) evaluateSell(ctx Context) (Order, error) {
	if !ctx.HasPurchaseRecord {
		g.log.Infow("risk rejected", "reason", "no_purchase_record")
		return Order{}, fmt.Errorf("no_purchase_record")
	}
	if ctx.PositionQty <= 0 {
		g.log.Infow("risk rejected", "reason", "no_position_to_sell")
		return Order{}, fmt.Errorf("no_position_to_sell")
	}
	// Full exit; the engine does not scale out.
	return Order{Qty: ctx.PositionQty, Reason: "approved"}, nil
}

func (g Gate) evaluateBuy(ctx Context) (Order, error) {
	if ctx.BoughtToday {
		g.log.Infow("risk rejected", "reason", "already_bought_today")
		return Order{}, fmt.Errorf("already_bought_today")
	}
	// Buy only when flat. An overnight lot whose purchase record expired
	// cannot be sold that day, and stacking a second lot onto it would
	// desync the position store from the broker on the eventual exit.
	if ctx.PositionQty > 0 {
		g.log.Infow("risk rejected", "reason", "position_already_open")
		return Order{}, fmt.Errorf("position_already_open")
	}

	stopDistance := StopDistance(ctx.Price, ctx.Profile.StopMultiplier, ctx.Volatility, ctx.VolatilityFloor)
	qty := int(math.Floor(ctx.Equity * ctx.RiskPct / stopDistance))
	if qty < 1 {
		g.log.Infow("risk rejected", "reason", "insufficient_risk_budget",
			"equity", ctx.Equity, "stop_distance", stopDistance)
		return Order{}, fmt.Errorf("insufficient_risk_budget")
	}

	g.log.Infow("risk approved", "qty", qty, "stop_distance", stopDistance, "notional", float64(qty)*ctx.Price)
	return Order{Qty: qty, Reason: "approved"}, nil
}

// StopDistance is the volatility-scaled stop used for position sizing. The
// floor keeps the division finite when the window has seen no movement yet.
func StopDistance(price, stopMultiplier, volatility, floor float64) float64 {
	return price * stopMultiplier * math.Max(volatility, floor)
}
