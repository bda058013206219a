package engine

import (
	"context"

	"github.com/google/uuid"

	"sentinel/internal/broker"
	"sentinel/internal/position"
)

// Bootstrap reconciles broker-held positions into the local store at
// startup. Positions opened outside this process (or lost with a wiped
// store) are adopted so their quantity and entry price are known; they are
// not granted a purchase record, so selling them still requires a fresh
// same-day buy.
func (e *Engine) Bootstrap(ctx context.Context) error {
	held, err := e.broker.OpenPositions(ctx)
	if err != nil {
		return err
	}

	now := e.hours.Now()
	for _, p := range held {
		if e.positions.Holds(p.Symbol) {
			continue
		}
		if p.Qty < 1 {
			continue
		}
		tradeID := uuid.New().String()
		if err := e.positions.Open(tradeID, position.Position{
			Symbol:     p.Symbol,
			Quantity:   p.Qty,
			EntryPrice: p.AvgEntry,
			OpenTime:   now,
		}); err != nil {
			e.log.Errorw("bootstrap position save failed", "symbol", p.Symbol, "error", err)
			continue
		}
		e.appendTrade(TradeEvent{
			Timestamp:  now,
			TradeID:    tradeID,
			Symbol:     p.Symbol,
			Side:       broker.Buy,
			Price:      p.AvgEntry,
			Quantity:   p.Qty,
			Reason:     "bootstrap_adopted",
			EntryPrice: p.AvgEntry,
		})
		e.log.Infow("adopted broker position", "symbol", p.Symbol, "qty", p.Qty, "entry_price", p.AvgEntry)
	}
	return nil
}
