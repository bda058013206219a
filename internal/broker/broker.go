package broker

import (
	"context"
	"errors"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ErrNoPosition is returned when the broker reports no position for a symbol.
var ErrNoPosition = errors.New("position does not exist")

type OrderRef struct {
	ID            string
	ClientOrderID string
	Status        string
}

type Position struct {
	Symbol   string
	Qty      int
	AvgEntry float64
}

type Account struct {
	Equity float64
	Cash   float64
}

type Clock struct {
	IsOpen   bool
	NextOpen time.Time
}

// Client wraps the Alpaca trading and market-data APIs behind the small
// surface the engine consumes. Every call goes through the retrier.
type Client struct {
	trading *alpaca.Client
	data    *marketdata.Client
	retry   *retrier
	log     *zap.SugaredLogger
}

type Options struct {
	APIKey           string
	APISecret        string
	BaseURL          string
	MaxAttempts      int
	BaseDelay        time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func New(opts Options, log *zap.SugaredLogger) *Client {
	trading := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
		BaseURL:   opts.BaseURL,
	})
	data := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	})
	return &Client{
		trading: trading,
		data:    data,
		retry: &retrier{
			log:              log,
			maxAttempts:      opts.MaxAttempts,
			baseDelay:        opts.BaseDelay,
			breakerThreshold: opts.BreakerThreshold,
			breakerCooldown:  opts.BreakerCooldown,
		},
		log: log,
	}
}

// LatestPrice returns the most recent trade price for symbol, falling back
// to the latest minute bar's close when no trade is available.
func (c *Client) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := c.retry.do(ctx, "latest_trade", func() error {
		trade, err := c.data.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		if err != nil {
			return err
		}
		price = trade.Price
		return nil
	})
	if err == nil && price > 0 {
		return price, nil
	}

	barErr := c.retry.do(ctx, "latest_bar", func() error {
		bars, err := c.data.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame:  marketdata.OneMin,
			TotalLimit: 1,
		})
		if err != nil {
			return err
		}
		if len(bars) == 0 {
			return errors.New("no bars returned")
		}
		price = bars[len(bars)-1].Close
		return nil
	})
	if barErr != nil {
		if err != nil {
			return 0, err
		}
		return 0, barErr
	}
	return price, nil
}

// SubmitOrder places a market day order and returns the broker's reference.
func (c *Client) SubmitOrder(ctx context.Context, symbol string, side Side, qty int) (OrderRef, error) {
	alpacaSide := alpaca.Buy
	if side == Sell {
		alpacaSide = alpaca.Sell
	}
	quantity := decimal.NewFromInt(int64(qty))
	req := alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &quantity,
		Side:        alpacaSide,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	}

	var ref OrderRef
	err := c.retry.do(ctx, "submit_order", func() error {
		order, err := c.trading.PlaceOrder(req)
		if err != nil {
			return err
		}
		ref = OrderRef{ID: order.ID, ClientOrderID: order.ClientOrderID, Status: string(order.Status)}
		return nil
	})
	if err != nil {
		c.log.Errorw("submit order failed", "symbol", symbol, "side", side, "qty", qty, "error", err)
		return OrderRef{}, err
	}
	c.log.Infow("order submitted", "symbol", symbol, "side", side, "qty", qty, "order_id", ref.ID, "status", ref.Status)
	return ref, nil
}

// Equity returns the account's current equity.
func (c *Client) Equity(ctx context.Context) (float64, error) {
	var account Account
	err := c.retry.do(ctx, "get_account", func() error {
		acct, err := c.trading.GetAccount()
		if err != nil {
			return err
		}
		account.Equity, _ = acct.Equity.Float64()
		account.Cash, _ = acct.Cash.Float64()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return account.Equity, nil
}

// OpenPositions lists the broker's open positions for startup reconciliation.
func (c *Client) OpenPositions(ctx context.Context) ([]Position, error) {
	var out []Position
	err := c.retry.do(ctx, "list_positions", func() error {
		positions, err := c.trading.GetPositions()
		if err != nil {
			return err
		}
		out = out[:0]
		for _, p := range positions {
			qty := int(p.Qty.IntPart())
			avgEntry, _ := p.AvgEntryPrice.Float64()
			out = append(out, Position{Symbol: p.Symbol, Qty: qty, AvgEntry: avgEntry})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UnrealizedPL sums the unrealized profit across open positions.
func (c *Client) UnrealizedPL(ctx context.Context) (float64, error) {
	var total float64
	err := c.retry.do(ctx, "list_positions", func() error {
		positions, err := c.trading.GetPositions()
		if err != nil {
			return err
		}
		total = 0
		for _, p := range positions {
			if p.UnrealizedPL == nil {
				continue
			}
			pl, _ := p.UnrealizedPL.Float64()
			total += pl
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// MarketClock returns the broker's market clock.
func (c *Client) MarketClock(ctx context.Context) (Clock, error) {
	var clock Clock
	err := c.retry.do(ctx, "get_clock", func() error {
		cl, err := c.trading.GetClock()
		if err != nil {
			return err
		}
		clock = Clock{IsOpen: cl.IsOpen, NextOpen: cl.NextOpen}
		return nil
	})
	return clock, err
}

// WaitForContext sleeps for delay or until ctx is cancelled.
func WaitForContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
