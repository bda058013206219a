package trigger

import "sentinel/internal/config"

type Decision string

const (
	Hold Decision = "HOLD"
	Buy  Decision = "BUY"
	Sell Decision = "SELL"
)

// Snapshot carries everything a trigger decision depends on. The SMA has no
// decision rule of its own but travels with the snapshot for logging and the
// trade record.
type Snapshot struct {
	Price      float64
	Baseline   float64
	SMA        float64
	Volatility float64
}

// Evaluator converts price/baseline ratios into decisions. It is a pure
// function of its inputs: identical snapshots always produce identical
// decisions.
type Evaluator struct {
	VolatilityFilter float64
}

// Evaluate checks the sell target, then the low-volatility buy dip, then the
// volatility-scaled stop. The stop is an independent sell condition: a dip
// that fails the volatility filter is a falling knife and still sells when
// the price is at or under the stop line.
func (e Evaluator) Evaluate(profile config.Profile, snap Snapshot) (Decision, string) {
	ratio := snap.Price / snap.Baseline

	if ratio >= profile.SellTrigger {
		return Sell, "target_reached"
	}

	dipped := ratio <= profile.BuyTrigger
	if dipped && snap.Volatility <= e.VolatilityFilter {
		return Buy, "dip_below_trigger"
	}

	stop := snap.Baseline * (1 - profile.StopMultiplier*snap.Volatility)
	if snap.Price <= stop {
		return Sell, "stop_hit"
	}

	if dipped {
		return Hold, "volatility_above_filter"
	}
	return Hold, "no_signal"
}
