package trigger

import (
	"testing"

	"sentinel/internal/config"
)

var profileA = config.Profile{
	Name:           config.ProfileA,
	BuyTrigger:     0.995,
	SellTrigger:    1.09,
	StopMultiplier: 0.3,
}

func TestBuyOnLowVolatilityDip(t *testing.T) {
	eval := Evaluator{VolatilityFilter: 0.02}
	decision, reason := eval.Evaluate(profileA, Snapshot{
		Price:      99,
		Baseline:   100,
		Volatility: 0.01,
	})
	if decision != Buy {
		t.Fatalf("expected BUY (ratio 0.99 <= 0.995, vol within filter), got %s (%s)", decision, reason)
	}
}

func TestVolatilityFilterBlocksBuy(t *testing.T) {
	eval := Evaluator{VolatilityFilter: 0.02}
	// Stop sits at 100 * (1 - 0.3*0.021) = 99.37, below the price, so the
	// filtered dip holds rather than selling.
	decision, reason := eval.Evaluate(profileA, Snapshot{
		Price:      99.5,
		Baseline:   100,
		Volatility: 0.021,
	})
	if decision != Hold || reason != "volatility_above_filter" {
		t.Fatalf("expected HOLD on filtered dip above the stop, got %s (%s)", decision, reason)
	}
}

func TestStopFiresOnVolatileDip(t *testing.T) {
	eval := Evaluator{VolatilityFilter: 0.02}
	// Volatility 0.03 fails the buy filter but pushes the stop to 99.1;
	// the price under the stop line must sell rather than hold.
	decision, reason := eval.Evaluate(profileA, Snapshot{
		Price:      99,
		Baseline:   100,
		Volatility: 0.03,
	})
	if decision != Sell || reason != "stop_hit" {
		t.Fatalf("expected stop SELL on a volatile dip, got %s (%s)", decision, reason)
	}
}

func TestVolatilityFilterBoundaryAllowsBuy(t *testing.T) {
	eval := Evaluator{VolatilityFilter: 0.02}
	decision, _ := eval.Evaluate(profileA, Snapshot{
		Price:      99,
		Baseline:   100,
		Volatility: 0.02,
	})
	if decision != Buy {
		t.Fatalf("expected BUY exactly at the volatility filter, got %s", decision)
	}
}

func TestSellAtTarget(t *testing.T) {
	eval := Evaluator{VolatilityFilter: 0.02}
	decision, reason := eval.Evaluate(profileA, Snapshot{
		Price:      109,
		Baseline:   100,
		Volatility: 0.01,
	})
	if decision != Sell || reason != "target_reached" {
		t.Fatalf("expected SELL at target, got %s (%s)", decision, reason)
	}
}

func TestSellAtVolatilityScaledStop(t *testing.T) {
	eval := Evaluator{VolatilityFilter: 0.02}
	// Stop sits at 100 * (1 - 0.3*0.01) = 99.7, above the buy trigger.
	decision, reason := eval.Evaluate(profileA, Snapshot{
		Price:      99.65,
		Baseline:   100,
		Volatility: 0.01,
	})
	if decision != Sell || reason != "stop_hit" {
		t.Fatalf("expected stop SELL at 99.65 <= 99.7 above the buy trigger, got %s (%s)", decision, reason)
	}
}

func TestHoldStrictlyBetweenTriggers(t *testing.T) {
	eval := Evaluator{VolatilityFilter: 0.02}
	// Volatility 0.02 pushes the stop to ratio 0.994, below the buy trigger,
	// so the band between the two triggers is pure HOLD territory.
	for _, ratio := range []float64{0.9951, 0.999, 1.0, 1.02, 1.0899} {
		decision, reason := eval.Evaluate(profileA, Snapshot{
			Price:      ratio * 100,
			Baseline:   100,
			Volatility: 0.02,
		})
		if decision != Hold {
			t.Fatalf("expected HOLD at ratio %v, got %s (%s)", ratio, decision, reason)
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	eval := Evaluator{VolatilityFilter: 0.02}
	snap := Snapshot{Price: 99, Baseline: 100, SMA: 99.5, Volatility: 0.01}

	first, firstReason := eval.Evaluate(profileA, snap)
	for i := 0; i < 10; i++ {
		decision, reason := eval.Evaluate(profileA, snap)
		if decision != first || reason != firstReason {
			t.Fatalf("expected identical decisions for identical inputs, got %s then %s", first, decision)
		}
	}
}
