package baseline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"sentinel/internal/atomicfile"
)

// ResetReason reports why a baseline was replaced. Drift wins in logs when
// both conditions hold at once.
type ResetReason string

const (
	ResetNone    ResetReason = ""
	ResetInitial ResetReason = "initial"
	ResetDrift   ResetReason = "drift"
	ResetAge     ResetReason = "age"
)

// Baseline is the reference price trigger ratios are measured against.
type Baseline struct {
	Price float64   `json:"price"`
	SetAt time.Time `json:"ts"`
}

// Store holds one baseline per tracked symbol. Baselines reset when the price
// drifts too far from the reference or the reference grows too old, so that
// trigger ratios keep tracking the current regime.
type Store struct {
	resetAfter time.Duration
	maxDrift   float64
	baselines  map[string]Baseline
}

func NewStore(resetAfter time.Duration, maxDrift float64) *Store {
	return &Store{
		resetAfter: resetAfter,
		maxDrift:   maxDrift,
		baselines:  make(map[string]Baseline),
	}
}

// CheckAndMaybeReset returns the reference price for symbol, creating or
// resetting the baseline first when required. Either the age or the drift
// condition alone forces a reset.
func (s *Store) CheckAndMaybeReset(symbol string, price float64, now time.Time) (float64, ResetReason) {
	current, ok := s.baselines[symbol]
	if !ok {
		s.baselines[symbol] = Baseline{Price: price, SetAt: now}
		return price, ResetInitial
	}

	drifted := math.Abs(price-current.Price)/current.Price >= s.maxDrift
	aged := now.Sub(current.SetAt) >= s.resetAfter
	if !drifted && !aged {
		return current.Price, ResetNone
	}

	s.baselines[symbol] = Baseline{Price: price, SetAt: now}
	if drifted {
		return price, ResetDrift
	}
	return price, ResetAge
}

// Get returns the symbol's baseline, if one exists.
func (s *Store) Get(symbol string) (Baseline, bool) {
	b, ok := s.baselines[symbol]
	return b, ok
}

// Save writes all baselines so they survive restarts.
func (s *Store) Save(path string) error {
	data, err := json.MarshalIndent(s.baselines, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baselines: %w", err)
	}
	if err := atomicfile.Write(path, data); err != nil {
		return fmt.Errorf("write baselines: %w", err)
	}
	return nil
}

// Load restores persisted baselines. Missing or malformed files leave the
// store empty; entries with a non-positive price are dropped.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read baselines: %w", err)
	}

	var raw map[string]Baseline
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	for symbol, b := range raw {
		if b.Price <= 0 {
			continue
		}
		s.baselines[symbol] = b
	}
	return nil
}
