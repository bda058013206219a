package baseline

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFirstObservationCreatesBaseline(t *testing.T) {
	store := NewStore(6*time.Hour, 0.05)
	now := time.Now()

	price, reason := store.CheckAndMaybeReset("AAPL", 100, now)
	if price != 100 || reason != ResetInitial {
		t.Fatalf("expected initial baseline at 100, got %v reason=%q", price, reason)
	}
}

func TestSmallMoveKeepsBaseline(t *testing.T) {
	store := NewStore(6*time.Hour, 0.05)
	now := time.Now()
	store.CheckAndMaybeReset("AAPL", 100, now)

	price, reason := store.CheckAndMaybeReset("AAPL", 101, now.Add(time.Hour))
	if price != 100 || reason != ResetNone {
		t.Fatalf("expected baseline held at 100, got %v reason=%q", price, reason)
	}
}

func TestDriftForcesReset(t *testing.T) {
	store := NewStore(6*time.Hour, 0.05)
	now := time.Now()
	store.CheckAndMaybeReset("AAPL", 100, now)

	price, reason := store.CheckAndMaybeReset("AAPL", 106, now.Add(time.Minute))
	if price != 106 || reason != ResetDrift {
		t.Fatalf("expected drift reset to 106, got %v reason=%q", price, reason)
	}
}

func TestAgeForcesReset(t *testing.T) {
	store := NewStore(6*time.Hour, 0.05)
	now := time.Now()
	store.CheckAndMaybeReset("AAPL", 100, now)

	price, reason := store.CheckAndMaybeReset("AAPL", 101, now.Add(7*time.Hour))
	if price != 101 || reason != ResetAge {
		t.Fatalf("expected age reset to 101, got %v reason=%q", price, reason)
	}
}

func TestDriftWinsLoggingWhenBothConditionsHold(t *testing.T) {
	store := NewStore(6*time.Hour, 0.05)
	now := time.Now()
	store.CheckAndMaybeReset("AAPL", 100, now)

	_, reason := store.CheckAndMaybeReset("AAPL", 120, now.Add(8*time.Hour))
	if reason != ResetDrift {
		t.Fatalf("expected drift to take logging priority, got %q", reason)
	}
}

func TestResetIsIdempotentWithinOneCheck(t *testing.T) {
	store := NewStore(6*time.Hour, 0.05)
	now := time.Now()
	store.CheckAndMaybeReset("AAPL", 100, now)

	later := now.Add(7 * time.Hour)
	first, _ := store.CheckAndMaybeReset("AAPL", 101, later)
	second, reason := store.CheckAndMaybeReset("AAPL", 101, later)
	if first != second {
		t.Fatalf("expected identical reference price, got %v then %v", first, second)
	}
	if reason != ResetNone {
		t.Fatalf("expected no second reset for identical inputs, got %q", reason)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baselines.json")
	now := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)

	store := NewStore(6*time.Hour, 0.05)
	store.CheckAndMaybeReset("AAPL", 187.5, now)
	if err := store.Save(path); err != nil {
		t.Fatalf("save baselines: %v", err)
	}

	restored := NewStore(6*time.Hour, 0.05)
	if err := restored.Load(path); err != nil {
		t.Fatalf("load baselines: %v", err)
	}
	price, reason := restored.CheckAndMaybeReset("AAPL", 188, now.Add(time.Minute))
	if price != 187.5 || reason != ResetNone {
		t.Fatalf("expected restored baseline 187.5 held, got %v reason=%q", price, reason)
	}
}

func TestLoadDropsNonPositivePrices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baselines.json")
	store := NewStore(6*time.Hour, 0.05)
	store.baselines["BAD"] = Baseline{Price: -1, SetAt: time.Now()}
	if err := store.Save(path); err != nil {
		t.Fatalf("save baselines: %v", err)
	}

	restored := NewStore(6*time.Hour, 0.05)
	if err := restored.Load(path); err != nil {
		t.Fatalf("load baselines: %v", err)
	}
	if _, ok := restored.Get("BAD"); ok {
		t.Fatalf("expected negative-price entry to be dropped")
	}
}
