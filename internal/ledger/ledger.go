package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"sentinel/internal/atomicfile"
)

const dateLayout = "2006-01-02"

type state struct {
	Date          string            `json:"date"`
	PurchaseDates map[string]string `json:"purchase_dates"`
}

// Ledger is the single source of truth for buy/sell eligibility: one buy per
// symbol per calendar day, sells only against a recorded purchase. Every
// mutation persists synchronously before returning, so a crash between a
// broker confirmation and the next tick cannot produce a double buy.
type Ledger struct {
	path      string
	purchases map[string]time.Time
}

func New(path string) *Ledger {
	return &Ledger{
		path:      path,
		purchases: make(map[string]time.Time),
	}
}

// Load reads the persisted ledger, replacing any records already in memory.
// A file tagged with a different calendar date than now is stale ownership
// signal from a previous trading day and is discarded wholesale, as are
// in-memory records when Load runs again at day rollover. Unparsable entries
// are dropped individually.
func (l *Ledger) Load(now time.Time) error {
	l.purchases = make(map[string]time.Time)

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read ledger: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil
	}
	if st.Date != now.Format(dateLayout) {
		return nil
	}
	for symbol, raw := range st.PurchaseDates {
		d, err := time.ParseInLocation(dateLayout, raw, now.Location())
		if err != nil {
			continue
		}
		l.purchases[symbol] = d
	}
	return nil
}

// Persist writes the ledger atomically: temp file, fsync, rename. A crash
// mid-write leaves the previous file intact.
func (l *Ledger) Persist(now time.Time) error {
	st := state{
		Date:          now.Format(dateLayout),
		PurchaseDates: make(map[string]string, len(l.purchases)),
	}
	for symbol, d := range l.purchases {
		st.PurchaseDates[symbol] = d.Format(dateLayout)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := atomicfile.Write(l.path, data); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

// RecordBuy marks symbol as purchased today and persists before returning.
func (l *Ledger) RecordBuy(symbol string, now time.Time) error {
	l.purchases[symbol] = midnight(now)
	if err := l.Persist(now); err != nil {
		delete(l.purchases, symbol)
		return err
	}
	return nil
}

// RecordSell clears the symbol's purchase record and persists.
func (l *Ledger) RecordSell(symbol string, now time.Time) error {
	prev, had := l.purchases[symbol]
	delete(l.purchases, symbol)
	if err := l.Persist(now); err != nil {
		if had {
			l.purchases[symbol] = prev
		}
		return err
	}
	return nil
}

// HasOpenPosition reports whether a purchase record dated on or before today
// exists for symbol.
func (l *Ledger) HasOpenPosition(symbol string, today time.Time) bool {
	d, ok := l.purchases[symbol]
	return ok && !d.After(midnight(today))
}

// BoughtToday reports whether symbol already has a purchase dated today.
func (l *Ledger) BoughtToday(symbol string, today time.Time) bool {
	d, ok := l.purchases[symbol]
	return ok && d.Equal(midnight(today))
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
