package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"sentinel/internal/atomicfile"
)

const dateLayout = "2006-01-02"

type snapshot struct {
	Date    string               `json:"date"`
	Windows map[string][]float64 `json:"windows"`
}

// SaveSnapshot writes the current windows tagged with now's calendar date so
// a restart on the same trading day can rehydrate them.
func (t *Tracker) SaveSnapshot(path string, now time.Time) error {
	snap := snapshot{
		Date:    now.Format(dateLayout),
		Windows: t.windows,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal window snapshot: %w", err)
	}
	if err := atomicfile.Write(path, data); err != nil {
		return fmt.Errorf("write window snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot rehydrates windows from a snapshot file. A missing, malformed
// or stale-dated snapshot leaves the tracker empty; only the stale/malformed
// cases are distinguishable to the caller via the returned flag.
func (t *Tracker) LoadSnapshot(path string, now time.Time) (loaded bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read window snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Corrupt state is discarded rather than fatal; the windows refill
		// during the next few polling cycles.
		return false, nil
	}
	if snap.Date != now.Format(dateLayout) {
		return false, nil
	}

	t.windows = make(map[string][]float64, len(snap.Windows))
	for symbol, prices := range snap.Windows {
		if len(prices) > t.period {
			prices = prices[len(prices)-t.period:]
		}
		t.windows[symbol] = prices
	}
	return true, nil
}
