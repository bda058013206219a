package stats

import "math"

// Tracker maintains a fixed-length sliding window of recent prices per symbol
// and derives the simple moving average and the volatility proxy from it.
// The proxy is the mean absolute change between consecutive prices in the
// window, not a true average true range.
type Tracker struct {
	period  int
	windows map[string][]float64
}

func NewTracker(period int) *Tracker {
	return &Tracker{
		period:  period,
		windows: make(map[string][]float64),
	}
}

// Observe appends price to the symbol's window, evicting the oldest entry
// once the window is full, and returns the updated SMA and volatility.
// The SMA is computed over whatever is present; volatility is 0 until the
// window holds at least two observations.
func (t *Tracker) Observe(symbol string, price float64) (sma, volatility float64) {
	window := append(t.windows[symbol], price)
	if len(window) > t.period {
		window = window[len(window)-t.period:]
	}
	t.windows[symbol] = window

	sum := 0.0
	for _, p := range window {
		sum += p
	}
	sma = sum / float64(len(window))

	if len(window) < 2 {
		return sma, 0
	}
	deltas := 0.0
	for i := 1; i < len(window); i++ {
		deltas += math.Abs(window[i] - window[i-1])
	}
	volatility = deltas / float64(len(window)-1)
	return sma, volatility
}

// Window returns a copy of the symbol's current price window.
func (t *Tracker) Window(symbol string) []float64 {
	window := t.windows[symbol]
	out := make([]float64, len(window))
	copy(out, window)
	return out
}

func (t *Tracker) Len(symbol string) int {
	return len(t.windows[symbol])
}
