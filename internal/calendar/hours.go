package calendar

import (
	"fmt"
	"time"
)

// Hours evaluates wall-clock trading boundaries in the exchange time zone:
// the midday quiet period and the close. Whether the market is open at all
// comes from the broker's clock, not from here.
type Hours struct {
	loc        *time.Location
	lunchStart int
	lunchEnd   int
	close      int
}

func NewHours(timezone, lunchStart, lunchEnd, marketClose string) (*Hours, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	ls, err := parseClock(lunchStart)
	if err != nil {
		return nil, fmt.Errorf("lunch_start: %w", err)
	}
	le, err := parseClock(lunchEnd)
	if err != nil {
		return nil, fmt.Errorf("lunch_end: %w", err)
	}
	mc, err := parseClock(marketClose)
	if err != nil {
		return nil, fmt.Errorf("market_close: %w", err)
	}
	if ls >= le {
		return nil, fmt.Errorf("lunch_start must precede lunch_end")
	}
	return &Hours{loc: loc, lunchStart: ls, lunchEnd: le, close: mc}, nil
}

// Now returns the current time in the exchange time zone.
func (h *Hours) Now() time.Time {
	return time.Now().In(h.loc)
}

// InLunch reports whether now falls in [lunch_start, lunch_end).
func (h *Hours) InLunch(now time.Time) bool {
	m := minuteOfDay(now.In(h.loc))
	return m >= h.lunchStart && m < h.lunchEnd
}

// AfterClose reports whether now is at or past market close.
func (h *Hours) AfterClose(now time.Time) bool {
	return minuteOfDay(now.In(h.loc)) >= h.close
}

// InTradingWindow reports whether trading cycles may run: outside lunch and
// before close. It does not know about weekends or holidays.
func (h *Hours) InTradingWindow(now time.Time) bool {
	return !h.InLunch(now) && !h.AfterClose(now)
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("parse clock time %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
