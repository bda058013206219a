package calendar

import (
	"testing"
	"time"
)

func newTestHours(t *testing.T) *Hours {
	t.Helper()
	h, err := NewHours("America/New_York", "11:30", "13:00", "16:00")
	if err != nil {
		t.Fatalf("new hours: %v", err)
	}
	return h
}

func eastern(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return time.Date(2025, 6, 2, hour, minute, 0, 0, loc)
}

func TestLunchBoundaries(t *testing.T) {
	h := newTestHours(t)

	if h.InLunch(eastern(t, 11, 29)) {
		t.Fatalf("11:29 should be before lunch")
	}
	if !h.InLunch(eastern(t, 11, 30)) {
		t.Fatalf("11:30 should start lunch")
	}
	if !h.InLunch(eastern(t, 12, 59)) {
		t.Fatalf("12:59 should still be lunch")
	}
	if h.InLunch(eastern(t, 13, 0)) {
		t.Fatalf("13:00 should end lunch")
	}
}

func TestAfterClose(t *testing.T) {
	h := newTestHours(t)

	if h.AfterClose(eastern(t, 15, 59)) {
		t.Fatalf("15:59 should be before close")
	}
	if !h.AfterClose(eastern(t, 16, 0)) {
		t.Fatalf("16:00 should be at close")
	}
}

func TestTradingWindow(t *testing.T) {
	h := newTestHours(t)

	if !h.InTradingWindow(eastern(t, 10, 0)) {
		t.Fatalf("mid-morning should be tradable")
	}
	if h.InTradingWindow(eastern(t, 12, 0)) {
		t.Fatalf("lunch should not be tradable")
	}
	if h.InTradingWindow(eastern(t, 16, 30)) {
		t.Fatalf("after close should not be tradable")
	}
}

func TestTimeZoneConversion(t *testing.T) {
	h := newTestHours(t)
	// 16:00 UTC on 2025-06-02 is 12:00 in New York (EDT).
	utcNoonEastern := time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC)
	if !h.InLunch(utcNoonEastern) {
		t.Fatalf("expected UTC time to convert into the lunch window")
	}
}

func TestRejectsInvertedLunch(t *testing.T) {
	if _, err := NewHours("America/New_York", "13:00", "11:30", "16:00"); err == nil {
		t.Fatalf("expected error for inverted lunch window")
	}
}
