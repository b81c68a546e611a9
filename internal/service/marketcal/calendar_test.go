package marketcal

import (
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
)

func TestSnapToSessionWeekend(t *testing.T) {
	// Saturday, 2024-10-12 noon ET.
	sat := time.Date(2024, 10, 12, 12, 0, 0, 0, location)
	got := SnapToSession(sat)
	if got.Weekday() != time.Friday {
		t.Fatalf("expected Friday, got %s", got.Weekday())
	}
	if got.Day() != 11 {
		t.Fatalf("expected Oct 11, got %v", got)
	}
}

func TestSnapToSessionSunday(t *testing.T) {
	sun := time.Date(2024, 10, 13, 18, 0, 0, 0, location)
	got := SnapToSession(sun)
	if got.Weekday() != time.Friday {
		t.Fatalf("expected Friday, got %s", got.Weekday())
	}
}

func TestSnapToSessionBeforeOpen(t *testing.T) {
	// Tuesday 08:00 ET rolls back to Monday evening.
	tue := time.Date(2024, 10, 15, 8, 0, 0, 0, location)
	got := SnapToSession(tue)
	if got.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %s", got.Weekday())
	}
	if got.Hour() != 23 {
		t.Fatalf("expected evening anchor, got hour %d", got.Hour())
	}
}

func TestSnapToSessionMondayPreOpen(t *testing.T) {
	// Monday pre-open crosses the whole weekend back to Friday.
	mon := time.Date(2024, 10, 14, 9, 0, 0, 0, location)
	got := SnapToSession(mon)
	if got.Weekday() != time.Friday {
		t.Fatalf("expected Friday, got %s", got.Weekday())
	}
	if got.Day() != 11 {
		t.Fatalf("expected Oct 11, got %v", got)
	}
}

func TestSnapToSessionRegularHours(t *testing.T) {
	wed := time.Date(2024, 10, 16, 14, 30, 0, 0, location)
	got := SnapToSession(wed)
	if !got.Equal(wed) {
		t.Fatalf("expected unchanged, got %v", got)
	}
}

func TestRangeWindowQuarter(t *testing.T) {
	now := time.Date(2024, 10, 16, 14, 30, 0, 0, location)
	w := RangeWindow(models.RangeQuarter, now)
	if w.Resolution != ResolutionDaily {
		t.Fatalf("expected daily bars, got %s", w.Resolution)
	}
	if days := int(w.To.Sub(w.From).Hours() / 24); days != 100 {
		t.Fatalf("expected 100-day window, got %d", days)
	}
}

func TestRangeWindowMaxIsWeekly(t *testing.T) {
	now := time.Date(2024, 10, 16, 14, 30, 0, 0, location)
	w := RangeWindow(models.RangeMax, now)
	if w.Resolution != ResolutionWeekly {
		t.Fatalf("expected weekly bars, got %s", w.Resolution)
	}
	if !w.From.Before(w.To.AddDate(-4, 0, 0)) {
		t.Fatalf("expected multi-year span, got %v - %v", w.From, w.To)
	}
}

func TestRangeWindowUnknownDefaultsToMonth(t *testing.T) {
	now := time.Date(2024, 10, 16, 14, 30, 0, 0, location)
	w := RangeWindow(models.HistoryRange("bogus"), now)
	if days := int(w.To.Sub(w.From).Hours() / 24); days != 35 {
		t.Fatalf("expected 35-day default, got %d", days)
	}
}
