// Package marketcal computes history query windows in the exchange's local
// trading calendar. All math runs in a single fixed timezone; the end of a
// window is snapped backward across weekends and before-open hours so a
// partial session never leaks into daily bars.
package marketcal

import (
	"time"

	"MarketPulse/internal/domain/models"
)

// Exchange timezone and the regular session open.
const (
	exchangeTZ = "America/New_York"
	openHour   = 9
	openMinute = 30
)

var location = mustLoadLocation()

func mustLoadLocation() *time.Location {
	loc, err := time.LoadLocation(exchangeTZ)
	if err != nil {
		// tzdata missing entirely; fixed-offset fallback keeps the math sane.
		return time.FixedZone("ET", -5*60*60)
	}
	return loc
}

// Resolution is the bar size a range is served at.
type Resolution string

const (
	ResolutionDaily  Resolution = "D"
	ResolutionWeekly Resolution = "W"
)

// Window is a resolved [From, To] query range.
type Window struct {
	From       time.Time
	To         time.Time
	Resolution Resolution
}

// RangeWindow resolves a history range keyword to a concrete query window
// anchored at now.
func RangeWindow(rng models.HistoryRange, now time.Time) Window {
	end := SnapToSession(now)

	var days int
	res := ResolutionDaily
	switch rng {
	case models.RangeWeek:
		days = 10
	case models.RangeMonth:
		days = 35
	case models.RangeQuarter:
		days = 100
	case models.RangeYear:
		days = 380
	case models.RangeMax:
		days = 5 * 365
		res = ResolutionWeekly
	default:
		days = 35
	}

	return Window{
		From:       end.AddDate(0, 0, -days),
		To:         end,
		Resolution: res,
	}
}

// SnapToSession moves t backward to the last moment covered by a complete
// trading day: weekends roll back to Friday, and times before the regular
// open roll back one day (possibly across a weekend).
func SnapToSession(t time.Time) time.Time {
	t = t.In(location)

	if beforeOpen(t) {
		t = t.AddDate(0, 0, -1)
		// anchor to late evening so the whole previous session is included
		t = time.Date(t.Year(), t.Month(), t.Day(), 23, 0, 0, 0, location)
	}

	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, -1)
		t = time.Date(t.Year(), t.Month(), t.Day(), 23, 0, 0, 0, location)
	}
	return t
}

func beforeOpen(t time.Time) bool {
	h, m := t.Hour(), t.Minute()
	return h < openHour || (h == openHour && m < openMinute)
}
