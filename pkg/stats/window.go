package stats

import (
	"time"

	"github.com/canopy-network/explorerx/pkg/query"
)

const (
	// MaxIntervalDays bounds both comparison windows and daily series.
	MaxIntervalDays = 365
	day             = 24 * time.Hour
)

// Window is the half-open range [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Windows returns the current window of days ending at end and the prior
// window of equal length immediately before it.
func Windows(end time.Time, days int) (current, prior Window) {
	span := time.Duration(days) * day
	current = Window{Start: end.Add(-span), End: end}
	prior = Window{Start: current.Start.Add(-span), End: current.Start}
	return current, prior
}

// ResolveInterval validates a requested interval in days. Zero selects the
// largest interval the data supports, measured from earliest to now.
func ResolveInterval(requested int, earliest, now time.Time) (int, error) {
	if requested < 0 {
		return 0, query.Invalid("intervalDays must be positive")
	}
	if requested > MaxIntervalDays {
		return 0, query.Invalid("intervalDays must be at most %d", MaxIntervalDays)
	}
	if requested > 0 {
		return requested, nil
	}
	return FeasibleDays(earliest, now), nil
}

// ComparableDays is the largest interval whose current and prior windows both
// fit inside the history between earliest and now: half of it, at least 1 and
// at most MaxIntervalDays.
func ComparableDays(earliest, now time.Time) int {
	if earliest.IsZero() || !earliest.Before(now) {
		return 1
	}
	days := int(now.Sub(earliest)/day) / 2
	return max(1, min(days, MaxIntervalDays))
}

// FeasibleDays is the number of whole days of history, at least 1 and at most MaxIntervalDays.
func FeasibleDays(earliest, now time.Time) int {
	if earliest.IsZero() || !earliest.Before(now) {
		return 1
	}
	days := int(now.Sub(earliest) / day)
	return max(1, min(days, MaxIntervalDays))
}
