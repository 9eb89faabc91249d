package stats

import "time"

// DailyBucket is one calendar day (UTC) of a series. Timestamp is the unix time of the day start.
type DailyBucket struct {
	Timestamp int64 `json:"timestamp"`
	Value     int64 `json:"value"`
}

// DayStart truncates t to its UTC day.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayRange returns the first and last day of a series of days ending on end's day.
func DayRange(end time.Time, days int) (from, to time.Time) {
	to = DayStart(end)
	from = to.AddDate(0, 0, -(days - 1))
	return from, to
}

// FillDaily returns exactly one bucket per day from..to inclusive, ascending.
// Days missing from points are zero; points outside the range are dropped.
func FillDaily(from, to time.Time, points []DailyBucket) []DailyBucket {
	from, to = DayStart(from), DayStart(to)
	if to.Before(from) {
		return []DailyBucket{}
	}
	byDay := make(map[int64]int64, len(points))
	for _, p := range points {
		byDay[DayStart(time.Unix(p.Timestamp, 0)).Unix()] += p.Value
	}

	out := make([]DailyBucket, 0, int(to.Sub(from)/day)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		ts := d.Unix()
		out = append(out, DailyBucket{Timestamp: ts, Value: byDay[ts]})
	}
	return out
}
