package activity

import "time"

const dateLayout = "2006-01-02"

// Aggregate buckets events of typ into days trailing window ending on the UTC
// day of now, oldest first. An empty typ counts every event against the
// commit thresholds. Events outside the window are ignored.
func Aggregate(events []Event, typ Type, days int, now time.Time) []Point {
	if days <= 0 {
		return []Point{}
	}
	today := now.UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	points := make([]Point, days)
	failed := make([]bool, days)
	for i := range points {
		points[i].Date = start.AddDate(0, 0, i).Format(dateLayout)
	}

	for _, ev := range events {
		if typ != "" && ev.Type != typ {
			continue
		}
		day := ev.OccurredAt.UTC().Truncate(24 * time.Hour)
		idx := int(day.Sub(start) / (24 * time.Hour))
		if day.Before(start) || idx >= days {
			continue
		}
		points[idx].Count++
		if ev.Failed() {
			failed[idx] = true
		}
	}

	for i := range points {
		points[i].Level = Level(levelType(typ), points[i].Count)
		if typ == TypeDeployment {
			points[i].Status = dayStatus(points[i].Count, failed[i])
		}
	}
	return points
}

// Rollup sums same-day counts across per-project series and recomputes
// levels from the sums. Every series must cover the same window.
func Rollup(series [][]Point, typ Type) []Point {
	if len(series) == 0 {
		return []Point{}
	}
	out := make([]Point, len(series[0]))
	failed := make([]bool, len(out))
	for i := range out {
		out[i].Date = series[0][i].Date
	}
	for _, s := range series {
		for i := range s {
			if i >= len(out) {
				break
			}
			out[i].Count += s[i].Count
			if s[i].Status == StatusFailed {
				failed[i] = true
			}
		}
	}
	for i := range out {
		out[i].Level = Level(levelType(typ), out[i].Count)
		if typ == TypeDeployment {
			out[i].Status = dayStatus(out[i].Count, failed[i])
		}
	}
	return out
}

func dayStatus(count int, failed bool) Status {
	switch {
	case failed:
		return StatusFailed
	case count > 0:
		return StatusSuccess
	default:
		return StatusNeutral
	}
}

func levelType(typ Type) Type {
	if typ == "" {
		return TypeCommit
	}
	return typ
}
