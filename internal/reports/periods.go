package reports

import "time"

// Window boundaries are computed on UTC calendar days. Month ends resolve to
// the last calendar day at 23:59:59.999 so date-only stored values never
// drift across a timezone edge.

// ComparisonWindows resolves the current and prior reporting windows for a
// filter. Both windows are contiguous, non-overlapping, and span the same
// number of calendar months; equal-length holds at month granularity, not in
// days.
//
// Unfiltered: current is the rolling 12 calendar months ending today; prior
// is the 12 months before that.
//
// Year-filtered: current runs Jan 1 of the minimum selected year through
// Dec 31 of the maximum (narrowed to the min/max selected months when months
// are filtered too); prior is the identical range shifted back one year per
// selected year so the windows never overlap.
func ComparisonWindows(years, months []int, now time.Time) (current, prior Period) {
	if len(years) == 0 {
		return rollingWindows(now)
	}

	minYear, maxYear := minMax(years)
	startMonth, endMonth := 1, 12
	if len(months) > 0 {
		startMonth, endMonth = minMax(months)
	}

	current = Period{
		Start: monthStart(minYear, startMonth),
		End:   monthEnd(maxYear, endMonth),
	}
	shift := maxYear - minYear + 1
	prior = Period{
		Start: monthStart(minYear-shift, startMonth),
		End:   monthEnd(maxYear-shift, endMonth),
	}
	return current, prior
}

// rollingWindows builds the default trailing-12-months pair ending today.
// Current runs from the first of the month 11 months back through today, so
// it is a partial 12th month; prior is the 12 full months before current's
// start. The pair matches in calendar months, not in day count.
func rollingWindows(now time.Time) (current, prior Period) {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 999e6, time.UTC)
	start := monthStart(now.Year(), int(now.Month())).AddDate(0, -11, 0)
	current = Period{Start: start, End: end}
	prior = Period{
		Start: start.AddDate(-1, 0, 0),
		End:   start.Add(-time.Millisecond),
	}
	return current, prior
}

// WindowYears lists every calendar year the two windows touch, ascending.
// These are the partitions the fetcher must scan to cover a comparison.
func WindowYears(current, prior Period) []int {
	var years []int
	for y := prior.Start.Year(); y <= current.End.Year(); y++ {
		years = append(years, y)
	}
	return years
}

func monthStart(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

func monthEnd(year, month int) time.Time {
	return monthStart(year, month).AddDate(0, 1, 0).Add(-time.Millisecond)
}

func minMax(values []int) (lo, hi int) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
