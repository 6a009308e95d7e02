package reports

import "sort"

// changeFromZeroPct is the documented sentinel for growth from a zero prior:
// a true percent change from zero is undefined, so the engine reports a flat
// 100 instead of infinity.
const changeFromZeroPct = 100

// ComparePeriods splits rows into the current and prior windows by line date
// and emits window-scoped totals plus percent change per group. Rows outside
// both windows are ignored. Pure function.
func ComparePeriods(rows []SalesLine, key func(SalesLine) string, current, prior Period) []PeriodComparison {
	buckets := make(map[string]*PeriodComparison)
	var keys []string
	for _, l := range rows {
		inCurrent := current.Contains(l.Date)
		if !inCurrent && !prior.Contains(l.Date) {
			continue
		}
		k := key(l)
		cmp, ok := buckets[k]
		if !ok {
			cmp = &PeriodComparison{Key: k}
			buckets[k] = cmp
			keys = append(keys, k)
		}
		t := &cmp.Prior
		if inCurrent {
			t = &cmp.Current
		}
		t.Quantity += l.Quantity
		t.Revenue += l.Revenue
		t.Cost += l.Cost
		t.GrossProfit += l.GrossProfit
		t.Lines++
	}

	out := make([]PeriodComparison, 0, len(keys))
	for _, k := range keys {
		cmp := buckets[k]
		cmp.ChangePct = ChangePct(cmp.Current.Revenue, cmp.Prior.Revenue)
		out = append(out, *cmp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Current.Revenue != out[j].Current.Revenue {
			return out[i].Current.Revenue > out[j].Current.Revenue
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ChangePct computes percent change between windows. Prior of zero with a
// positive current yields the changeFromZeroPct sentinel; two zeroes yield 0.
func ChangePct(current, prior float64) float64 {
	switch {
	case prior > 0:
		return (current - prior) / prior * 100
	case current > 0:
		return changeFromZeroPct
	default:
		return 0
	}
}
