package reports

import (
	"math"
	"sort"
)

// BudgetVarianceRow pairs actual totals with the planning budget for one
// group and flags rows exceeding the configured thresholds.
type BudgetVarianceRow struct {
	Key           string  `json:"key"`
	ActualRevenue float64 `json:"actual_revenue"`
	BudgetRevenue float64 `json:"budget_revenue"`
	ActualGP      float64 `json:"actual_gross_profit"`
	BudgetGP      float64 `json:"budget_gross_profit"`
	Variance      float64 `json:"variance"`
	VariancePct   float64 `json:"variance_pct"`
	Flagged       bool    `json:"flagged"`
}

// ComputeBudgetVariance merges actual aggregates with budget records on the
// group key and applies threshold flags. Groups present on only one side
// still appear, with the missing side zeroed, so nothing is dropped.
func ComputeBudgetVariance(actuals []AggregateRow, budgets []Budget, budgetKey func(Budget) string, thresholdAmount, thresholdPercent *float64) []BudgetVarianceRow {
	lookup := make(map[string]BudgetVarianceRow)
	var keys []string
	for _, a := range actuals {
		if _, ok := lookup[a.Key]; !ok {
			keys = append(keys, a.Key)
		}
		row := lookup[a.Key]
		row.Key = a.Key
		row.ActualRevenue = round2(row.ActualRevenue + a.Revenue)
		row.ActualGP = round2(row.ActualGP + a.GrossProfit)
		lookup[a.Key] = row
	}
	for _, b := range budgets {
		k := budgetKey(b)
		if k == "" {
			continue
		}
		if _, ok := lookup[k]; !ok {
			keys = append(keys, k)
		}
		row := lookup[k]
		row.Key = k
		row.BudgetRevenue = round2(row.BudgetRevenue + b.Revenue)
		row.BudgetGP = round2(row.BudgetGP + b.GrossProfit)
		lookup[k] = row
	}

	rows := make([]BudgetVarianceRow, 0, len(keys))
	for _, k := range keys {
		row := lookup[k]
		row.Variance = round2(row.ActualRevenue - row.BudgetRevenue)
		if row.BudgetRevenue != 0 {
			row.VariancePct = round2(row.Variance / math.Abs(row.BudgetRevenue) * 100)
		}
		row.Flagged = exceedsThreshold(row, thresholdAmount, thresholdPercent)
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return math.Abs(rows[i].Variance) > math.Abs(rows[j].Variance)
	})
	return rows
}

func exceedsThreshold(row BudgetVarianceRow, amt, pct *float64) bool {
	if amt != nil && math.Abs(row.Variance) >= *amt {
		return true
	}
	if pct != nil && math.Abs(row.VariancePct) >= *pct {
		return true
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
