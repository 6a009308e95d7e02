package reports

import "sort"

// GroupKey identifies one aggregation bucket. Year/Month are zero unless the
// caller groups by month.
type GroupKey struct {
	Label string
	Year  int
	Month int
}

// KeyFunc maps a sales line to its aggregation bucket.
type KeyFunc func(SalesLine) GroupKey

// ByClass groups on class name.
func ByClass(l SalesLine) GroupKey {
	return GroupKey{Label: classLabel(l)}
}

// ByCustomer groups on customer name, falling back to UnknownCustomer so no
// revenue is dropped from the totals.
func ByCustomer(l SalesLine) GroupKey {
	return GroupKey{Label: customerLabel(l)}
}

// ByClassMonth groups on class name plus calendar month.
func ByClassMonth(l SalesLine) GroupKey {
	return GroupKey{Label: classLabel(l), Year: l.Year, Month: l.Month}
}

// ByCustomerMonth groups on customer name plus calendar month.
func ByCustomerMonth(l SalesLine) GroupKey {
	return GroupKey{Label: customerLabel(l), Year: l.Year, Month: l.Month}
}

func classLabel(l SalesLine) string {
	if l.ClassName != "" {
		return l.ClassName
	}
	return l.ClassID
}

func customerLabel(l SalesLine) string {
	if l.CustomerName != "" {
		return l.CustomerName
	}
	if l.CustomerID != "" {
		return l.CustomerID
	}
	return UnknownCustomer
}

// Order selects the result ordering.
type Order int

const (
	// OrderRevenueDesc is the default: biggest groups first.
	OrderRevenueDesc Order = iota
	// OrderChronological sorts by (year, month, key) for trend callers.
	OrderChronological
)

// Aggregate reduces a row set into one AggregateRow per distinct key.
// Gross profit percent is always recomputed from the summed totals; the
// per-row source percentage is ignored because averaging percentages would
// misweight high-volume, low-value lines.
func Aggregate(rows []SalesLine, key KeyFunc, order Order) []AggregateRow {
	buckets := make(map[GroupKey]*AggregateRow)
	var keys []GroupKey
	for _, l := range rows {
		k := key(l)
		agg, ok := buckets[k]
		if !ok {
			agg = &AggregateRow{Key: k.Label, Year: k.Year, Month: k.Month}
			buckets[k] = agg
			keys = append(keys, k)
		}
		agg.Quantity += l.Quantity
		agg.Revenue += l.Revenue
		agg.Cost += l.Cost
		agg.GrossProfit += l.GrossProfit
		agg.Lines++
	}

	out := make([]AggregateRow, 0, len(keys))
	for _, k := range keys {
		agg := buckets[k]
		agg.GrossProfitPct = GrossProfitPct(agg.Revenue, agg.Cost)
		out = append(out, *agg)
	}
	sortAggregates(out, order)
	return out
}

// AggregateProfitability reduces project lines by project type. Revenue
// comes from signed amounts on revenue lines; COGS comes from the
// authoritative cost-estimate field, not from the line amount.
func AggregateProfitability(rows []ProfitabilityLine, order Order) []AggregateRow {
	buckets := make(map[string]*AggregateRow)
	var keys []string
	for _, l := range rows {
		k := l.ProjectType
		if k == "" {
			k = "Unclassified"
		}
		agg, ok := buckets[k]
		if !ok {
			agg = &AggregateRow{Key: k}
			buckets[k] = agg
			keys = append(keys, k)
		}
		if l.IsRevenue {
			agg.Revenue += l.Amount
		}
		if l.IsCOGS {
			agg.Cost += l.CostEstimate
		}
		agg.Lines++
	}

	out := make([]AggregateRow, 0, len(keys))
	for _, k := range keys {
		agg := buckets[k]
		agg.GrossProfit = agg.Revenue - agg.Cost
		agg.GrossProfitPct = GrossProfitPct(agg.Revenue, agg.Cost)
		out = append(out, *agg)
	}
	sortAggregates(out, order)
	return out
}

// GrossProfitPct derives margin from summed totals. Zero when revenue is not
// positive, never NaN or Inf.
func GrossProfitPct(revenue, cost float64) float64 {
	if revenue <= 0 {
		return 0
	}
	return (revenue - cost) / revenue * 100
}

func sortAggregates(rows []AggregateRow, order Order) {
	switch order {
	case OrderChronological:
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Year != rows[j].Year {
				return rows[i].Year < rows[j].Year
			}
			if rows[i].Month != rows[j].Month {
				return rows[i].Month < rows[j].Month
			}
			return rows[i].Key < rows[j].Key
		})
	default:
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Revenue != rows[j].Revenue {
				return rows[i].Revenue > rows[j].Revenue
			}
			return rows[i].Key < rows[j].Key
		})
	}
}
