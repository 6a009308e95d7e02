package reports

import (
	"math"
	"testing"
)

func fixtureLines() []SalesLine {
	return []SalesLine{
		{TransactionID: "T1", LineID: "1", ClassName: "Hardware", CustomerName: "Acme", Year: 2025, Month: 1, Quantity: 10, Revenue: 1000, Cost: 600, GrossProfit: 400},
		{TransactionID: "T1", LineID: "2", ClassName: "Hardware", CustomerName: "Acme", Year: 2025, Month: 2, Quantity: 5, Revenue: 500, Cost: 300, GrossProfit: 200},
		{TransactionID: "T2", LineID: "1", ClassName: "Software", CustomerName: "Globex", Year: 2025, Month: 1, Quantity: 1, Revenue: 2400, Cost: 400, GrossProfit: 2000},
		{TransactionID: "T3", LineID: "1", ClassName: "Services", Year: 2025, Month: 3, Quantity: 8, Revenue: 800, Cost: 800, GrossProfit: 0},
	}
}

func TestAggregateByClassSumsAndRecomputesMargin(t *testing.T) {
	rows := Aggregate(fixtureLines(), ByClass, OrderRevenueDesc)
	if len(rows) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(rows))
	}

	// Default ordering is revenue descending.
	if rows[0].Key != "Software" || rows[1].Key != "Hardware" || rows[2].Key != "Services" {
		t.Fatalf("unexpected order: %s, %s, %s", rows[0].Key, rows[1].Key, rows[2].Key)
	}

	hw := rows[1]
	if hw.Revenue != 1500 || hw.Cost != 900 || hw.GrossProfit != 600 || hw.Quantity != 15 || hw.Lines != 2 {
		t.Fatalf("unexpected hardware totals: %+v", hw)
	}
	if math.Abs(hw.GrossProfitPct-40) > 1e-9 {
		t.Fatalf("expected margin 40, got %f", hw.GrossProfitPct)
	}
}

func TestAggregateRevenueReconcilesWithInput(t *testing.T) {
	lines := fixtureLines()
	var want float64
	for _, l := range lines {
		want += l.Revenue
	}
	var got float64
	for _, row := range Aggregate(lines, ByClass, OrderRevenueDesc) {
		got += row.Revenue
	}
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("aggregated revenue %f does not reconcile with input %f", got, want)
	}
}

func TestAggregateByCustomerFallsBackToUnknown(t *testing.T) {
	rows := Aggregate(fixtureLines(), ByCustomer, OrderRevenueDesc)
	var found bool
	for _, row := range rows {
		if row.Key == UnknownCustomer {
			found = true
			if row.Revenue != 800 {
				t.Fatalf("unexpected unknown-customer revenue: %f", row.Revenue)
			}
		}
	}
	if !found {
		t.Fatal("expected an Unknown bucket for lines without a customer")
	}
}

func TestAggregateZeroRevenueYieldsZeroMargin(t *testing.T) {
	lines := []SalesLine{
		{ClassName: "Returns", Revenue: 0, Cost: 50},
		{ClassName: "Credits", Revenue: -100, Cost: 0},
	}
	for _, row := range Aggregate(lines, ByClass, OrderRevenueDesc) {
		if row.GrossProfitPct != 0 {
			t.Fatalf("group %s: expected margin 0 for non-positive revenue, got %f", row.Key, row.GrossProfitPct)
		}
	}
}

func TestAggregateChronologicalOrder(t *testing.T) {
	rows := Aggregate(fixtureLines(), ByClassMonth, OrderChronological)
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if cur.Year < prev.Year || (cur.Year == prev.Year && cur.Month < prev.Month) {
			t.Fatalf("rows out of chronological order at %d: %+v then %+v", i, prev, cur)
		}
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	rows := Aggregate(nil, ByClass, OrderRevenueDesc)
	if len(rows) != 0 {
		t.Fatalf("expected empty output, got %d rows", len(rows))
	}
}

func TestAggregateProfitabilityUsesCostEstimateForCOGS(t *testing.T) {
	lines := []ProfitabilityLine{
		{ProjectType: "Fixed Bid", IsRevenue: true, Amount: 5000},
		{ProjectType: "Fixed Bid", IsCOGS: true, Amount: -123, CostEstimate: 2000},
		{IsRevenue: true, Amount: 300},
	}
	rows := AggregateProfitability(lines, OrderRevenueDesc)
	if len(rows) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(rows))
	}
	fixed := rows[0]
	if fixed.Key != "Fixed Bid" {
		t.Fatalf("unexpected first group: %s", fixed.Key)
	}
	if fixed.Revenue != 5000 || fixed.Cost != 2000 || fixed.GrossProfit != 3000 {
		t.Fatalf("unexpected totals: %+v", fixed)
	}
	if math.Abs(fixed.GrossProfitPct-60) > 1e-9 {
		t.Fatalf("expected margin 60, got %f", fixed.GrossProfitPct)
	}
	if rows[1].Key != "Unclassified" {
		t.Fatalf("expected Unclassified fallback, got %s", rows[1].Key)
	}
}

func TestGrossProfitPct(t *testing.T) {
	cases := []struct {
		name          string
		revenue, cost float64
		want          float64
	}{
		{"normal", 200, 150, 25},
		{"zero revenue", 0, 100, 0},
		{"negative revenue", -50, 10, 0},
		{"negative margin", 100, 150, -50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := GrossProfitPct(tc.revenue, tc.cost)
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Fatalf("margin must be finite, got %f", got)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("expected %f, got %f", tc.want, got)
			}
		})
	}
}
