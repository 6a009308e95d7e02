package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockStore struct {
	linesByYear map[int][]SalesLine
	lineErrs    map[int]error
	lineCalls   int

	profitByYear map[int][]ProfitabilityLine

	budgets    []Budget
	budgetErr  error
	budgetDim  Dimension
	budgetYear int

	catalogYears map[int]bool
	classes      []string
	customers    map[int][]CustomerRef
}

func (m *mockStore) SalesLinePage(ctx context.Context, f LineFilter, year, offset, limit int) ([]SalesLine, error) {
	m.lineCalls++
	if err := m.lineErrs[year]; err != nil {
		return nil, err
	}
	rows := m.linesByYear[year]
	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (m *mockStore) ProfitabilityPage(ctx context.Context, year, offset, limit int) ([]ProfitabilityLine, error) {
	rows := m.profitByYear[year]
	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (m *mockStore) BudgetsForYear(ctx context.Context, year int, dim Dimension) ([]Budget, error) {
	m.budgetYear = year
	m.budgetDim = dim
	return m.budgets, m.budgetErr
}

func (m *mockStore) YearHasData(ctx context.Context, year int) (bool, error) {
	return m.catalogYears[year], nil
}

func (m *mockStore) DistinctClasses(ctx context.Context, limit int) ([]string, error) {
	return m.classes, nil
}

func (m *mockStore) CustomersForYear(ctx context.Context, year, limit int) ([]CustomerRef, error) {
	return m.customers[year], nil
}

func fixedNow() time.Time {
	return time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, store Store) (*Service, *Cache, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(store, cache, nil, ServiceConfig{
		PageSize:        1000,
		FetchWorkers:    2,
		CatalogFromYear: 2024,
		Now:             fixedNow,
	})
	return svc, cache, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestSummaryCachesUntilBumped(t *testing.T) {
	store := &mockStore{
		linesByYear: map[int][]SalesLine{
			2025: {
				{ClassName: "Hardware", Date: mustUTC(2025, time.March, 1, 0, 0, 0, 0), Revenue: 100, Cost: 40, GrossProfit: 60},
			},
		},
	}
	svc, cache, cleanup := newTestService(t, store)
	defer cleanup()

	ctx := context.Background()
	filter := LineFilter{Years: []int{2025}}

	first, err := svc.Summary(ctx, DimClass, filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Rows) != 1 || first.Rows[0].Key != "Hardware" {
		t.Fatalf("unexpected report: %+v", first)
	}
	callsAfterFirst := store.lineCalls

	second, err := svc.Summary(ctx, DimClass, filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lineCalls != callsAfterFirst {
		t.Fatalf("expected cached result, store hit again (%d -> %d)", callsAfterFirst, store.lineCalls)
	}
	if len(second.Rows) != 1 || second.Rows[0].Revenue != 100 {
		t.Fatalf("cached report mismatch: %+v", second)
	}

	if err := cache.Bump(ctx); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if _, err := svc.Summary(ctx, DimClass, filter); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.lineCalls == callsAfterFirst {
		t.Fatal("expected recompute after version bump")
	}
}

func TestSummaryRejectsBadFilterBeforeFetching(t *testing.T) {
	store := &mockStore{}
	svc, _, cleanup := newTestService(t, store)
	defer cleanup()

	_, err := svc.Summary(context.Background(), DimClass, LineFilter{Months: []int{13}})
	if !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	_, err = svc.Summary(context.Background(), "region", LineFilter{})
	if !errors.Is(err, ErrInvalidDim) {
		t.Fatalf("expected ErrInvalidDim, got %v", err)
	}
	if store.lineCalls != 0 {
		t.Fatal("validation failures must not reach the store")
	}
}

func TestSummaryPartialWhenPartitionFails(t *testing.T) {
	store := &mockStore{
		linesByYear: map[int][]SalesLine{
			2025: {{ClassName: "Hardware", Date: mustUTC(2025, time.May, 1, 0, 0, 0, 0), Revenue: 100}},
		},
		lineErrs: map[int]error{2024: errors.New("backend down")},
	}
	svc, _, cleanup := newTestService(t, store)
	defer cleanup()

	report, err := svc.Summary(context.Background(), DimClass, LineFilter{Years: []int{2024, 2025}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Partial {
		t.Fatal("expected partial report")
	}
	if len(report.FailedYears) != 1 || report.FailedYears[0] != 2024 {
		t.Fatalf("unexpected failed years: %v", report.FailedYears)
	}
	if len(report.Rows) != 1 || report.Rows[0].Revenue != 100 {
		t.Fatalf("surviving rows must still aggregate: %+v", report.Rows)
	}
}

func TestSummaryRollingWindowTrimsRows(t *testing.T) {
	// With no year filter the rolling window 2025-09-01..2026-08-30 applies:
	// an October line is inside, a February line is not.
	store := &mockStore{
		linesByYear: map[int][]SalesLine{
			2025: {
				{ClassName: "Kept", Date: mustUTC(2025, time.October, 15, 0, 0, 0, 0), Revenue: 10},
				{ClassName: "Trimmed", Date: mustUTC(2025, time.February, 1, 0, 0, 0, 0), Revenue: 99},
			},
		},
	}
	svc, _, cleanup := newTestService(t, store)
	defer cleanup()

	report, err := svc.Summary(context.Background(), DimClass, LineFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Rows) != 1 || report.Rows[0].Key != "Kept" {
		t.Fatalf("expected only the in-window row, got %+v", report.Rows)
	}
}

func TestComparisonAssignsWindows(t *testing.T) {
	store := &mockStore{
		linesByYear: map[int][]SalesLine{
			2024: {{CustomerName: "Acme", Date: mustUTC(2024, time.April, 1, 0, 0, 0, 0), Revenue: 100}},
			2025: {{CustomerName: "Acme", Date: mustUTC(2025, time.April, 1, 0, 0, 0, 0), Revenue: 150}},
		},
	}
	svc, _, cleanup := newTestService(t, store)
	defer cleanup()

	report, err := svc.Comparison(context.Background(), DimCustomer, LineFilter{Years: []int{2025}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Current.Start.Year() != 2025 || report.Prior.Start.Year() != 2024 {
		t.Fatalf("unexpected windows: %+v / %+v", report.Current, report.Prior)
	}
	if len(report.Rows) != 1 {
		t.Fatalf("expected 1 comparison row, got %d", len(report.Rows))
	}
	acme := report.Rows[0]
	if acme.Current.Revenue != 150 || acme.Prior.Revenue != 100 || acme.ChangePct != 50 {
		t.Fatalf("unexpected comparison: %+v", acme)
	}
}

func TestProfitabilityAggregatesByProjectType(t *testing.T) {
	store := &mockStore{
		profitByYear: map[int][]ProfitabilityLine{
			2025: {
				{ProjectType: "Retainer", IsRevenue: true, Amount: 900, Date: mustUTC(2025, time.March, 1, 0, 0, 0, 0)},
				{ProjectType: "Retainer", IsCOGS: true, CostEstimate: 300, Date: mustUTC(2025, time.March, 2, 0, 0, 0, 0)},
			},
		},
	}
	svc, _, cleanup := newTestService(t, store)
	defer cleanup()

	report, err := svc.Profitability(context.Background(), []int{2025})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Rows) != 1 {
		t.Fatalf("expected 1 group, got %d", len(report.Rows))
	}
	row := report.Rows[0]
	if row.Key != "Retainer" || row.Revenue != 900 || row.Cost != 300 || row.GrossProfit != 600 {
		t.Fatalf("unexpected totals: %+v", row)
	}
}

func TestBudgetVarianceJoinsOnDimensionID(t *testing.T) {
	store := &mockStore{
		linesByYear: map[int][]SalesLine{
			2025: {{ClassID: "HW", ClassName: "Hardware", Date: mustUTC(2025, time.May, 1, 0, 0, 0, 0), Revenue: 1200, GrossProfit: 400}},
		},
		budgets: []Budget{{Year: 2025, ClassID: "HW", Revenue: 1000, GrossProfit: 350}},
	}
	svc, _, cleanup := newTestService(t, store)
	defer cleanup()

	report, err := svc.BudgetVariance(context.Background(), 2025, DimClass, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.budgetYear != 2025 || store.budgetDim != DimClass {
		t.Fatalf("unexpected budget query: year=%d dim=%s", store.budgetYear, store.budgetDim)
	}
	if len(report.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(report.Rows))
	}
	if report.Rows[0].Key != "HW" || report.Rows[0].Variance != 200 {
		t.Fatalf("unexpected variance row: %+v", report.Rows[0])
	}
}

func TestFilterCatalogUsesConfiguredRange(t *testing.T) {
	store := &mockStore{
		catalogYears: map[int]bool{2025: true},
		classes:      []string{"Hardware"},
		customers:    map[int][]CustomerRef{2025: {{ID: "c1", Name: "Acme"}}},
	}
	svc, _, cleanup := newTestService(t, store)
	defer cleanup()

	catalog, err := svc.FilterCatalog(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(catalog.Years) != 1 || catalog.Years[0] != 2025 {
		t.Fatalf("unexpected years: %v", catalog.Years)
	}
	if len(catalog.Customers) != 1 || catalog.Customers[0].Name != "Acme" {
		t.Fatalf("unexpected customers: %v", catalog.Customers)
	}
}
