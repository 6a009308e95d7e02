package reports

import (
	"context"
	"log/slog"
	"time"
)

// Store is the read surface the report service depends on.
type Store interface {
	CatalogStore
	SalesLinePage(ctx context.Context, f LineFilter, year, offset, limit int) ([]SalesLine, error)
	ProfitabilityPage(ctx context.Context, year, offset, limit int) ([]ProfitabilityLine, error)
	BudgetsForYear(ctx context.Context, year int, dim Dimension) ([]Budget, error)
}

// Report is an aggregate result plus the partial/complete flag, so callers
// can tell "no data" apart from "a partition failed to fetch".
type Report struct {
	Rows        []AggregateRow `json:"rows"`
	Partial     bool           `json:"partial"`
	FailedYears []int          `json:"failed_years,omitempty"`
}

// ComparisonReport carries the comparison rows and the resolved windows.
type ComparisonReport struct {
	Rows        []PeriodComparison `json:"rows"`
	Current     Period             `json:"current"`
	Prior       Period             `json:"prior"`
	Partial     bool               `json:"partial"`
	FailedYears []int              `json:"failed_years,omitempty"`
}

// VarianceReport pairs budget variance rows with the partial flag.
type VarianceReport struct {
	Rows        []BudgetVarianceRow `json:"rows"`
	Partial     bool                `json:"partial"`
	FailedYears []int               `json:"failed_years,omitempty"`
}

// ServiceConfig tunes fetch and catalog behaviour. Zero values pick the
// defaults.
type ServiceConfig struct {
	PageSize        int
	FetchWorkers    int
	CatalogFromYear int
	Now             func() time.Time
}

// Service coordinates fetching, aggregation, and caching for every report
// shape. Every read recomputes from the store; the cache layer in front is
// version-bumped by sync writes.
type Service struct {
	store    Store
	cache    *Cache
	logger   *slog.Logger
	catalog  *CatalogBuilder
	pageSize int
	workers  int
	fromYear int
	now      func() time.Time
}

// NewService wires a Store with the cache helper.
func NewService(store Store, cache *Cache, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.FetchWorkers <= 0 {
		cfg.FetchWorkers = defaultFetchWorkers
	}
	if cfg.CatalogFromYear <= 0 {
		cfg.CatalogFromYear = 2020
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:    store,
		cache:    cache,
		logger:   logger,
		catalog:  NewCatalogBuilder(store, cfg.PageSize, logger),
		pageSize: cfg.PageSize,
		workers:  cfg.FetchWorkers,
		fromYear: cfg.CatalogFromYear,
		now:      cfg.Now,
	}
}

// Summary aggregates sales lines grouped by the dimension, revenue-desc.
func (s *Service) Summary(ctx context.Context, dim Dimension, f LineFilter) (Report, error) {
	if err := dim.Validate(); err != nil {
		return Report{}, err
	}
	if err := f.Validate(); err != nil {
		return Report{}, err
	}
	key, err := s.cache.BuildKey(ctx, "reports", "summary", string(dim), filterToken(f))
	if err != nil {
		return Report{}, err
	}
	var report Report
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		res, window, err := s.fetchSalesLines(ctx, f)
		if err != nil {
			return nil, err
		}
		rows := filterToWindow(res.Rows, window)
		return Report{
			Rows:        Aggregate(rows, summaryKey(dim), OrderRevenueDesc),
			Partial:     res.Partial,
			FailedYears: res.FailedYears,
		}, nil
	})
	return report, err
}

// Trend aggregates by dimension and month, sorted chronologically.
func (s *Service) Trend(ctx context.Context, dim Dimension, f LineFilter) (Report, error) {
	if err := dim.Validate(); err != nil {
		return Report{}, err
	}
	if err := f.Validate(); err != nil {
		return Report{}, err
	}
	key, err := s.cache.BuildKey(ctx, "reports", "trend", string(dim), filterToken(f))
	if err != nil {
		return Report{}, err
	}
	var report Report
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		res, window, err := s.fetchSalesLines(ctx, f)
		if err != nil {
			return nil, err
		}
		rows := filterToWindow(res.Rows, window)
		return Report{
			Rows:        Aggregate(rows, trendKey(dim), OrderChronological),
			Partial:     res.Partial,
			FailedYears: res.FailedYears,
		}, nil
	})
	return report, err
}

// Comparison computes current-vs-prior window totals per group.
func (s *Service) Comparison(ctx context.Context, dim Dimension, f LineFilter) (ComparisonReport, error) {
	if err := dim.Validate(); err != nil {
		return ComparisonReport{}, err
	}
	if err := f.Validate(); err != nil {
		return ComparisonReport{}, err
	}
	key, err := s.cache.BuildKey(ctx, "reports", "comparison", string(dim), filterToken(f))
	if err != nil {
		return ComparisonReport{}, err
	}
	var report ComparisonReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		current, prior := ComparisonWindows(f.Years, f.Months, s.now())
		fetch := LineFilter{ClassID: f.ClassID, CustomerID: f.CustomerID}
		if len(f.Years) > 0 {
			// The month filter narrows both windows to the same month range,
			// so it is safe to push down to the store.
			fetch.Months = f.Months
		}
		res, err := s.fetchYears(ctx, WindowYears(current, prior), fetch)
		if err != nil {
			return nil, err
		}
		rows := ComparePeriods(res.Rows, comparisonKey(dim), current, prior)
		return ComparisonReport{
			Rows:        rows,
			Current:     current,
			Prior:       prior,
			Partial:     res.Partial,
			FailedYears: res.FailedYears,
		}, nil
	})
	return report, err
}

// Profitability aggregates project lines by project type using the
// authoritative cost estimates.
func (s *Service) Profitability(ctx context.Context, years []int) (Report, error) {
	f := LineFilter{Years: years}
	if err := f.Validate(); err != nil {
		return Report{}, err
	}
	key, err := s.cache.BuildKey(ctx, "reports", "profitability", cacheToken(years))
	if err != nil {
		return Report{}, err
	}
	var report Report
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		scanYears, window := s.resolveYears(years)
		res, err := FetchYears(ctx, scanYears, s.pageSize, s.workers, func(ctx context.Context, year, offset, limit int) ([]ProfitabilityLine, error) {
			return s.store.ProfitabilityPage(ctx, year, offset, limit)
		})
		if err != nil {
			return nil, err
		}
		s.logFailures("profitability", res.FailedYears)
		rows := res.Rows
		if window != nil {
			kept := rows[:0]
			for _, l := range rows {
				if window.Contains(l.Date) {
					kept = append(kept, l)
				}
			}
			rows = kept
		}
		return Report{
			Rows:        AggregateProfitability(rows, OrderRevenueDesc),
			Partial:     res.Partial,
			FailedYears: res.FailedYears,
		}, nil
	})
	return report, err
}

// BudgetVariance joins actuals for a year against planning budgets on the
// dimension key.
func (s *Service) BudgetVariance(ctx context.Context, year int, dim Dimension, thresholdAmount, thresholdPercent *float64) (VarianceReport, error) {
	if err := dim.Validate(); err != nil {
		return VarianceReport{}, err
	}
	f := LineFilter{Years: []int{year}}
	if err := f.Validate(); err != nil {
		return VarianceReport{}, err
	}
	key, err := s.cache.BuildKey(ctx, "reports", "variance", string(dim), cacheToken([]int{year}))
	if err != nil {
		return VarianceReport{}, err
	}
	var report VarianceReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		res, err := s.fetchYears(ctx, []int{year}, LineFilter{})
		if err != nil {
			return nil, err
		}
		actuals := Aggregate(res.Rows, varianceKey(dim), OrderRevenueDesc)
		budgets, err := s.store.BudgetsForYear(ctx, year, dim)
		if err != nil {
			return nil, err
		}
		rows := ComputeBudgetVariance(actuals, budgets, budgetKey(dim), thresholdAmount, thresholdPercent)
		return VarianceReport{
			Rows:        rows,
			Partial:     res.Partial,
			FailedYears: res.FailedYears,
		}, nil
	})
	return report, err
}

// FilterCatalog discovers which years, classes, and customers have data.
func (s *Service) FilterCatalog(ctx context.Context) (FilterCatalog, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "filters")
	if err != nil {
		return FilterCatalog{}, err
	}
	var catalog FilterCatalog
	err = s.cache.FetchJSON(ctx, key, &catalog, func(ctx context.Context) (interface{}, error) {
		return s.catalog.Build(ctx, s.fromYear, s.now().UTC().Year()+1)
	})
	return catalog, err
}

// fetchSalesLines resolves the years to scan and fetches them. When the
// filter has no explicit years the rolling 12-month window decides the
// partitions and the returned window trims the fetched rows.
func (s *Service) fetchSalesLines(ctx context.Context, f LineFilter) (FetchResult[SalesLine], *Period, error) {
	years, window := s.resolveYears(f.Years)
	fetch := f
	fetch.Years = nil
	res, err := s.fetchYears(ctx, years, fetch)
	if err != nil {
		return FetchResult[SalesLine]{}, nil, err
	}
	return res, window, nil
}

func (s *Service) fetchYears(ctx context.Context, years []int, f LineFilter) (FetchResult[SalesLine], error) {
	res, err := FetchYears(ctx, years, s.pageSize, s.workers, func(ctx context.Context, year, offset, limit int) ([]SalesLine, error) {
		return s.store.SalesLinePage(ctx, f, year, offset, limit)
	})
	if err != nil {
		return FetchResult[SalesLine]{}, err
	}
	s.logFailures("sales_lines", res.FailedYears)
	return res, nil
}

// resolveYears returns the partitions to scan. Without explicit years the
// rolling 12-month window ending today applies.
func (s *Service) resolveYears(years []int) ([]int, *Period) {
	if len(years) > 0 {
		return years, nil
	}
	current, _ := rollingWindows(s.now())
	var span []int
	for y := current.Start.Year(); y <= current.End.Year(); y++ {
		span = append(span, y)
	}
	return span, &current
}

func (s *Service) logFailures(table string, failed []int) {
	for _, year := range failed {
		s.logger.Warn("partition fetch failed, continuing with partial result",
			slog.String("table", table), slog.Int("year", year))
	}
}

func filterToWindow(rows []SalesLine, window *Period) []SalesLine {
	if window == nil {
		return rows
	}
	kept := rows[:0]
	for _, l := range rows {
		if window.Contains(l.Date) {
			kept = append(kept, l)
		}
	}
	return kept
}

func summaryKey(dim Dimension) KeyFunc {
	if dim == DimCustomer {
		return ByCustomer
	}
	return ByClass
}

func trendKey(dim Dimension) KeyFunc {
	if dim == DimCustomer {
		return ByCustomerMonth
	}
	return ByClassMonth
}

func comparisonKey(dim Dimension) func(SalesLine) string {
	if dim == DimCustomer {
		return customerLabel
	}
	return classLabel
}

// varianceKey groups actuals by the raw dimension id so they join cleanly
// against budget records, which are keyed by id rather than display name.
func varianceKey(dim Dimension) KeyFunc {
	if dim == DimCustomer {
		return func(l SalesLine) GroupKey {
			id := l.CustomerID
			if id == "" {
				id = UnknownCustomer
			}
			return GroupKey{Label: id}
		}
	}
	return func(l SalesLine) GroupKey {
		return GroupKey{Label: l.ClassID}
	}
}

func budgetKey(dim Dimension) func(Budget) string {
	if dim == DimCustomer {
		return func(b Budget) string { return b.CustomerID }
	}
	return func(b Budget) string { return b.ClassID }
}

func filterToken(f LineFilter) string {
	return cacheToken(f.Years) + ":" + cacheToken(f.Months) + ":" + orDash(f.ClassID) + ":" + orDash(f.CustomerID)
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
