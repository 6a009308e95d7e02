package reports

import (
	"context"
	"log/slog"
	"sort"
)

// CatalogStore is the bounded-read surface the catalog builder needs.
type CatalogStore interface {
	// YearHasData issues a limit-1 existence probe, never a scan.
	YearHasData(ctx context.Context, year int) (bool, error)
	// DistinctClasses reads class names under a cap; class cardinality is
	// assumed small.
	DistinctClasses(ctx context.Context, limit int) ([]string, error)
	// CustomersForYear reads distinct (id, name) pairs for one year, capped
	// at the store's page boundary.
	CustomersForYear(ctx context.Context, year, limit int) ([]CustomerRef, error)
}

// classScanCap bounds the distinct-class read.
const classScanCap = 200

// CatalogBuilder discovers which filter dimensions currently have data
// without a full table scan.
type CatalogBuilder struct {
	store    CatalogStore
	logger   *slog.Logger
	pageSize int
}

// NewCatalogBuilder wires a builder. pageSize caps the per-year customer read.
func NewCatalogBuilder(store CatalogStore, pageSize int, logger *slog.Logger) *CatalogBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &CatalogBuilder{store: store, logger: logger, pageSize: pageSize}
}

// Build probes the candidate year range [fromYear, toYear] and assembles the
// catalog. A probe failure counts as "no data that year" so the catalog
// degrades instead of failing; classes and customers are only gathered for
// years confirmed to have data.
func (b *CatalogBuilder) Build(ctx context.Context, fromYear, toYear int) (FilterCatalog, error) {
	if err := ctx.Err(); err != nil {
		return FilterCatalog{}, err
	}

	years := []int{}
	for y := fromYear; y <= toYear; y++ {
		ok, err := b.store.YearHasData(ctx, y)
		if err != nil {
			b.logger.Warn("catalog year probe failed", slog.Int("year", y), slog.Any("error", err))
			continue
		}
		if ok {
			years = append(years, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	catalog := FilterCatalog{
		Years:     years,
		Months:    monthsOfYear(),
		Classes:   []string{},
		Customers: []CustomerRef{},
	}

	classes, err := b.store.DistinctClasses(ctx, classScanCap)
	if err != nil {
		b.logger.Warn("catalog class scan failed", slog.Any("error", err))
	} else if len(classes) > 0 {
		sort.Strings(classes)
		catalog.Classes = classes
	}

	seen := make(map[string]bool)
	for _, y := range years {
		refs, err := b.store.CustomersForYear(ctx, y, b.pageSize)
		if err != nil {
			b.logger.Warn("catalog customer scan failed", slog.Int("year", y), slog.Any("error", err))
			continue
		}
		for _, ref := range refs {
			if seen[ref.ID] {
				continue
			}
			seen[ref.ID] = true
			catalog.Customers = append(catalog.Customers, ref)
		}
	}
	sort.Slice(catalog.Customers, func(i, j int) bool {
		if catalog.Customers[i].Name != catalog.Customers[j].Name {
			return catalog.Customers[i].Name < catalog.Customers[j].Name
		}
		return catalog.Customers[i].ID < catalog.Customers[j].ID
	})

	return catalog, nil
}

func monthsOfYear() []int {
	months := make([]int, 12)
	for i := range months {
		months[i] = i + 1
	}
	return months
}
