package reports

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/marginview/marginview/internal/platform/store"
)

// Table names shared with the sync writer.
const (
	TableSalesLines         = "sales_lines"
	TableProfitabilityLines = "profitability_lines"
	TableBudgets            = "budgets"
)

var salesLineColumns = []string{
	"transaction_id", "line_id", "type", "number", "date", "posting_period",
	"year", "month", "class_id", "class_name", "class_category", "parent_class",
	"customer_id", "customer_name", "account_id", "account_name",
	"quantity", "revenue", "cost", "gross_profit", "gross_profit_pct",
	"item_id", "item_name", "item_description",
}

var profitabilityColumns = []string{
	"transaction_id", "line_id", "date", "year", "month",
	"is_revenue", "is_cogs", "amount", "cost_estimate",
	"project_type", "account_type", "customer_id", "customer_name",
}

var budgetColumns = []string{
	"year", "month", "class_id", "customer_id",
	"revenue", "units", "cost", "gross_profit",
}

// salesLineOrder keeps offset paging stable: without a deterministic sort an
// offset scan can skip or duplicate rows when the table mutates mid-scan.
var salesLineOrder = []string{"transaction_id", "line_id"}

// Repository reads synced rows back through the predicate store client.
type Repository struct {
	store *store.Client
}

// NewRepository wraps a store client.
func NewRepository(client *store.Client) *Repository {
	return &Repository{store: client}
}

// SalesLinePage fetches one page of sales lines for a year partition.
func (r *Repository) SalesLinePage(ctx context.Context, f LineFilter, year, offset, limit int) ([]SalesLine, error) {
	preds := []store.Predicate{store.Eq("year", year)}
	if len(f.Months) > 0 {
		preds = append(preds, store.In("month", f.Months))
	}
	if f.ClassID != "" {
		preds = append(preds, store.Eq("class_id", f.ClassID))
	}
	if f.CustomerID != "" {
		preds = append(preds, store.Eq("customer_id", f.CustomerID))
	}
	rows, err := r.store.Select(ctx, TableSalesLines, salesLineColumns, preds, salesLineOrder, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSalesLines(rows)
}

// ProfitabilityPage fetches one page of project lines for a year partition.
func (r *Repository) ProfitabilityPage(ctx context.Context, year, offset, limit int) ([]ProfitabilityLine, error) {
	preds := []store.Predicate{store.Eq("year", year)}
	rows, err := r.store.Select(ctx, TableProfitabilityLines, profitabilityColumns, preds, salesLineOrder, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfitabilityLines(rows)
}

// BudgetsForYear loads planning records for a year and dimension. The
// dimension decides which key column must be populated.
func (r *Repository) BudgetsForYear(ctx context.Context, year int, dim Dimension) ([]Budget, error) {
	preds := []store.Predicate{store.Eq("year", year)}
	orderBy := []string{"year", "month", "class_id", "customer_id"}
	rows, err := r.store.Select(ctx, TableBudgets, budgetColumns, preds, orderBy, 0, r.store.PageSize())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	budgets, err := scanBudgets(rows)
	if err != nil {
		return nil, err
	}
	out := budgets[:0]
	for _, b := range budgets {
		switch dim {
		case DimClass:
			if b.ClassID != "" {
				out = append(out, b)
			}
		case DimCustomer:
			if b.CustomerID != "" {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

// YearHasData probes for at least one sales line in the year.
func (r *Repository) YearHasData(ctx context.Context, year int) (bool, error) {
	return r.store.Exists(ctx, TableSalesLines, []store.Predicate{store.Eq("year", year)})
}

// DistinctClasses reads class names under the given cap.
func (r *Repository) DistinctClasses(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.store.Select(ctx, TableSalesLines, []string{"class_name"}, nil, []string{"class_name"}, 0, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := make(map[string]bool)
	var classes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("reports: scan class: %w", err)
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		classes = append(classes, name)
	}
	return classes, rows.Err()
}

// CustomersForYear reads distinct (id, name) pairs for one confirmed year.
func (r *Repository) CustomersForYear(ctx context.Context, year, limit int) ([]CustomerRef, error) {
	preds := []store.Predicate{store.Eq("year", year)}
	rows, err := r.store.Select(ctx, TableSalesLines, []string{"customer_id", "customer_name"}, preds, []string{"customer_id"}, 0, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := make(map[string]bool)
	var refs []CustomerRef
	for rows.Next() {
		var ref CustomerRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("reports: scan customer: %w", err)
		}
		if ref.ID == "" || seen[ref.ID] {
			continue
		}
		seen[ref.ID] = true
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func scanSalesLines(rows pgx.Rows) ([]SalesLine, error) {
	var out []SalesLine
	for rows.Next() {
		var l SalesLine
		if err := rows.Scan(
			&l.TransactionID, &l.LineID, &l.Type, &l.Number, &l.Date, &l.PostingPeriod,
			&l.Year, &l.Month, &l.ClassID, &l.ClassName, &l.ClassCategory, &l.ParentClass,
			&l.CustomerID, &l.CustomerName, &l.AccountID, &l.AccountName,
			&l.Quantity, &l.Revenue, &l.Cost, &l.GrossProfit, &l.GrossProfitPct,
			&l.ItemID, &l.ItemName, &l.ItemDescription,
		); err != nil {
			return nil, fmt.Errorf("reports: scan sales line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanProfitabilityLines(rows pgx.Rows) ([]ProfitabilityLine, error) {
	var out []ProfitabilityLine
	for rows.Next() {
		var l ProfitabilityLine
		if err := rows.Scan(
			&l.TransactionID, &l.LineID, &l.Date, &l.Year, &l.Month,
			&l.IsRevenue, &l.IsCOGS, &l.Amount, &l.CostEstimate,
			&l.ProjectType, &l.AccountType, &l.CustomerID, &l.CustomerName,
		); err != nil {
			return nil, fmt.Errorf("reports: scan profitability line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanBudgets(rows pgx.Rows) ([]Budget, error) {
	var out []Budget
	for rows.Next() {
		var b Budget
		if err := rows.Scan(
			&b.Year, &b.Month, &b.ClassID, &b.CustomerID,
			&b.Revenue, &b.Units, &b.Cost, &b.GrossProfit,
		); err != nil {
			return nil, fmt.Errorf("reports: scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
