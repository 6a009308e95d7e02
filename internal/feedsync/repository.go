package feedsync

import (
	"context"
	"time"

	"github.com/marginview/marginview/internal/platform/store"
	"github.com/marginview/marginview/internal/reports"
)

// Conflict keys: the natural composite key per table. Replaying an identical
// batch updates in place instead of duplicating.
var (
	salesLineKey     = []string{"transaction_id", "line_id"}
	profitabilityKey = []string{"transaction_id", "line_id"}
	budgetKey        = []string{"year", "month", "class_id", "customer_id"}
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

// Repository is the write side of the row store: natural-key upserts and
// bulk deletes for re-sync flows.
type Repository struct {
	store *store.Client
}

// NewRepository wraps a store client.
func NewRepository(client *store.Client) *Repository {
	return &Repository{store: client}
}

// UpsertSalesLines writes a batch keyed on (transaction_id, line_id).
func (r *Repository) UpsertSalesLines(ctx context.Context, lines []reports.SalesLine) (int64, error) {
	rows := make([][]any, len(lines))
	for i, l := range lines {
		rows[i] = []any{
			l.TransactionID, l.LineID, l.Type, l.Number, l.Date, l.PostingPeriod,
			l.Year, l.Month, l.ClassID, l.ClassName, l.ClassCategory, l.ParentClass,
			l.CustomerID, l.CustomerName, l.AccountID, l.AccountName,
			l.Quantity, l.Revenue, l.Cost, l.GrossProfit, l.GrossProfitPct,
			l.ItemID, l.ItemName, l.ItemDescription,
		}
	}
	return r.store.Upsert(ctx, reports.TableSalesLines, salesLineColumns, rows, salesLineKey)
}

// UpsertProfitabilityLines writes project lines keyed on
// (transaction_id, line_id).
func (r *Repository) UpsertProfitabilityLines(ctx context.Context, lines []reports.ProfitabilityLine) (int64, error) {
	rows := make([][]any, len(lines))
	for i, l := range lines {
		rows[i] = []any{
			l.TransactionID, l.LineID, l.Date, l.Year, l.Month,
			l.IsRevenue, l.IsCOGS, l.Amount, l.CostEstimate,
			l.ProjectType, l.AccountType, l.CustomerID, l.CustomerName,
		}
	}
	return r.store.Upsert(ctx, reports.TableProfitabilityLines, profitabilityColumns, rows, profitabilityKey)
}

// UpsertBudgets writes planning records keyed on
// (year, month, class_id, customer_id).
func (r *Repository) UpsertBudgets(ctx context.Context, budgets []reports.Budget) (int64, error) {
	rows := make([][]any, len(budgets))
	for i, b := range budgets {
		month := 0
		if b.Month != nil {
			month = *b.Month
		}
		rows[i] = []any{
			b.Year, month, b.ClassID, b.CustomerID,
			b.Revenue, b.Units, b.Cost, b.GrossProfit,
		}
	}
	return r.store.Upsert(ctx, reports.TableBudgets, budgetColumns, rows, budgetKey)
}

// DeleteSalesLinesByYear removes one year partition ahead of a fresh sync.
func (r *Repository) DeleteSalesLinesByYear(ctx context.Context, year int) (int64, error) {
	return r.store.Delete(ctx, reports.TableSalesLines, []store.Predicate{store.Eq("year", year)})
}

// DeleteSalesLinesByDateRange removes lines between from and to inclusive.
// The range is translated to per-year month predicates because the store
// filters on year/month columns, not raw dates.
func (r *Repository) DeleteSalesLinesByDateRange(ctx context.Context, from, to time.Time) (int64, error) {
	from, to = from.UTC(), to.UTC()
	var total int64
	for year := from.Year(); year <= to.Year(); year++ {
		preds := []store.Predicate{store.Eq("year", year)}
		if year == from.Year() && from.Month() > time.January {
			preds = append(preds, store.Gte("month", int(from.Month())))
		}
		if year == to.Year() && to.Month() < time.December {
			preds = append(preds, store.Lte("month", int(to.Month())))
		}
		count, err := r.store.Delete(ctx, reports.TableSalesLines, preds)
		if err != nil {
			return total, err
		}
		total += count
	}
	return total, nil
}

// DeleteAllSalesLines clears the table for a full re-sync.
func (r *Repository) DeleteAllSalesLines(ctx context.Context) (int64, error) {
	return r.store.Delete(ctx, reports.TableSalesLines, nil)
}

// DeleteProfitabilityByYear removes one project-line year partition.
func (r *Repository) DeleteProfitabilityByYear(ctx context.Context, year int) (int64, error) {
	return r.store.Delete(ctx, reports.TableProfitabilityLines, []store.Predicate{store.Eq("year", year)})
}
