package reports

import (
	"errors"
	"time"
)

// Domain errors surfaced to the HTTP layer.
var (
	ErrInvalidMonth = errors.New("reports: month must be between 1 and 12")
	ErrInvalidYear  = errors.New("reports: year out of range")
	ErrInvalidDim   = errors.New("reports: unknown dimension")
)

// UnknownCustomer labels lines the feed synced without a customer, so that
// grouped totals still reconcile with the raw row set.
const UnknownCustomer = "Unknown"

// SalesLine is one recurring revenue/cost transaction line synced from the
// ERP feed. (TransactionID, LineID) is the natural key; GrossProfitPct comes
// from the source and is never trusted for aggregation.
type SalesLine struct {
	TransactionID   string    `json:"transaction_id" db:"transaction_id"`
	LineID          string    `json:"line_id" db:"line_id"`
	Type            string    `json:"type,omitempty" db:"type"`
	Number          string    `json:"number,omitempty" db:"number"`
	Date            time.Time `json:"date" db:"date"`
	PostingPeriod   string    `json:"posting_period,omitempty" db:"posting_period"`
	Year            int       `json:"year" db:"year"`
	Month           int       `json:"month" db:"month"`
	ClassID         string    `json:"class_id,omitempty" db:"class_id"`
	ClassName       string    `json:"class_name,omitempty" db:"class_name"`
	ClassCategory   string    `json:"class_category,omitempty" db:"class_category"`
	ParentClass     string    `json:"parent_class,omitempty" db:"parent_class"`
	CustomerID      string    `json:"customer_id,omitempty" db:"customer_id"`
	CustomerName    string    `json:"customer_name,omitempty" db:"customer_name"`
	AccountID       string    `json:"account_id,omitempty" db:"account_id"`
	AccountName     string    `json:"account_name,omitempty" db:"account_name"`
	Quantity        float64   `json:"quantity" db:"quantity"`
	Revenue         float64   `json:"revenue" db:"revenue"`
	Cost            float64   `json:"cost" db:"cost"`
	GrossProfit     float64   `json:"gross_profit" db:"gross_profit"`
	GrossProfitPct  float64   `json:"gross_profit_pct" db:"gross_profit_pct"`
	ItemID          string    `json:"item_id,omitempty" db:"item_id"`
	ItemName        string    `json:"item_name,omitempty" db:"item_name"`
	ItemDescription string    `json:"item_description,omitempty" db:"item_description"`
}

// ProfitabilityLine is the project revenue/COGS variant of a transaction
// line. CostEstimate is the authoritative COGS source; Amount carries the
// signed transaction value.
type ProfitabilityLine struct {
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	LineID        string    `json:"line_id" db:"line_id"`
	Date          time.Time `json:"date" db:"date"`
	Year          int       `json:"year" db:"year"`
	Month         int       `json:"month" db:"month"`
	IsRevenue     bool      `json:"is_revenue" db:"is_revenue"`
	IsCOGS        bool      `json:"is_cogs" db:"is_cogs"`
	Amount        float64   `json:"amount" db:"amount"`
	CostEstimate  float64   `json:"cost_estimate" db:"cost_estimate"`
	ProjectType   string    `json:"project_type,omitempty" db:"project_type"`
	AccountType   string    `json:"account_type,omitempty" db:"account_type"`
	CustomerID    string    `json:"customer_id,omitempty" db:"customer_id"`
	CustomerName  string    `json:"customer_name,omitempty" db:"customer_name"`
}

// Budget is a planning record, read-only to this engine. Exactly one of
// ClassID/CustomerID is set; Month nil means an annual budget.
type Budget struct {
	Year        int     `json:"year" db:"year"`
	Month       *int    `json:"month,omitempty" db:"month"`
	ClassID     string  `json:"class_id,omitempty" db:"class_id"`
	CustomerID  string  `json:"customer_id,omitempty" db:"customer_id"`
	Revenue     float64 `json:"revenue" db:"revenue"`
	Units       float64 `json:"units" db:"units"`
	Cost        float64 `json:"cost" db:"cost"`
	GrossProfit float64 `json:"gross_profit" db:"gross_profit"`
}

// AggregateRow is one grouped-and-summed output record. Never persisted.
type AggregateRow struct {
	Key            string  `json:"key"`
	Year           int     `json:"year,omitempty"`
	Month          int     `json:"month,omitempty"`
	Quantity       float64 `json:"quantity"`
	Revenue        float64 `json:"revenue"`
	Cost           float64 `json:"cost"`
	GrossProfit    float64 `json:"gross_profit"`
	GrossProfitPct float64 `json:"gross_profit_pct"`
	Lines          int     `json:"lines"`
}

// Totals carries window-scoped sums for a period comparison.
type Totals struct {
	Quantity    float64 `json:"quantity"`
	Revenue     float64 `json:"revenue"`
	Cost        float64 `json:"cost"`
	GrossProfit float64 `json:"gross_profit"`
	Lines       int     `json:"lines"`
}

// PeriodComparison pairs current and prior window totals for one group.
type PeriodComparison struct {
	Key       string  `json:"key"`
	Current   Totals  `json:"current"`
	Prior     Totals  `json:"prior"`
	ChangePct float64 `json:"change_pct"`
}

// Period is a closed [Start, End] window in UTC.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// CustomerRef identifies a customer for the filter catalog.
type CustomerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FilterCatalog lists the dimensions that currently have data.
type FilterCatalog struct {
	Years     []int         `json:"years"`
	Months    []int         `json:"months"`
	Classes   []string      `json:"classes"`
	Customers []CustomerRef `json:"customers"`
}

// LineFilter narrows a report request. Years empty means the rolling
// 12-month window decides which partitions to scan.
type LineFilter struct {
	Years      []int  `json:"years,omitempty"`
	Months     []int  `json:"months,omitempty"`
	ClassID    string `json:"class_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
}

// Validate fails fast on malformed input before any store query is issued.
func (f LineFilter) Validate() error {
	for _, m := range f.Months {
		if m < 1 || m > 12 {
			return ErrInvalidMonth
		}
	}
	for _, y := range f.Years {
		if y < 1900 || y > 3000 {
			return ErrInvalidYear
		}
	}
	return nil
}

// Dimension selects the grouping key for report operations.
type Dimension string

const (
	DimClass    Dimension = "class"
	DimCustomer Dimension = "customer"
)

// Validate rejects unknown dimensions.
func (d Dimension) Validate() error {
	switch d {
	case DimClass, DimCustomer:
		return nil
	}
	return ErrInvalidDim
}
