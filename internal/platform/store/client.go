// Package store provides a predicate-based row store client on top of
// Postgres. Every read goes through Select, which enforces the backend
// page-size cap, so callers that need a complete result set must page.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultPageSize caps the number of rows a single Select may return.
const DefaultPageSize = 1000

// ErrConflict indicates a write violated a table constraint.
var ErrConflict = errors.New("store: write conflict")

// Op enumerates the predicate operators the store understands.
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
	OpIn  Op = "IN"
)

// Predicate is one column filter. Predicates combine with AND.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Eq builds an equality predicate.
func Eq(column string, value any) Predicate {
	return Predicate{Column: column, Op: OpEq, Value: value}
}

// In builds a membership predicate. Value must be a slice.
func In(column string, value any) Predicate {
	return Predicate{Column: column, Op: OpIn, Value: value}
}

// Gte builds a greater-or-equal predicate.
func Gte(column string, value any) Predicate {
	return Predicate{Column: column, Op: OpGte, Value: value}
}

// Lte builds a less-or-equal predicate.
func Lte(column string, value any) Predicate {
	return Predicate{Column: column, Op: OpLte, Value: value}
}

// Client executes predicate queries against a pgx pool.
type Client struct {
	pool     *pgxpool.Pool
	pageSize int
}

// NewClient wraps a pool. pageSize <= 0 falls back to DefaultPageSize.
func NewClient(pool *pgxpool.Pool, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{pool: pool, pageSize: pageSize}
}

// PageSize reports the effective page cap.
func (c *Client) PageSize() int {
	return c.pageSize
}

// Select returns at most min(limit, pageSize) rows matching the predicates.
// Results are ordered by orderBy columns ascending so offset paging stays
// stable across requests.
func (c *Client) Select(ctx context.Context, table string, columns []string, preds []Predicate, orderBy []string, offset, limit int) (pgx.Rows, error) {
	query, args := buildSelect(table, columns, preds, orderBy, offset, c.clampLimit(limit))
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: select %s: %w", table, err)
	}
	return rows, nil
}

// Exists reports whether at least one row matches the predicates. It issues
// a LIMIT 1 probe, never a scan.
func (c *Client) Exists(ctx context.Context, table string, preds []Predicate) (bool, error) {
	where, args := buildWhere(preds, 1)
	query := "SELECT 1 FROM " + quoteIdent(table) + where + " LIMIT 1"
	var one int
	err := c.pool.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: exists %s: %w", table, err)
	}
	return true, nil
}

// Upsert writes rows with insert-or-update semantics keyed on conflictCols.
// Replaying an identical batch is a no-op beyond refreshing values, so the
// call is idempotent. Returns the number of rows written.
func (c *Client) Upsert(ctx context.Context, table string, columns []string, rows [][]any, conflictCols []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	query := buildUpsert(table, columns, len(rows), conflictCols)
	args := make([]any, 0, len(rows)*len(columns))
	for _, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("store: upsert %s: row has %d values, want %d", table, len(row), len(columns))
		}
		args = append(args, row...)
	}
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
			return 0, fmt.Errorf("%w: %s (%s)", ErrConflict, pgErr.Message, pgErr.Code)
		}
		return 0, fmt.Errorf("store: upsert %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes rows matching the predicates and returns the affected count.
// An empty predicate list clears the table.
func (c *Client) Delete(ctx context.Context, table string, preds []Predicate) (int64, error) {
	where, args := buildWhere(preds, 1)
	query := "DELETE FROM " + quoteIdent(table) + where
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("store: delete %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func (c *Client) clampLimit(limit int) int {
	if limit <= 0 || limit > c.pageSize {
		return c.pageSize
	}
	return limit
}

func buildSelect(table string, columns []string, preds []Predicate, orderBy []string, offset, limit int) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(col))
	}
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(table))
	where, args := buildWhere(preds, 1)
	b.WriteString(where)
	if len(orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, col := range orderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteIdent(col))
		}
	}
	args = append(args, limit, offset)
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

func buildWhere(preds []Predicate, firstArg int) (string, []any) {
	if len(preds) == 0 {
		return "", nil
	}
	var b strings.Builder
	args := make([]any, 0, len(preds))
	b.WriteString(" WHERE ")
	for i, p := range preds {
		if i > 0 {
			b.WriteString(" AND ")
		}
		switch p.Op {
		case OpIn:
			fmt.Fprintf(&b, "%s = ANY($%d)", quoteIdent(p.Column), firstArg+len(args))
		default:
			fmt.Fprintf(&b, "%s %s $%d", quoteIdent(p.Column), p.Op, firstArg+len(args))
		}
		args = append(args, p.Value)
	}
	return b.String(), args
}

func buildUpsert(table string, columns []string, rowCount int, conflictCols []string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(col))
	}
	b.WriteString(") VALUES ")
	arg := 1
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for i := range columns {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteString(")")
	}
	b.WriteString(" ON CONFLICT (")
	for i, col := range conflictCols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(col))
	}
	b.WriteString(")")
	conflict := make(map[string]bool, len(conflictCols))
	for _, col := range conflictCols {
		conflict[col] = true
	}
	var set strings.Builder
	for _, col := range columns {
		if conflict[col] {
			continue
		}
		if set.Len() > 0 {
			set.WriteString(", ")
		}
		q := quoteIdent(col)
		set.WriteString(q)
		set.WriteString(" = EXCLUDED.")
		set.WriteString(q)
	}
	if set.Len() == 0 {
		b.WriteString(" DO NOTHING")
		return b.String()
	}
	b.WriteString(" DO UPDATE SET ")
	b.WriteString(set.String())
	return b.String()
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
