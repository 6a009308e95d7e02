package feedsync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/marginview/marginview/internal/platform/store"
	"github.com/marginview/marginview/internal/reports"
)

// Writer is the persistence surface the sync service depends on.
type Writer interface {
	UpsertSalesLines(ctx context.Context, lines []reports.SalesLine) (int64, error)
	UpsertProfitabilityLines(ctx context.Context, lines []reports.ProfitabilityLine) (int64, error)
	UpsertBudgets(ctx context.Context, budgets []reports.Budget) (int64, error)
	DeleteSalesLinesByYear(ctx context.Context, year int) (int64, error)
	DeleteSalesLinesByDateRange(ctx context.Context, from, to time.Time) (int64, error)
	DeleteAllSalesLines(ctx context.Context) (int64, error)
	DeleteProfitabilityByYear(ctx context.Context, year int) (int64, error)
}

// Invalidator is bumped after every successful write so stale report caches
// never survive a sync.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Recorder counts written and deleted rows for observability.
type Recorder interface {
	RecordSyncRows(op string, count int64)
}

// SyncResult reports the outcome of one upsert or delete call. Conflict marks
// failures caused by the batch itself (key collisions the store refused)
// rather than backend flakiness, so callers can answer 409 instead of 502.
type SyncResult struct {
	BatchID  string `json:"batch_id"`
	Success  bool   `json:"success"`
	Count    int64  `json:"count"`
	Removed  int    `json:"removed,omitempty"`
	Conflict bool   `json:"conflict,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Service ingests feed batches: dedup before write, idempotent upsert,
// bulk delete for re-sync flows.
type Service struct {
	writer  Writer
	cache   Invalidator
	metrics Recorder
	logger  *slog.Logger
}

// NewService wires a Writer with the cache invalidator. metrics may be nil.
func NewService(writer Writer, cache Invalidator, metrics Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{writer: writer, cache: cache, metrics: metrics, logger: logger}
}

// SyncSalesLines deduplicates and upserts a feed batch. Replaying the same
// batch is a no-op beyond refreshing values.
func (s *Service) SyncSalesLines(ctx context.Context, batch []reports.SalesLine) SyncResult {
	result := SyncResult{BatchID: uuid.NewString()}
	deduped, removed := DedupSalesLines(batch)
	result.Removed = removed
	if removed > 0 {
		s.logger.Info("dropped duplicate feed lines",
			slog.String("batch_id", result.BatchID), slog.Int("removed", removed))
	}
	count, err := s.writer.UpsertSalesLines(ctx, deduped)
	if err != nil {
		return s.fail(result, "upsert sales lines", err)
	}
	result.Success = true
	result.Count = count
	s.record("sales_lines", count)
	s.bump(ctx)
	return result
}

// SyncProfitabilityLines upserts a project-line batch.
func (s *Service) SyncProfitabilityLines(ctx context.Context, batch []reports.ProfitabilityLine) SyncResult {
	result := SyncResult{BatchID: uuid.NewString()}
	count, err := s.writer.UpsertProfitabilityLines(ctx, batch)
	if err != nil {
		return s.fail(result, "upsert profitability lines", err)
	}
	result.Success = true
	result.Count = count
	s.record("profitability_lines", count)
	s.bump(ctx)
	return result
}

// SyncBudgets upserts planning records.
func (s *Service) SyncBudgets(ctx context.Context, batch []reports.Budget) SyncResult {
	result := SyncResult{BatchID: uuid.NewString()}
	count, err := s.writer.UpsertBudgets(ctx, batch)
	if err != nil {
		return s.fail(result, "upsert budgets", err)
	}
	result.Success = true
	result.Count = count
	s.record("budgets", count)
	s.bump(ctx)
	return result
}

// DeleteYear prunes one sales-line year partition.
func (s *Service) DeleteYear(ctx context.Context, year int) SyncResult {
	result := SyncResult{BatchID: uuid.NewString()}
	count, err := s.writer.DeleteSalesLinesByYear(ctx, year)
	if err != nil {
		return s.fail(result, "delete year", err)
	}
	result.Success = true
	result.Count = count
	s.record("delete_year", count)
	s.bump(ctx)
	return result
}

// DeleteRange prunes sales lines between from and to inclusive.
func (s *Service) DeleteRange(ctx context.Context, from, to time.Time) SyncResult {
	result := SyncResult{BatchID: uuid.NewString()}
	count, err := s.writer.DeleteSalesLinesByDateRange(ctx, from, to)
	if err != nil {
		return s.fail(result, "delete range", err)
	}
	result.Success = true
	result.Count = count
	s.record("delete_range", count)
	s.bump(ctx)
	return result
}

// DeleteAll clears the sales-line table ahead of a full re-sync.
func (s *Service) DeleteAll(ctx context.Context) SyncResult {
	result := SyncResult{BatchID: uuid.NewString()}
	count, err := s.writer.DeleteAllSalesLines(ctx)
	if err != nil {
		return s.fail(result, "delete all", err)
	}
	result.Success = true
	result.Count = count
	s.record("delete_all", count)
	s.bump(ctx)
	return result
}

// DeleteProfitabilityYear prunes one project-line year partition.
func (s *Service) DeleteProfitabilityYear(ctx context.Context, year int) SyncResult {
	result := SyncResult{BatchID: uuid.NewString()}
	count, err := s.writer.DeleteProfitabilityByYear(ctx, year)
	if err != nil {
		return s.fail(result, "delete profitability year", err)
	}
	result.Success = true
	result.Count = count
	s.record("delete_profitability", count)
	s.bump(ctx)
	return result
}

// ResyncYear prunes a stale year partition and writes the fresh batch, for
// feeds where idempotent upsert alone cannot remove rows that disappeared
// upstream.
func (s *Service) ResyncYear(ctx context.Context, year int, batch []reports.SalesLine) SyncResult {
	result := SyncResult{BatchID: uuid.NewString()}
	pruned, err := s.writer.DeleteSalesLinesByYear(ctx, year)
	if err != nil {
		return s.fail(result, "resync delete", err)
	}
	deduped, removed := DedupSalesLines(batch)
	result.Removed = removed
	count, err := s.writer.UpsertSalesLines(ctx, deduped)
	if err != nil {
		return s.fail(result, "resync upsert", err)
	}
	s.logger.Info("year partition resynced",
		slog.String("batch_id", result.BatchID),
		slog.Int("year", year),
		slog.Int64("pruned", pruned),
		slog.Int64("written", count))
	result.Success = true
	result.Count = count
	s.record("resync", count)
	s.bump(ctx)
	return result
}

func (s *Service) fail(result SyncResult, op string, err error) SyncResult {
	s.logger.Error("sync failed",
		slog.String("batch_id", result.BatchID),
		slog.String("op", op),
		slog.Any("error", err))
	result.Error = err.Error()
	result.Conflict = errors.Is(err, store.ErrConflict)
	return result
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) record(op string, count int64) {
	if s.metrics != nil {
		s.metrics.RecordSyncRows(op, count)
	}
}
