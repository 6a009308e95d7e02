package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/marginview/marginview/internal/feedsync"
	jobmetrics "github.com/marginview/marginview/internal/jobs"
	"github.com/marginview/marginview/internal/reports"
)

// FeedSource pulls fresh rows from the transaction-feed collaborator.
type FeedSource interface {
	FetchSalesLines(ctx context.Context, year int) ([]reports.SalesLine, error)
}

// Syncer is the slice of the sync service the job needs.
type Syncer interface {
	ResyncYear(ctx context.Context, year int, batch []reports.SalesLine) feedsync.SyncResult
}

// ResyncJob refreshes a year partition: pull from the feed, prune the stale
// partition, write the fresh batch.
type ResyncJob struct {
	feed    FeedSource
	syncer  Syncer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewResyncJob wires the job dependencies. metrics may be nil.
func NewResyncJob(feed FeedSource, syncer Syncer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ResyncJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResyncJob{feed: feed, syncer: syncer, logger: logger, metrics: metrics, now: time.Now}
}

// Handle processes TaskSalesResync tasks.
func (j *ResyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("sales_resync")
	return tracker.End(j.handle(ctx, t))
}

func (j *ResyncJob) handle(ctx context.Context, t *asynq.Task) error {
	var payload SalesResyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	year := payload.Year
	if year == 0 {
		year = j.now().UTC().Year()
	}

	batch, err := j.feed.FetchSalesLines(ctx, year)
	if err != nil {
		return fmt.Errorf("jobs: fetch feed year %d: %w", year, err)
	}
	result := j.syncer.ResyncYear(ctx, year, batch)
	if !result.Success {
		return fmt.Errorf("jobs: resync year %d: %s", year, result.Error)
	}
	j.logger.Info("sales resync complete",
		slog.Int("year", year),
		slog.String("batch_id", result.BatchID),
		slog.Int64("written", result.Count),
		slog.Int("deduped", result.Removed))
	return nil
}
