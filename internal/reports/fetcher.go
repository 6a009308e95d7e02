package reports

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// defaultFetchWorkers bounds how many year partitions are fetched at once so
// a wide year filter does not overwhelm the store.
const defaultFetchWorkers = 4

// PageFunc requests one page of rows for a year partition. Implementations
// must return pages in a stable order so a short page reliably signals the
// partition is exhausted.
type PageFunc[T any] func(ctx context.Context, year, offset, limit int) ([]T, error)

// FetchResult is the outcome of a multi-year fetch. Partial is set when one
// or more partitions failed; the surviving rows are still usable.
type FetchResult[T any] struct {
	Rows        []T
	Partial     bool
	FailedYears []int
}

// FetchYears retrieves the complete row set for every year despite the
// store's page cap. Years are independent partitions fetched concurrently
// under the worker limit; within a partition pages are requested at
// increasing offsets until a page comes back shorter than pageSize. A failed
// partition is dropped and recorded in FailedYears rather than aborting the
// call. Context cancellation aborts everything: no partially-accumulated
// result is returned.
func FetchYears[T any](ctx context.Context, years []int, pageSize, workers int, page PageFunc[T]) (FetchResult[T], error) {
	if pageSize <= 0 {
		pageSize = 1000
	}
	if workers <= 0 {
		workers = defaultFetchWorkers
	}

	perYear := make([][]T, len(years))
	var mu sync.Mutex
	var failed []int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, year := range years {
		g.Go(func() error {
			rows, err := fetchYear(gctx, year, pageSize, page)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				mu.Lock()
				failed = append(failed, year)
				mu.Unlock()
				return nil
			}
			perYear[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FetchResult[T]{}, err
	}

	var out []T
	for _, rows := range perYear {
		out = append(out, rows...)
	}
	sort.Ints(failed)
	return FetchResult[T]{Rows: out, Partial: len(failed) > 0, FailedYears: failed}, nil
}

// fetchYear pages through one partition in increasing-offset order. A year
// with zero matches yields an empty slice, not an error.
func fetchYear[T any](ctx context.Context, year, pageSize int, page PageFunc[T]) ([]T, error) {
	var rows []T
	for offset := 0; ; offset += pageSize {
		batch, err := page(ctx, year, offset, pageSize)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
		if len(batch) < pageSize {
			return rows, nil
		}
	}
}
