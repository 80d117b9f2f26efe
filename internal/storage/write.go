package storage

import (
	"context"
	"fmt"
	"time"

	"sportsref/internal/metrics"
	"sportsref/internal/tabular"
)

// DefaultBatchSize bounds rows per InsertRows call.
const DefaultBatchSize = 500

// Write creates t's table if needed and inserts its rows in batches of
// batchSize (DefaultBatchSize when <= 0), deduping on unique.
func Write(ctx context.Context, repo Repository, t *tabular.Table, unique []string, batchSize int) (int64, error) {
	start := time.Now()
	n, err := write(ctx, repo, t, unique, batchSize)
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
	}
	metrics.RecordStep("store", status, time.Since(start))
	if n > 0 {
		metrics.RecordRecords(t.Name, int(n))
	}
	return n, err
}

func write(ctx context.Context, repo Repository, t *tabular.Table, unique []string, batchSize int) (int64, error) {
	spec, err := SpecFor(t, unique...)
	if err != nil {
		return 0, err
	}
	if err := repo.EnsureTables(ctx, []TableSpec{spec}); err != nil {
		return 0, err
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	cols := t.ColumnNames()
	var total int64
	for start := 0; start < len(t.Rows); start += batchSize {
		end := min(start+batchSize, len(t.Rows))
		n, err := repo.InsertRows(ctx, t.Name, cols, t.Rows[start:end], unique)
		total += n
		if err != nil {
			return total, fmt.Errorf("insert %s rows %d-%d: %w", t.Name, start, end, err)
		}
	}
	return total, nil
}
