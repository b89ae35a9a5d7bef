package db

import (
	"context"
	"fmt"

	"github.com/level-fi/llp-tracker/pkg/tracker"
)

// PerShareRow is one per-share accrual increment replicated from the ledger.
// The pnl feed is stored signed: losses are negative.
type PerShareRow struct {
	ID        string  `ch:"id"`
	Tranche   string  `ch:"tranche"`
	Kind      string  `ch:"kind"`
	Value     float64 `ch:"value"`
	Timestamp int64   `ch:"timestamp"`
	SourceID  string  `ch:"source_id"`
	Index     uint64  `ch:"ledger_index"`
}

func (db *DB) initPerShares(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String,
			tranche String,
			kind Enum8('fee' = 1, 'pnl' = 2),
			value Float64,
			timestamp Int64,
			source_id String,
			ledger_index UInt64
		) ENGINE = ReplacingMergeTree
		ORDER BY (tranche, kind, timestamp, id)
	`, db.Name, PerSharesTableName)
	return db.Exec(ctx, query)
}

// InsertPerShares stores the increments that are not already present.
// Interval sums double count on replays, so re-crawled rows are filtered out
// before insert.
func (db *DB) InsertPerShares(ctx context.Context, rows []PerShareRow) ([]PerShareRow, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	existing, err := db.existingIDs(ctx, PerSharesTableName, ids)
	if err != nil {
		return nil, err
	}

	fresh := make([]PerShareRow, 0, len(rows))
	for _, row := range rows {
		if _, ok := existing[row.ID]; ok {
			continue
		}
		fresh = append(fresh, row)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	batch, err := db.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO "%s"."%s"`, db.Name, PerSharesTableName))
	if err != nil {
		return nil, fmt.Errorf("prepare per-share batch: %w", err)
	}
	for _, row := range fresh {
		if err := batch.AppendStruct(&row); err != nil {
			return nil, fmt.Errorf("append per-share %s: %w", row.ID, err)
		}
	}
	if err := batch.Send(); err != nil {
		return nil, fmt.Errorf("send per-share batch: %w", err)
	}

	return fresh, nil
}

// PerShareSums returns the fee and pnl accruals over the half-open interval
// [from, to).
func (db *DB) PerShareSums(ctx context.Context, tranche string, from, to int64) (tracker.PerShareSums, error) {
	query := fmt.Sprintf(`
		SELECT
			sumIf(value, kind = 'fee') AS fee,
			sumIf(value, kind = 'pnl') AS pnl
		FROM "%s"."%s" FINAL
		WHERE tranche = ? AND timestamp >= ? AND timestamp < ?
	`, db.Name, PerSharesTableName)

	var sums tracker.PerShareSums
	if err := db.QueryRow(ctx, query, tranche, from, to).Scan(&sums.Fee, &sums.Pnl); err != nil {
		return tracker.PerShareSums{}, fmt.Errorf("per-share sums of %s [%d,%d): %w", tranche, from, to, err)
	}
	return sums, nil
}

// PerShareCount returns the number of distinct increments of one kind with
// timestamp at or before asOf.
func (db *DB) PerShareCount(ctx context.Context, tranche string, kind tracker.PerShareKind, asOf int64) (uint64, error) {
	query := fmt.Sprintf(`
		SELECT count(DISTINCT id)
		FROM "%s"."%s"
		WHERE tranche = ? AND kind = ? AND timestamp <= ?
	`, db.Name, PerSharesTableName)

	var count uint64
	if err := db.QueryRow(ctx, query, tranche, string(kind), asOf).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s per-shares of %s: %w", kind, tranche, err)
	}
	return count, nil
}
