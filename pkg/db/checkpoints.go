package db

import (
	"context"
	"fmt"
)

// CheckpointRow is one real wallet checkpoint as replicated from the ledger.
// Synthetic boundary checkpoints are derived at build time and never stored.
type CheckpointRow struct {
	ID             string  `ch:"id"`
	Wallet         string  `ch:"wallet"`
	Tranche        string  `ch:"tranche"`
	Timestamp      int64   `ch:"timestamp"`
	LpAmount       float64 `ch:"lp_amount"`
	LpAmountChange float64 `ch:"lp_amount_change"`
	Price          float64 `ch:"price"`
	Value          float64 `ch:"value"`
	Block          uint64  `ch:"block"`
	Tx             string  `ch:"tx"`
	Index          uint64  `ch:"ledger_index"`
}

func (db *DB) initCheckpoints(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			id String,
			wallet String,
			tranche String,
			timestamp Int64,
			lp_amount Float64,
			lp_amount_change Float64,
			price Float64,
			value Float64,
			block UInt64,
			tx String,
			ledger_index UInt64
		) ENGINE = ReplacingMergeTree
		ORDER BY (tranche, wallet, timestamp, id)
	`, db.Name, CheckpointsTableName)
	return db.Exec(ctx, query)
}

// InsertCheckpoints stores the rows that are not already present and returns
// them. Re-crawled rows are filtered out so callers can tell genuinely new
// checkpoints from replays.
func (db *DB) InsertCheckpoints(ctx context.Context, rows []CheckpointRow) ([]CheckpointRow, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	existing, err := db.existingIDs(ctx, CheckpointsTableName, ids)
	if err != nil {
		return nil, err
	}

	fresh := make([]CheckpointRow, 0, len(rows))
	for _, row := range rows {
		if _, ok := existing[row.ID]; ok {
			continue
		}
		fresh = append(fresh, row)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	batch, err := db.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO "%s"."%s"`, db.Name, CheckpointsTableName))
	if err != nil {
		return nil, fmt.Errorf("prepare checkpoint batch: %w", err)
	}
	for _, row := range fresh {
		if err := batch.AppendStruct(&row); err != nil {
			return nil, fmt.Errorf("append checkpoint %s: %w", row.ID, err)
		}
	}
	if err := batch.Send(); err != nil {
		return nil, fmt.Errorf("send checkpoint batch: %w", err)
	}

	return fresh, nil
}

// Checkpoints returns the wallet's checkpoints at exactly the given
// timestamps, ascending.
func (db *DB) Checkpoints(ctx context.Context, tranche, wallet string, timestamps []int64) ([]CheckpointRow, error) {
	if len(timestamps) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, wallet, tranche, timestamp, lp_amount, lp_amount_change, price, value, block, tx, ledger_index
		FROM "%s"."%s" FINAL
		WHERE tranche = ? AND wallet = ? AND timestamp IN (?)
		ORDER BY timestamp ASC
	`, db.Name, CheckpointsTableName)

	var rows []CheckpointRow
	if err := db.Select(ctx, &rows, query, tranche, wallet, timestamps); err != nil {
		return nil, fmt.Errorf("select checkpoints of %s/%s: %w", tranche, wallet, err)
	}
	return rows, nil
}

// CheckpointCount returns the number of distinct checkpoints replicated for a
// tranche.
func (db *DB) CheckpointCount(ctx context.Context, tranche string) (uint64, error) {
	query := fmt.Sprintf(`
		SELECT count(DISTINCT id)
		FROM "%s"."%s"
		WHERE tranche = ?
	`, db.Name, CheckpointsTableName)

	var count uint64
	if err := db.QueryRow(ctx, query, tranche).Scan(&count); err != nil {
		return 0, fmt.Errorf("count checkpoints of %s: %w", tranche, err)
	}
	return count, nil
}

// HasLiquidity reports whether the wallet's most recent checkpoint still
// holds LP shares.
func (db *DB) HasLiquidity(ctx context.Context, tranche, wallet string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT argMax(lp_amount, timestamp) AS latest_amount
		FROM "%s"."%s" FINAL
		WHERE tranche = ? AND wallet = ?
	`, db.Name, CheckpointsTableName)

	var latest float64
	err := db.QueryRow(ctx, query, tranche, wallet).Scan(&latest)
	if err != nil {
		return false, fmt.Errorf("latest amount of %s/%s: %w", tranche, wallet, err)
	}
	return latest > 0, nil
}

// AmountChangeBetween returns the latest LP amount and the net amount change
// over (start, end]. found is false when no checkpoint landed in the range.
func (db *DB) AmountChangeBetween(ctx context.Context, tranche, wallet string, start, end int64) (amount, change float64, found bool, err error) {
	query := fmt.Sprintf(`
		SELECT
			count() AS rows,
			argMax(lp_amount, timestamp) AS latest_amount,
			sum(lp_amount_change) AS net_change
		FROM "%s"."%s" FINAL
		WHERE tranche = ? AND wallet = ? AND timestamp > ? AND timestamp <= ?
	`, db.Name, CheckpointsTableName)

	var rows uint64
	if err = db.QueryRow(ctx, query, tranche, wallet, start, end).Scan(&rows, &amount, &change); err != nil {
		return 0, 0, false, fmt.Errorf("amount change of %s/%s: %w", tranche, wallet, err)
	}
	if rows == 0 {
		return 0, 0, false, nil
	}
	return amount, change, true, nil
}
