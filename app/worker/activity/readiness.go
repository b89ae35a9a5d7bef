package activity

import (
	"context"

	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/pkg/tracker"
	"github.com/level-fi/llp-tracker/pkg/utils"
)

// SyncedStats compares the replica against the ledger tip for one tranche.
type SyncedStats struct {
	Tranche         string `json:"tranche"`
	LedgerIndex     uint64 `json:"ledgerIndex"`
	LedgerTimestamp int64  `json:"ledgerTimestamp"`
	CheckpointCount uint64 `json:"checkpointCount"`
	LedgerFeeIndex  uint64 `json:"ledgerFeeIndex"`
	FeeCount        uint64 `json:"feeCount"`
	LedgerPnlIndex  uint64 `json:"ledgerPnlIndex"`
	PnlCount        uint64 `json:"pnlCount"`
	IsSynced        bool   `json:"isSynced"`
}

// ReadyForBuild reports whether the replica has caught up far enough to
// rebuild windows: every ledger checkpoint is replicated and both per-share
// feeds cover the latest checkpoint timestamp.
func (c *Context) ReadyForBuild(ctx context.Context, in CrawlInput) (bool, error) {
	tranche := utils.NormalizeAddress(in.Tranche)

	stat, found, err := c.Ledger.LatestCheckpointStat(ctx, tranche)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	count, err := c.DB.CheckpointCount(ctx, tranche)
	if err != nil {
		return false, err
	}
	if count < stat.Index {
		c.Logger.Debug("Checkpoint replica behind ledger",
			zap.String("tranche", tranche),
			zap.Uint64("replica", count),
			zap.Uint64("ledger", stat.Index))
		return false, nil
	}

	feeIndex, pnlIndex, err := c.Ledger.PerShareIndexesAt(ctx, tranche, stat.SnapshotAtTimestamp)
	if err != nil {
		return false, err
	}
	feeCount, err := c.DB.PerShareCount(ctx, tranche, tracker.FeePerShares, stat.SnapshotAtTimestamp)
	if err != nil {
		return false, err
	}
	if feeCount < feeIndex {
		return false, nil
	}
	pnlCount, err := c.DB.PerShareCount(ctx, tranche, tracker.PnlPerShares, stat.SnapshotAtTimestamp)
	if err != nil {
		return false, err
	}
	return pnlCount >= pnlIndex, nil
}

// SyncedStatus returns the replica/ledger counters behind ReadyForBuild for
// the readiness endpoint. IsSynced demands strict equality across all feeds.
func (c *Context) SyncedStatus(ctx context.Context, in CrawlInput) (SyncedStats, error) {
	tranche := utils.NormalizeAddress(in.Tranche)
	stats := SyncedStats{Tranche: tranche}

	stat, found, err := c.Ledger.LatestCheckpointStat(ctx, tranche)
	if err != nil {
		return stats, err
	}
	if !found {
		return stats, nil
	}
	stats.LedgerIndex = stat.Index
	stats.LedgerTimestamp = stat.SnapshotAtTimestamp

	if stats.CheckpointCount, err = c.DB.CheckpointCount(ctx, tranche); err != nil {
		return stats, err
	}
	if stats.LedgerFeeIndex, stats.LedgerPnlIndex, err = c.Ledger.PerShareIndexesAt(ctx, tranche, stat.SnapshotAtTimestamp); err != nil {
		return stats, err
	}
	if stats.FeeCount, err = c.DB.PerShareCount(ctx, tranche, tracker.FeePerShares, stat.SnapshotAtTimestamp); err != nil {
		return stats, err
	}
	if stats.PnlCount, err = c.DB.PerShareCount(ctx, tranche, tracker.PnlPerShares, stat.SnapshotAtTimestamp); err != nil {
		return stats, err
	}

	stats.IsSynced = stats.CheckpointCount == stats.LedgerIndex &&
		stats.FeeCount == stats.LedgerFeeIndex &&
		stats.PnlCount == stats.LedgerPnlIndex
	return stats, nil
}
