package activity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/pkg/db"
	"github.com/level-fi/llp-tracker/pkg/tracker"
	"github.com/level-fi/llp-tracker/pkg/utils"
)

// CrawlPerSharesInput selects the tranche and which accrual feed to advance.
type CrawlPerSharesInput struct {
	Tranche string               `json:"tranche"`
	Kind    tracker.PerShareKind `json:"kind"`
}

// CrawlPerShares replicates the next page of one per-share accrual feed and
// folds each new increment into the cached summary of the boundary interval
// it falls into.
func (c *Context) CrawlPerShares(ctx context.Context, in CrawlPerSharesInput) (CrawlOutput, error) {
	tranche := utils.NormalizeAddress(in.Tranche)

	cursor, err := c.Redis.PerShareCursor(ctx, tranche, in.Kind)
	if err != nil {
		return CrawlOutput{}, err
	}

	records, meta, err := c.Ledger.FetchPerShares(ctx, tranche, in.Kind, cursor, c.QueryBatches, c.PageSize)
	if err != nil {
		return CrawlOutput{}, err
	}
	if meta.Block.Number > 0 {
		if err := c.Redis.SetSyncedBlock(ctx, meta.Block.Number, meta.Block.Timestamp); err != nil {
			return CrawlOutput{}, err
		}
	}
	if len(records) == 0 {
		return CrawlOutput{}, nil
	}

	rows := make([]db.PerShareRow, 0, len(records))
	for _, record := range records {
		value, err := tracker.FromRaw(record.Value, tracker.PerShareDecimals)
		if err != nil {
			return CrawlOutput{}, fmt.Errorf("per-share %s value: %w", record.ID, err)
		}
		// The ledger reports pnl magnitudes with losses positive. Negate at
		// ingest so every downstream sum treats losses as negative.
		if in.Kind == tracker.PnlPerShares {
			value = -value
		}
		rows = append(rows, db.PerShareRow{
			ID:        fmt.Sprintf("%d_%s_%s", record.SnapshotAtTimestamp, record.Value, record.ID),
			Tranche:   tranche,
			Kind:      string(in.Kind),
			Value:     value,
			Timestamp: record.SnapshotAtTimestamp,
			SourceID:  record.ID,
			Index:     record.Index,
		})
	}

	inserted, err := c.DB.InsertPerShares(ctx, rows)
	if err != nil {
		return CrawlOutput{}, err
	}

	// Cached summaries are keyed by the boundary closing the interval the
	// increment falls into. Only genuinely new rows accumulate, so replays
	// cannot double count.
	for _, row := range inserted {
		boundary := c.Schedule.Next(row.Timestamp)
		if boundary <= c.CronStartDate {
			continue
		}
		if err := c.Redis.IncrPerShareSummary(ctx, tranche, in.Kind, boundary, row.Value); err != nil {
			return CrawlOutput{}, err
		}
	}

	last := records[len(records)-1]
	if err := c.Redis.SetPerShareCursor(ctx, tranche, in.Kind, last.Index); err != nil {
		return CrawlOutput{}, err
	}

	c.Logger.Info("Per-share crawl advanced",
		zap.String("tranche", tranche),
		zap.String("kind", string(in.Kind)),
		zap.Int("rows", len(records)),
		zap.Int("new", len(inserted)),
		zap.Uint64("cursor", last.Index))

	return CrawlOutput{Rows: len(records), FullPage: len(records) == c.pageLimit()}, nil
}
