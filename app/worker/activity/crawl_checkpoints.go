package activity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/pkg/db"
	"github.com/level-fi/llp-tracker/pkg/ledger"
	"github.com/level-fi/llp-tracker/pkg/tracker"
	"github.com/level-fi/llp-tracker/pkg/utils"
)

// CrawlInput selects the tranche a crawl activity works on.
type CrawlInput struct {
	Tranche string `json:"tranche"`
}

// CrawlOutput reports how far a crawl round advanced. FullPage signals that
// the feed likely has more rows and the workflow should continue immediately.
type CrawlOutput struct {
	Rows     int  `json:"rows"`
	FullPage bool `json:"fullPage"`
}

// CrawlCheckpoints replicates the next page of the wallet checkpoint feed
// into ClickHouse and updates the Redis wallet bookkeeping.
func (c *Context) CrawlCheckpoints(ctx context.Context, in CrawlInput) (CrawlOutput, error) {
	tranche := utils.NormalizeAddress(in.Tranche)

	cursor, err := c.Redis.CheckpointCursor(ctx, tranche)
	if err != nil {
		return CrawlOutput{}, err
	}

	records, meta, err := c.Ledger.FetchCheckpoints(ctx, tranche, cursor, c.QueryBatches, c.PageSize)
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

	rows := make([]db.CheckpointRow, 0, len(records))
	pageWallets := make([]string, 0, len(records))
	actions := make(map[string][]int64)
	for _, record := range records {
		row, err := checkpointRow(record)
		if err != nil {
			return CrawlOutput{}, err
		}
		rows = append(rows, row)
		pageWallets = append(pageWallets, row.Wallet)
		if row.LpAmountChange != 0 {
			actions[row.Wallet] = append(actions[row.Wallet], row.Timestamp)
		}
	}

	inserted, err := c.DB.InsertCheckpoints(ctx, rows)
	if err != nil {
		return CrawlOutput{}, err
	}

	// Every wallet on the page joins the tranche roster, but only wallets
	// with genuinely new checkpoints get queued for a rebuild.
	if err := c.Redis.AddWallets(ctx, tranche, utils.Dedup(pageWallets)); err != nil {
		return CrawlOutput{}, err
	}
	for wallet, timestamps := range actions {
		if err := c.Redis.AddActionTimestamps(ctx, tranche, wallet, timestamps...); err != nil {
			return CrawlOutput{}, err
		}
	}
	dirty := make([]string, 0, len(inserted))
	for _, row := range inserted {
		dirty = append(dirty, row.Wallet)
	}
	if err := c.Redis.AddPendingWallets(ctx, tranche, utils.Dedup(dirty)); err != nil {
		return CrawlOutput{}, err
	}

	last := records[len(records)-1]
	if err := c.Redis.SetCheckpointCursor(ctx, tranche, last.Index); err != nil {
		return CrawlOutput{}, err
	}

	c.Logger.Info("Checkpoint crawl advanced",
		zap.String("tranche", tranche),
		zap.Int("rows", len(records)),
		zap.Int("new", len(inserted)),
		zap.Uint64("cursor", last.Index))

	return CrawlOutput{Rows: len(records), FullPage: len(records) == c.pageLimit()}, nil
}

// checkpointRow scales a raw ledger record into float amounts. The amount
// change keeps the ledger's sign: deposits positive, withdrawals negative.
func checkpointRow(record ledger.CheckpointRecord) (db.CheckpointRow, error) {
	wallet := utils.NormalizeAddress(record.Wallet)
	tranche := utils.NormalizeAddress(record.Tranche)

	amount, err := tracker.FromRaw(record.LpAmount, tracker.AmountDecimals)
	if err != nil {
		return db.CheckpointRow{}, fmt.Errorf("checkpoint %s amount: %w", record.ID, err)
	}
	change, err := tracker.FromRaw(record.LpAmountChange, tracker.AmountDecimals)
	if err != nil {
		return db.CheckpointRow{}, fmt.Errorf("checkpoint %s change: %w", record.ID, err)
	}
	price, err := tracker.FromRaw(record.LpPrice, tracker.PriceDecimals)
	if err != nil {
		return db.CheckpointRow{}, fmt.Errorf("checkpoint %s price: %w", record.ID, err)
	}
	rawValue, err := tracker.RawValue(record.LpAmount, record.LpPrice)
	if err != nil {
		return db.CheckpointRow{}, fmt.Errorf("checkpoint %s value: %w", record.ID, err)
	}
	value, err := tracker.FromRaw(rawValue, tracker.ValueDecimals)
	if err != nil {
		return db.CheckpointRow{}, fmt.Errorf("checkpoint %s value: %w", record.ID, err)
	}

	return db.CheckpointRow{
		ID:             tracker.CheckpointID(wallet, tranche, record.SnapshotAtTimestamp),
		Wallet:         wallet,
		Tranche:        tranche,
		Timestamp:      record.SnapshotAtTimestamp,
		LpAmount:       amount,
		LpAmountChange: change,
		Price:          price,
		Value:          value,
		Block:          record.SnapshotAtBlock,
		Tx:             record.Tx,
		Index:          record.Index,
	}, nil
}
