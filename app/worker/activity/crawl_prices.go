package activity

import (
	"context"

	"go.uber.org/zap"

	redisclient "github.com/level-fi/llp-tracker/pkg/redis"
	"github.com/level-fi/llp-tracker/pkg/utils"
)

// CrawlPrices replicates the next page of the LP price series into the Redis
// price index used for boundary valuation.
func (c *Context) CrawlPrices(ctx context.Context, in CrawlInput) (CrawlOutput, error) {
	tranche := utils.NormalizeAddress(in.Tranche)

	cursor, err := c.Redis.PriceCursor(ctx, tranche)
	if err != nil {
		return CrawlOutput{}, err
	}
	// Overlap one second on resume so a sample sharing the cursor timestamp
	// is never skipped.
	after := cursor
	if after > 0 {
		after--
	}

	records, meta, err := c.Ledger.FetchPrices(ctx, tranche, after, c.pageLimit())
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

	points := make([]redisclient.PricePoint, 0, len(records))
	for _, record := range records {
		points = append(points, redisclient.PricePoint{
			Timestamp: record.SnapshotAtTimestamp,
			Raw:       record.Price,
		})
	}
	if err := c.Redis.AddPrices(ctx, tranche, points); err != nil {
		return CrawlOutput{}, err
	}

	last := records[len(records)-1]
	if err := c.Redis.SetPriceCursor(ctx, tranche, last.SnapshotAtTimestamp); err != nil {
		return CrawlOutput{}, err
	}

	c.Logger.Info("Price crawl advanced",
		zap.String("tranche", tranche),
		zap.Int("rows", len(records)),
		zap.Int64("cursor", last.SnapshotAtTimestamp))

	return CrawlOutput{Rows: len(records), FullPage: len(records) == c.pageLimit()}, nil
}
