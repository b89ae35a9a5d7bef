package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/level-fi/llp-tracker/pkg/tracker"
	"github.com/redis/go-redis/v9"
)

// PricePoint is one raw price sample from the ledger's price series.
type PricePoint struct {
	Timestamp int64
	Raw       string
}

func (c *Client) perShareCursorKey(tranche string, kind tracker.PerShareKind) string {
	if kind == tracker.FeePerShares {
		return feeCursorKey(tranche)
	}
	return pnlCursorKey(tranche)
}

func (c *Client) cursor(ctx context.Context, key string) (uint64, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cursor %s: %w", key, err)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cursor %s=%q: %w", key, v, err)
	}
	return n, nil
}

// CheckpointCursor returns the last synced checkpoint ledger index for a tranche.
func (c *Client) CheckpointCursor(ctx context.Context, tranche string) (uint64, error) {
	return c.cursor(ctx, checkpointCursorKey(tranche))
}

// SetCheckpointCursor advances the checkpoint cursor. Called only after the
// fetched batch was durably applied.
func (c *Client) SetCheckpointCursor(ctx context.Context, tranche string, index uint64) error {
	return c.client.Set(ctx, checkpointCursorKey(tranche), index, 0).Err()
}

// PerShareCursor returns the last synced per-share ledger index.
func (c *Client) PerShareCursor(ctx context.Context, tranche string, kind tracker.PerShareKind) (uint64, error) {
	return c.cursor(ctx, c.perShareCursorKey(tranche, kind))
}

// SetPerShareCursor advances the per-share cursor.
func (c *Client) SetPerShareCursor(ctx context.Context, tranche string, kind tracker.PerShareKind, index uint64) error {
	return c.client.Set(ctx, c.perShareCursorKey(tranche, kind), index, 0).Err()
}

// PriceCursor returns the timestamp of the last synced price sample.
func (c *Client) PriceCursor(ctx context.Context, tranche string) (int64, error) {
	n, err := c.cursor(ctx, pricesCursorKey(tranche))
	return int64(n), err
}

// SetPriceCursor advances the price cursor.
func (c *Client) SetPriceCursor(ctx context.Context, tranche string, timestamp int64) error {
	return c.client.Set(ctx, pricesCursorKey(tranche), timestamp, 0).Err()
}

// AddWallets records wallets seen in a tranche.
func (c *Client) AddWallets(ctx context.Context, tranche string, wallets []string) error {
	if len(wallets) == 0 {
		return nil
	}
	members := make([]interface{}, len(wallets))
	for i, w := range wallets {
		members[i] = w
	}
	return c.client.SAdd(ctx, walletsKey(tranche), members...).Err()
}

// Wallets returns every wallet ever seen in a tranche.
func (c *Client) Wallets(ctx context.Context, tranche string) ([]string, error) {
	return c.client.SMembers(ctx, walletsKey(tranche)).Result()
}

// AddPendingWallets marks wallets dirty so the next drain rebuilds them.
func (c *Client) AddPendingWallets(ctx context.Context, tranche string, wallets []string) error {
	if len(wallets) == 0 {
		return nil
	}
	members := make([]interface{}, len(wallets))
	for i, w := range wallets {
		members[i] = w
	}
	return c.client.SAdd(ctx, pendingWalletsKey(tranche), members...).Err()
}

// DrainPendingWallets pops the pending set. The entries are cleared once read;
// build failures re-add their wallets, so nothing is lost on a crashed build.
func (c *Client) DrainPendingWallets(ctx context.Context, tranche string) ([]string, error) {
	key := pendingWalletsKey(tranche)
	wallets, err := c.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read pending wallets of %s: %w", tranche, err)
	}
	if len(wallets) == 0 {
		return nil, nil
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("clear pending wallets of %s: %w", tranche, err)
	}
	return wallets, nil
}

// AddActionTimestamps records real action timestamps for a wallet. Only
// checkpoints with a nonzero amount change count as actions.
func (c *Client) AddActionTimestamps(ctx context.Context, tranche, wallet string, timestamps ...int64) error {
	if len(timestamps) == 0 {
		return nil
	}
	zs := make([]redis.Z, len(timestamps))
	for i, ts := range timestamps {
		zs[i] = redis.Z{Score: float64(ts), Member: ts}
	}
	return c.client.ZAdd(ctx, actionTimestampsKey(tranche, wallet), zs...).Err()
}

// ActionTimestamps returns a wallet's real action timestamps, ascending.
func (c *Client) ActionTimestamps(ctx context.Context, tranche, wallet string) ([]int64, error) {
	raw, err := c.client.ZRangeByScore(ctx, actionTimestampsKey(tranche, wallet), &redis.ZRangeBy{Min: "0", Max: "+inf"}).Result()
	if err != nil {
		return nil, err
	}
	return parseInts(raw), nil
}

// ResetCronCheckpoints clears the canonical boundary series before reseeding.
func (c *Client) ResetCronCheckpoints(ctx context.Context) error {
	return c.client.Del(ctx, cronCheckpointsKey()).Err()
}

// AddCronCheckpoints registers canonical boundary timestamps.
func (c *Client) AddCronCheckpoints(ctx context.Context, timestamps ...int64) error {
	if len(timestamps) == 0 {
		return nil
	}
	zs := make([]redis.Z, len(timestamps))
	for i, ts := range timestamps {
		zs[i] = redis.Z{Score: float64(ts), Member: ts}
	}
	return c.client.ZAdd(ctx, cronCheckpointsKey(), zs...).Err()
}

// CronCheckpoints returns boundaries with min <= ts <= max, ascending.
// A negative max means unbounded.
func (c *Client) CronCheckpoints(ctx context.Context, min, max int64) ([]int64, error) {
	maxArg := "+inf"
	if max >= 0 {
		maxArg = strconv.FormatInt(max, 10)
	}
	raw, err := c.client.ZRangeByScore(ctx, cronCheckpointsKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(min, 10),
		Max: maxArg,
	}).Result()
	if err != nil {
		return nil, err
	}
	return parseInts(raw), nil
}

// PrevCronCheckpoint returns the latest boundary at or before the timestamp.
func (c *Client) PrevCronCheckpoint(ctx context.Context, timestamp int64) (int64, bool, error) {
	raw, err := c.client.ZRevRangeByScore(ctx, cronCheckpointsKey(), &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(timestamp, 10),
		Count: 1,
	}).Result()
	if err != nil {
		return 0, false, err
	}
	if len(raw) == 0 {
		return 0, false, nil
	}
	ts, err := strconv.ParseInt(raw[0], 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cron boundary %q: %w", raw[0], err)
	}
	return ts, true, nil
}

// AddPrices appends raw price samples to a tranche's price series.
// Members are "timestamp:raw" so identical raw prices at different
// timestamps stay distinct points.
func (c *Client) AddPrices(ctx context.Context, tranche string, points []PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	zs := make([]redis.Z, len(points))
	for i, p := range points {
		zs[i] = redis.Z{Score: float64(p.Timestamp), Member: fmt.Sprintf("%d:%s", p.Timestamp, p.Raw)}
	}
	return c.client.ZAdd(ctx, tranchePricesKey(tranche), zs...).Err()
}

// PriceAt returns the LP price at or before the timestamp, nearest first.
func (c *Client) PriceAt(ctx context.Context, tranche string, timestamp int64) (float64, bool, error) {
	raw, err := c.client.ZRevRangeByScore(ctx, tranchePricesKey(tranche), &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(timestamp, 10),
		Count: 1,
	}).Result()
	if err != nil {
		return 0, false, err
	}
	if len(raw) == 0 {
		return 0, false, nil
	}
	_, rawPrice, ok := strings.Cut(raw[0], ":")
	if !ok {
		return 0, false, fmt.Errorf("malformed price member %q", raw[0])
	}
	price, err := tracker.FromRaw(rawPrice, tracker.PriceDecimals)
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

// IncrPerShareSummary accumulates a per-share increment into the cached
// summary of the boundary interval it falls into.
func (c *Client) IncrPerShareSummary(ctx context.Context, tranche string, kind tracker.PerShareKind, boundary int64, delta float64) error {
	key := perShareSummaryKey(c.perShareCursorKey(tranche, kind), boundary)
	return c.client.IncrByFloat(ctx, key, delta).Err()
}

// CachedPerShareSums returns the cached fee/pnl sums for the interval ending
// at the boundary. Valid only for action-free intervals; both entries must be
// present for the cache to be usable.
func (c *Client) CachedPerShareSums(ctx context.Context, tranche string, boundary int64) (tracker.PerShareSums, bool, error) {
	var sums tracker.PerShareSums
	feeRaw, err := c.client.Get(ctx, perShareSummaryKey(feeCursorKey(tranche), boundary)).Result()
	if errors.Is(err, redis.Nil) {
		return sums, false, nil
	}
	if err != nil {
		return sums, false, err
	}
	pnlRaw, err := c.client.Get(ctx, perShareSummaryKey(pnlCursorKey(tranche), boundary)).Result()
	if errors.Is(err, redis.Nil) {
		return sums, false, nil
	}
	if err != nil {
		return sums, false, err
	}
	fee, err := strconv.ParseFloat(feeRaw, 64)
	if err != nil {
		return sums, false, fmt.Errorf("parse cached fee summary %q: %w", feeRaw, err)
	}
	pnl, err := strconv.ParseFloat(pnlRaw, 64)
	if err != nil {
		return sums, false, fmt.Errorf("parse cached pnl summary %q: %w", pnlRaw, err)
	}
	sums.Fee = fee
	sums.Pnl = pnl
	return sums, true, nil
}

// SetSyncedBlock records the ledger head block observed by a crawl.
func (c *Client) SetSyncedBlock(ctx context.Context, block uint64, timestamp int64) error {
	return c.client.ZAdd(ctx, syncedBlockKey(), redis.Z{Score: float64(block), Member: timestamp}).Err()
}

// LastSyncedBlock returns the highest ledger block any crawl has observed.
func (c *Client) LastSyncedBlock(ctx context.Context) (uint64, int64, bool, error) {
	zs, err := c.client.ZRevRangeWithScores(ctx, syncedBlockKey(), 0, 0).Result()
	if err != nil {
		return 0, 0, false, err
	}
	if len(zs) == 0 {
		return 0, 0, false, nil
	}
	ts, _ := strconv.ParseInt(fmt.Sprint(zs[0].Member), 10, 64)
	return uint64(zs[0].Score), ts, true, nil
}

func parseInts(raw []string) []int64 {
	out := make([]int64, 0, len(raw))
	for _, r := range raw {
		n, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
