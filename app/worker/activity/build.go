package activity

import (
	"context"
	"errors"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/pkg/tracker"
	"github.com/level-fi/llp-tracker/pkg/utils"
)

// BuildInput names the wallets whose windows should be rebuilt.
type BuildInput struct {
	Tranche string   `json:"tranche"`
	Wallets []string `json:"wallets"`
}

// BuildOutput reports the rebuild result. Deferred wallets hit a gap in the
// price series and go back to the pending set.
type BuildOutput struct {
	Built    int      `json:"built"`
	Windows  int      `json:"windows"`
	Deferred []string `json:"deferred,omitempty"`
}

// BuildWallets rebuilds the performance windows of a batch of wallets from
// scratch: reconstruct segments, attribute each checkpoint pair, roll into
// boundary windows, then replace the stored set.
func (c *Context) BuildWallets(ctx context.Context, in BuildInput) (BuildOutput, error) {
	tranche := utils.NormalizeAddress(in.Tranche)

	// One shared price memo per batch: wallets of a tranche synthesize
	// checkpoints at the same boundaries, so lookups repeat heavily.
	prices := xsync.NewMap[int64, float64]()
	priceAt := func(ts int64) (float64, bool) {
		if price, ok := prices.Load(ts); ok {
			return price, true
		}
		price, ok, err := c.Redis.PriceAt(ctx, tranche, ts)
		if err != nil || !ok {
			return 0, false
		}
		prices.Store(ts, price)
		return price, true
	}

	var (
		mu       sync.Mutex
		built    int
		windows  int
		deferred []string
	)

	group := c.workerPool().NewGroup()
	for _, w := range in.Wallets {
		wallet := utils.NormalizeAddress(w)
		group.SubmitErr(func() error {
			count, err := c.buildWallet(ctx, tranche, wallet, priceAt)
			if errors.Is(err, tracker.ErrPriceUnavailable) {
				c.Logger.Warn("Build deferred, price series behind",
					zap.String("tranche", tranche),
					zap.String("wallet", wallet))
				mu.Lock()
				deferred = append(deferred, wallet)
				mu.Unlock()
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			built++
			windows += count
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return BuildOutput{}, err
	}

	return BuildOutput{Built: built, Windows: windows, Deferred: deferred}, nil
}

// buildWallet rebuilds one wallet and returns how many windows it now has.
func (c *Context) buildWallet(ctx context.Context, tranche, wallet string, priceAt tracker.PriceFunc) (int, error) {
	timestamps, err := c.walletTimestamps(ctx, tranche, wallet)
	if err != nil {
		return 0, err
	}
	if len(timestamps) <= 1 {
		return 0, nil
	}

	rows, err := c.DB.Checkpoints(ctx, tranche, wallet, timestamps)
	if err != nil {
		return 0, err
	}
	real := make(map[int64]tracker.Checkpoint, len(rows))
	for _, row := range rows {
		real[row.Timestamp] = tracker.Checkpoint{
			Wallet:         row.Wallet,
			Tranche:        row.Tranche,
			Timestamp:      row.Timestamp,
			LpAmount:       row.LpAmount,
			LpAmountChange: row.LpAmountChange,
			Price:          row.Price,
			Value:          row.Value,
			Block:          row.Block,
			Tx:             row.Tx,
		}
	}

	segments, err := tracker.BuildSegments(wallet, tranche, timestamps, real, priceAt)
	if err != nil {
		return 0, err
	}

	// Each segment rolls on its own. A shared roll would anchor a re-entry
	// window at the previous segment's close and stretch it across the gap
	// where the wallet held nothing.
	var rolled []tracker.Window
	for _, segment := range segments {
		var histories []tracker.HistoryEntry
		for _, pair := range tracker.Pairs(segment) {
			sums, err := c.perShareSums(ctx, tranche, pair)
			if err != nil {
				return 0, err
			}
			histories = append(histories, tracker.Attribute(pair.Start, pair.End, sums))
		}
		rolled = append(rolled, tracker.Roll(wallet, tranche, histories)...)
	}

	ids, err := c.DB.UpsertWindows(ctx, rolled)
	if err != nil {
		return 0, err
	}
	if err := c.DB.RetainWindows(ctx, tranche, wallet, ids); err != nil {
		return 0, err
	}
	return len(rolled), nil
}

// walletTimestamps is the union of the wallet's real action timestamps and
// the boundary series covering its active range. While the wallet still holds
// shares the boundary range stays open ended so the latest boundaries are
// included.
func (c *Context) walletTimestamps(ctx context.Context, tranche, wallet string) ([]int64, error) {
	actions, err := c.Redis.ActionTimestamps(ctx, tranche, wallet)
	if err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return nil, nil
	}

	min := actions[0]
	max := int64(-1)
	holding, err := c.DB.HasLiquidity(ctx, tranche, wallet)
	if err != nil {
		return nil, err
	}
	if !holding {
		max = actions[len(actions)-1]
	}

	boundaries, err := c.Redis.CronCheckpoints(ctx, min, max)
	if err != nil {
		return nil, err
	}
	return append(actions, boundaries...), nil
}

// perShareSums resolves the accrual sums of one checkpoint pair. Pairs whose
// both ends are boundaries can use the pre-aggregated summary; everything
// else sums the interval from ClickHouse.
func (c *Context) perShareSums(ctx context.Context, tranche string, pair tracker.Pair) (tracker.PerShareSums, error) {
	if pair.Start == nil {
		// Opening pair: the whole end value is cash flow, accruals do not
		// apply to a position that did not exist yet.
		return tracker.PerShareSums{}, nil
	}

	if tracker.NeedsCachedSums(pair) {
		sums, ok, err := c.Redis.CachedPerShareSums(ctx, tranche, pair.End.Timestamp)
		if err != nil {
			return tracker.PerShareSums{}, err
		}
		if ok {
			return sums, nil
		}
	}

	return c.DB.PerShareSums(ctx, tranche, pair.Start.Timestamp, pair.End.Timestamp)
}
