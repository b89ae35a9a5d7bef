package activity

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/pkg/utils"
)

// RegisterBoundariesInput carries the observation time of a boundary tick.
type RegisterBoundariesInput struct {
	Now int64 `json:"now"`
}

// RegisterBoundaries materializes the canonical boundary series from the
// tracking start date up to now. ZADD is idempotent, so re-registering the
// whole series keeps the set exact even after missed ticks.
func (c *Context) RegisterBoundaries(ctx context.Context, in RegisterBoundariesInput) error {
	series := c.Schedule.Series(c.CronStartDate, in.Now)
	if len(series) == 0 {
		return nil
	}
	if err := c.Redis.AddCronCheckpoints(ctx, series...); err != nil {
		return err
	}
	c.Logger.Debug("Boundary series registered",
		zap.Int64("until", series[len(series)-1]),
		zap.Int("boundaries", len(series)))
	return nil
}

// SeedBoundariesInput carries the observation time of a boot-time reseed.
type SeedBoundariesInput struct {
	Now int64 `json:"now"`
}

// SeedBoundaries rebuilds the boundary series from scratch. Run once on boot
// so a changed schedule expression cannot leave stale boundaries behind.
func (c *Context) SeedBoundaries(ctx context.Context, in SeedBoundariesInput) error {
	if err := c.Redis.ResetCronCheckpoints(ctx); err != nil {
		return err
	}
	return c.RegisterBoundaries(ctx, RegisterBoundariesInput(in))
}

// MarkActiveWallets queues every wallet still holding LP shares for a
// rebuild, so each new boundary extends their open windows.
func (c *Context) MarkActiveWallets(ctx context.Context, in CrawlInput) (int, error) {
	tranche := utils.NormalizeAddress(in.Tranche)

	wallets, err := c.Redis.Wallets(ctx, tranche)
	if err != nil {
		return 0, err
	}
	if len(wallets) == 0 {
		return 0, nil
	}

	var (
		mu     sync.Mutex
		active []string
	)
	group := c.workerPool().NewGroup()
	for _, w := range wallets {
		wallet := w
		group.SubmitErr(func() error {
			holding, err := c.DB.HasLiquidity(ctx, tranche, wallet)
			if err != nil {
				return err
			}
			if holding {
				mu.Lock()
				active = append(active, wallet)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}

	if err := c.Redis.AddPendingWallets(ctx, tranche, active); err != nil {
		return 0, err
	}

	c.Logger.Info("Active wallets queued for rebuild",
		zap.String("tranche", tranche),
		zap.Int("wallets", len(active)))
	return len(active), nil
}
