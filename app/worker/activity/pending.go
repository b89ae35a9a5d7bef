package activity

import (
	"context"

	"github.com/level-fi/llp-tracker/pkg/utils"
)

// DrainPending pops the dirty wallet set of a tranche.
func (c *Context) DrainPending(ctx context.Context, in CrawlInput) ([]string, error) {
	return c.Redis.DrainPendingWallets(ctx, utils.NormalizeAddress(in.Tranche))
}

// RequeuePending puts wallets back into the dirty set after a failed or
// deferred build.
func (c *Context) RequeuePending(ctx context.Context, in BuildInput) error {
	return c.Redis.AddPendingWallets(ctx, utils.NormalizeAddress(in.Tranche), in.Wallets)
}

// QueueWallets marks explicit wallets dirty. Backs the manual rebuild API.
func (c *Context) QueueWallets(ctx context.Context, in BuildInput) error {
	return c.Redis.AddPendingWallets(ctx, utils.NormalizeAddress(in.Tranche), in.Wallets)
}

// QueueAllWallets marks every known wallet of a tranche dirty. Backs the
// manual full-rebuild API.
func (c *Context) QueueAllWallets(ctx context.Context, in CrawlInput) (int, error) {
	tranche := utils.NormalizeAddress(in.Tranche)
	wallets, err := c.Redis.Wallets(ctx, tranche)
	if err != nil {
		return 0, err
	}
	if err := c.Redis.AddPendingWallets(ctx, tranche, wallets); err != nil {
		return 0, err
	}
	return len(wallets), nil
}
