package redis

import "fmt"

// All tracker state lives under one prefix so multiple deployments can share
// a Redis instance.
const keyPrefix = "llp"

func checkpointCursorKey(tranche string) string {
	return fmt.Sprintf("%s:crawler:%s:checkpoint", keyPrefix, tranche)
}

func feeCursorKey(tranche string) string {
	return fmt.Sprintf("%s:crawler:%s:fee_per_shares", keyPrefix, tranche)
}

func pnlCursorKey(tranche string) string {
	return fmt.Sprintf("%s:crawler:%s:pnl_per_shares", keyPrefix, tranche)
}

func pricesCursorKey(tranche string) string {
	return fmt.Sprintf("%s:crawler:%s:prices", keyPrefix, tranche)
}

func walletsKey(tranche string) string {
	return fmt.Sprintf("%s:tranche:%s:wallets", keyPrefix, tranche)
}

func pendingWalletsKey(tranche string) string {
	return fmt.Sprintf("%s:tranche:%s:pending_wallets", keyPrefix, tranche)
}

func actionTimestampsKey(tranche, wallet string) string {
	return fmt.Sprintf("%s:tranche:%s:timestamp:%s", keyPrefix, tranche, wallet)
}

func cronCheckpointsKey() string {
	return fmt.Sprintf("%s:checkpoints", keyPrefix)
}

func tranchePricesKey(tranche string) string {
	return fmt.Sprintf("%s:tranche:%s:prices", keyPrefix, tranche)
}

func perShareSummaryKey(cursorKey string, boundary int64) string {
	return fmt.Sprintf("%s:summary:%s:%d", keyPrefix, cursorKey, boundary)
}

func syncedBlockKey() string {
	return fmt.Sprintf("%s:synced_block", keyPrefix)
}
