package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// CheckpointID derives the content identity of a checkpoint document.
// Re-crawling the same ledger rows always maps to the same ids, so duplicate
// inserts are rejected by the store instead of piling up.
func CheckpointID(wallet, tranche string, timestamp int64) string {
	return hashID(fmt.Sprintf("%s_%s_%d", wallet, tranche, timestamp))
}

// WindowID derives the deterministic identity of a reporting window from the
// fields that pin down its inputs. Rebuilding from the same checkpoints and
// per-share data produces the same id, making the upsert-then-retain
// reconciliation idempotent.
func WindowID(w Window) string {
	based := fmt.Sprintf("%s_%s_%d_%d_%v_%v_%v",
		w.Wallet, w.Tranche, w.From, w.To,
		w.ValueMovement.Fee, w.ValueMovement.Pnl, w.ValueMovement.Price)
	return hashID(based)
}

func hashID(based string) string {
	sum := sha256.Sum256([]byte(based))
	return hex.EncodeToString(sum[:])
}
