package tracker

// CheckpointFromHistory rebuilds the checkpoint underlying a persisted
// history entry so it can anchor a live projection.
func CheckpointFromHistory(wallet, tranche string, h HistoryEntry) Checkpoint {
	return Checkpoint{
		Wallet:         wallet,
		Tranche:        tranche,
		Timestamp:      h.Timestamp,
		LpAmount:       h.Amount,
		LpAmountChange: h.AmountChange,
		Price:          h.Price,
		Value:          h.Value,
		IsCron:         h.IsCron,
		Block:          h.Block,
		Tx:             h.Tx,
	}
}

// ZeroHistory is the fallback anchor for wallets whose last window closed
// flat (or that have no windows at all): an empty cron entry at the previous
// canonical boundary.
func ZeroHistory(timestamp int64) HistoryEntry {
	return HistoryEntry{IsCron: true, Timestamp: timestamp}
}

// ProjectLive runs one attribution and one rollup pass over the persisted
// histories extended with a provisional cron checkpoint at the next boundary,
// and returns the single unrealized window.
//
// The caller supplies cpEnd (next boundary timestamp, current price, and the
// on-chain amount/amountChange observed since the last history entry) and the
// per-share sums over that interval. If both the anchor and the provisional
// end hold zero balance there is nothing to project. A cron anchor is
// superseded rather than extended: only the anchor and the new entry feed the
// rollup, so the provisional window replaces the boundary it re-covers.
func ProjectLive(wallet, tranche string, histories []HistoryEntry, cpEnd Checkpoint, perShares PerShareSums) (Window, bool) {
	if len(histories) == 0 {
		return Window{}, false
	}
	last := histories[len(histories)-1]
	cpStart := CheckpointFromHistory(wallet, tranche, last)
	if cpStart.LpAmount == 0 && cpEnd.LpAmount == 0 {
		return Window{}, false
	}

	entry := Attribute(&cpStart, cpEnd, perShares)

	var projected []HistoryEntry
	if last.IsCron {
		projected = []HistoryEntry{last, entry}
	} else {
		projected = append(append([]HistoryEntry{}, histories...), entry)
	}

	windows := Roll(wallet, tranche, projected)
	if len(windows) == 0 {
		return Window{}, false
	}
	return windows[0], true
}
