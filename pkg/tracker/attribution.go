package tracker

// Attribute decomposes the value change between two adjacent checkpoints into
// fee income, counterparty pnl, cash flow, and price movement.
//
// The basis amount is the balance held immediately before the end
// checkpoint's action: lpAmount minus the signed lpAmountChange, zero for an
// opening pair. Fee and pnl scale the per-share accruals by that basis; cash
// flow is the deposit or withdrawal valued at the end price (the entire value
// for an opening pair); price movement is the residual, never computed
// independently, so the four parts always sum exactly to the total change.
func Attribute(cpStart *Checkpoint, cpEnd Checkpoint, perShares PerShareSums) HistoryEntry {
	var startValue, basis float64
	if cpStart != nil {
		startValue = cpStart.Value
		basis = cpEnd.LpAmount - cpEnd.LpAmountChange
	}

	totalChange := cpEnd.Value - startValue
	fee := basis * perShares.Fee
	pnl := basis * perShares.Pnl
	valueChange := cpEnd.Value
	if cpStart != nil {
		valueChange = cpEnd.LpAmountChange * cpEnd.Price
	}
	price := totalChange - fee - pnl - valueChange

	return HistoryEntry{
		IsCron:       cpEnd.IsCron,
		Timestamp:    cpEnd.Timestamp,
		Amount:       cpEnd.LpAmount,
		AmountChange: cpEnd.LpAmountChange,
		Price:        cpEnd.Price,
		Value:        cpEnd.Value,
		Block:        cpEnd.Block,
		Tx:           cpEnd.Tx,
		TotalChange:  totalChange,
		ValueMovement: ValueMovement{
			Fee:         fee,
			Pnl:         pnl,
			Price:       price,
			ValueChange: valueChange,
		},
	}
}

// NeedsCachedSums reports whether the per-share sums for a pair may be served
// from the cached per-boundary summary: only action-free intervals, i.e. both
// endpoints are cron boundaries. The cache is an optimization and must agree
// with direct summation over the same interval.
func NeedsCachedSums(p Pair) bool {
	return p.Start != nil && p.Start.IsCron && p.End.IsCron
}
