package ledger

// Block is the ledger head observed while serving a query.
type Block struct {
	Number    uint64 `json:"number"`
	Timestamp int64  `json:"timestamp"`
}

// Meta carries the head block every query reports alongside its data.
type Meta struct {
	Block Block `json:"block"`
}

// CheckpointRecord is one wallet checkpoint as the ledger serializes it.
// Amounts and prices are raw fixed-point integers encoded as strings.
type CheckpointRecord struct {
	ID                  string `json:"id"`
	Wallet              string `json:"wallet"`
	Tranche             string `json:"tranche"`
	LpAmount            string `json:"llpAmount"`
	LpAmountChange      string `json:"llpAmountChange"`
	LpPrice             string `json:"llpPrice"`
	SnapshotAtBlock     uint64 `json:"snapshotAtBlock,string"`
	SnapshotAtTimestamp int64  `json:"snapshotAtTimestamp,string"`
	Index               uint64 `json:"index,string"`
	Tx                  string `json:"tx"`
}

// PerShareRecord is one fee or pnl per-share accrual increment.
type PerShareRecord struct {
	ID                  string `json:"id"`
	Tranche             string `json:"tranche"`
	Value               string `json:"value"`
	SnapshotAtTimestamp int64  `json:"snapshotAtTimestamp,string"`
	Index               uint64 `json:"index,string"`
}

// PriceRecord is one LP price sample.
type PriceRecord struct {
	ID                  string `json:"id"`
	Price               string `json:"price"`
	SnapshotAtTimestamp int64  `json:"snapshotAtTimestamp,string"`
}

// CheckpointStat is the tip of the checkpoint feed for one tranche.
type CheckpointStat struct {
	Index               uint64 `json:"index,string"`
	SnapshotAtTimestamp int64  `json:"snapshotAtTimestamp,string"`
}
