// Package tracker holds the checkpoint reconstruction and financial
// attribution pipeline. Everything in this package is pure: inputs are
// pre-fetched by the caller so the algorithms stay deterministic and
// unit-testable.
package tracker

// Checkpoint is a discrete snapshot of one wallet's position in one tranche
// at one timestamp. Real checkpoints come from the ledger; cron checkpoints
// are synthesized during reconstruction and never persisted.
type Checkpoint struct {
	Wallet    string  `json:"wallet"`
	Tranche   string  `json:"tranche"`
	Timestamp int64   `json:"timestamp"`
	LpAmount  float64 `json:"lpAmount"`
	// LpAmountChange is the signed delta applied at this timestamp.
	// Deposits are positive, withdrawals negative; zero for cron checkpoints.
	LpAmountChange float64 `json:"lpAmountChange"`
	Price          float64 `json:"price"`
	Value          float64 `json:"value"`
	IsCron         bool    `json:"isCron"`
	Block          uint64  `json:"block,omitempty"`
	Tx             string  `json:"tx,omitempty"`
}

// Segment is one continuous holding period: it starts at the first
// checkpoint with a nonzero balance and ends when the balance returns to zero.
type Segment []Checkpoint

// Pair is two adjacent checkpoints of a segment. Start is nil for the
// opening transition, where the entire end value counts as cash flow.
type Pair struct {
	Start *Checkpoint
	End   Checkpoint
}

// PerShareKind selects one of the two per-share accumulator feeds.
type PerShareKind string

const (
	FeePerShares PerShareKind = "fee"
	PnlPerShares PerShareKind = "pnl"
)

// PerShareSums is the fee and pnl per-share accrual summed over the
// half-open interval [from, to) between two checkpoints.
type PerShareSums struct {
	Fee float64
	Pnl float64
}

// ValueMovement is the four-way decomposition of a value change.
// Price is always derived as the residual so the four parts sum exactly
// to the total change.
type ValueMovement struct {
	Fee         float64 `json:"fee"`
	Pnl         float64 `json:"pnl"`
	Price       float64 `json:"price"`
	ValueChange float64 `json:"valueChange"`
}

// HistoryEntry is the attributed delta for one adjacent checkpoint pair.
type HistoryEntry struct {
	IsCron        bool          `json:"isCron"`
	Timestamp     int64         `json:"timestamp"`
	Amount        float64       `json:"amount"`
	AmountChange  float64       `json:"amountChange"`
	Price         float64       `json:"price"`
	Value         float64       `json:"value"`
	Block         uint64        `json:"block,omitempty"`
	Tx            string        `json:"tx,omitempty"`
	TotalChange   float64       `json:"totalChange"`
	ValueMovement ValueMovement `json:"valueMovement"`
}

// Window is one calendar-aligned reporting window rolled up from one or more
// history entries.
type Window struct {
	Wallet         string         `json:"wallet"`
	Tranche        string         `json:"tranche"`
	From           int64          `json:"from"`
	To             int64          `json:"to"`
	Amount         float64        `json:"amount"`
	AmountChange   float64        `json:"amountChange"`
	Price          float64        `json:"price"`
	Value          float64        `json:"value"`
	TotalChange    float64        `json:"totalChange"`
	RelativeChange float64        `json:"relativeChange"`
	NominalApr     float64        `json:"nominalApr"`
	NetApr         float64        `json:"netApr"`
	ValueMovement  ValueMovement  `json:"valueMovement"`
	Histories      []HistoryEntry `json:"histories"`
}
