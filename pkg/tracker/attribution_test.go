package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttributeOpeningPair(t *testing.T) {
	cpEnd := Checkpoint{
		Wallet:         "0xwallet",
		Tranche:        "0xtranche",
		Timestamp:      0,
		LpAmount:       100,
		LpAmountChange: 100,
		Price:          1.0,
		Value:          100,
	}

	entry := Attribute(nil, cpEnd, PerShareSums{})

	require.Equal(t, 100.0, entry.TotalChange)
	require.Equal(t, 0.0, entry.ValueMovement.Fee)
	require.Equal(t, 0.0, entry.ValueMovement.Pnl)
	require.Equal(t, 100.0, entry.ValueMovement.ValueChange)
	require.Equal(t, 0.0, entry.ValueMovement.Price)
}

func TestAttributeCronBoundary(t *testing.T) {
	cpStart := &Checkpoint{Timestamp: 0, LpAmount: 100, LpAmountChange: 100, Price: 1.0, Value: 100}
	cpEnd := Checkpoint{Timestamp: 86400, LpAmount: 100, LpAmountChange: 0, Price: 1.05, Value: 105, IsCron: true}

	entry := Attribute(cpStart, cpEnd, PerShareSums{Fee: 0.02, Pnl: -0.005})

	require.InDelta(t, 5.0, entry.TotalChange, 1e-9)
	require.InDelta(t, 2.0, entry.ValueMovement.Fee, 1e-9)
	require.InDelta(t, -0.5, entry.ValueMovement.Pnl, 1e-9)
	require.InDelta(t, 0.0, entry.ValueMovement.ValueChange, 1e-9)
	require.InDelta(t, 3.5, entry.ValueMovement.Price, 1e-9)
}

func TestAttributeFullExit(t *testing.T) {
	cpStart := &Checkpoint{Timestamp: 86400, LpAmount: 100, LpAmountChange: 0, Price: 1.05, Value: 105, IsCron: true}
	cpEnd := Checkpoint{Timestamp: 86500, LpAmount: 0, LpAmountChange: -100, Price: 1.10, Value: 0}

	entry := Attribute(cpStart, cpEnd, PerShareSums{})

	// Basis is the 100 units held before the withdrawal; the residual captures
	// the 0.05 price move since the prior checkpoint.
	require.InDelta(t, -105.0, entry.TotalChange, 1e-9)
	require.InDelta(t, 0.0, entry.ValueMovement.Fee, 1e-9)
	require.InDelta(t, 0.0, entry.ValueMovement.Pnl, 1e-9)
	require.InDelta(t, -110.0, entry.ValueMovement.ValueChange, 1e-9)
	require.InDelta(t, 5.0, entry.ValueMovement.Price, 1e-9)
}

func TestAttributeDecompositionClosure(t *testing.T) {
	cases := []struct {
		name      string
		start     *Checkpoint
		end       Checkpoint
		perShares PerShareSums
	}{
		{
			name:      "partial withdraw with accrual",
			start:     &Checkpoint{Timestamp: 100, LpAmount: 80, LpAmountChange: 0, Price: 2.0, Value: 160, IsCron: true},
			end:       Checkpoint{Timestamp: 200, LpAmount: 50, LpAmountChange: -30, Price: 2.1, Value: 105},
			perShares: PerShareSums{Fee: 0.013, Pnl: 0.007},
		},
		{
			name:      "deposit on top of position",
			start:     &Checkpoint{Timestamp: 100, LpAmount: 10, LpAmountChange: 10, Price: 0.97, Value: 9.7},
			end:       Checkpoint{Timestamp: 500, LpAmount: 35, LpAmountChange: 25, Price: 1.02, Value: 35.7},
			perShares: PerShareSums{Fee: 0.004, Pnl: -0.011},
		},
		{
			name: "opening",
			end:  Checkpoint{Timestamp: 0, LpAmount: 12.5, LpAmountChange: 12.5, Price: 1.3, Value: 16.25},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := Attribute(tc.start, tc.end, tc.perShares)
			vm := entry.ValueMovement
			require.InDelta(t, entry.TotalChange, vm.Fee+vm.Pnl+vm.ValueChange+vm.Price, 1e-9)
		})
	}
}
