package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProjectLiveReturnsNothingForFlatPosition(t *testing.T) {
	histories := []HistoryEntry{ZeroHistory(86400)}
	cpEnd := Checkpoint{Timestamp: 172800, LpAmount: 0, Price: 1.0, IsCron: true}

	_, ok := ProjectLive("0xwallet", "0xtranche", histories, cpEnd, PerShareSums{})
	require.False(t, ok)

	_, ok = ProjectLive("0xwallet", "0xtranche", nil, cpEnd, PerShareSums{})
	require.False(t, ok)
}

func TestProjectLiveSupersedesCronAnchor(t *testing.T) {
	anchor := HistoryEntry{IsCron: true, Timestamp: 86400, Amount: 100, Price: 1.05, Value: 105}
	cpEnd := Checkpoint{Timestamp: 172800, LpAmount: 100, LpAmountChange: 0, Price: 1.07, Value: 107, IsCron: true}

	w, ok := ProjectLive("0xwallet", "0xtranche", []HistoryEntry{anchor}, cpEnd, PerShareSums{Fee: 0.01, Pnl: 0})
	require.True(t, ok)
	require.Equal(t, int64(86400), w.From)
	require.Equal(t, int64(172800), w.To)
	require.InDelta(t, 2.0, w.TotalChange, 1e-9)
	require.InDelta(t, 1.0, w.ValueMovement.Fee, 1e-9)
}

func TestProjectLiveAppendsAfterRealAction(t *testing.T) {
	open := Checkpoint{Timestamp: 90000, LpAmount: 100, LpAmountChange: 100, Price: 1.0, Value: 100}
	histories := []HistoryEntry{Attribute(nil, open, PerShareSums{})}

	cpEnd := Checkpoint{Timestamp: 172800, LpAmount: 100, LpAmountChange: 0, Price: 1.02, Value: 102, IsCron: true}
	w, ok := ProjectLive("0xwallet", "0xtranche", histories, cpEnd, PerShareSums{})
	require.True(t, ok)
	require.Equal(t, int64(90000), w.From)
	require.Equal(t, int64(172800), w.To)
	// Opening flow plus the unrealized price move.
	require.InDelta(t, 102.0, w.TotalChange, 1e-9)
	require.Len(t, w.Histories, 2)
}
