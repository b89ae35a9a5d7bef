package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// workedHistories is the open -> cron -> full-exit scenario used across the
// attribution tests, attributed into history entries.
func workedHistories() []HistoryEntry {
	open := Checkpoint{Timestamp: 0, LpAmount: 100, LpAmountChange: 100, Price: 1.0, Value: 100}
	cron := Checkpoint{Timestamp: 86400, LpAmount: 100, LpAmountChange: 0, Price: 1.05, Value: 105, IsCron: true}
	exit := Checkpoint{Timestamp: 86500, LpAmount: 0, LpAmountChange: -100, Price: 1.10, Value: 0}

	return []HistoryEntry{
		Attribute(nil, open, PerShareSums{}),
		Attribute(&open, cron, PerShareSums{Fee: 0.02, Pnl: -0.005}),
		Attribute(&cron, exit, PerShareSums{}),
	}
}

func TestRollWorkedScenario(t *testing.T) {
	windows := Roll("0xwallet", "0xtranche", workedHistories())
	require.Len(t, windows, 2)

	first := windows[0]
	require.Equal(t, int64(0), first.From)
	require.Equal(t, int64(86400), first.To)
	require.Equal(t, 100.0, first.Amount)
	require.Equal(t, 100.0, first.AmountChange)
	require.InDelta(t, 105.0, first.TotalChange, 1e-9)
	require.InDelta(t, 100.0, first.RelativeChange, 1e-9)
	require.InDelta(t, 2.0, first.ValueMovement.Fee, 1e-9)
	// Average liquidity over the first day is the full 105 position value.
	require.InDelta(t, 2.0/105*100, first.NominalApr, 1e-9)
	require.InDelta(t, 1.5/105*100, first.NetApr, 1e-9)
	require.Len(t, first.Histories, 2)

	second := windows[1]
	require.Equal(t, int64(86400), second.From)
	require.Equal(t, int64(86500), second.To)
	require.Equal(t, 0.0, second.Amount)
	require.Equal(t, -100.0, second.AmountChange)
	require.InDelta(t, -105.0, second.TotalChange, 1e-9)
	require.Equal(t, -100.0, second.RelativeChange)
}

func TestRollWindowsPartitionSegment(t *testing.T) {
	histories := workedHistories()
	windows := Roll("0xwallet", "0xtranche", histories)
	require.NotEmpty(t, windows)

	require.Equal(t, histories[0].Timestamp, windows[0].From)
	require.Equal(t, histories[len(histories)-1].Timestamp, windows[len(windows)-1].To)
	for i := 1; i < len(windows); i++ {
		require.Equal(t, windows[i-1].To, windows[i].From)
	}

	var sumChange float64
	for _, w := range windows {
		sumChange += w.AmountChange
	}
	require.InDelta(t, 0.0, sumChange, 1e-9)
}

func TestRollSkipsLeadingCronEntry(t *testing.T) {
	anchor := HistoryEntry{IsCron: true, Timestamp: 86400, Amount: 100, Price: 1.05, Value: 105}
	next := HistoryEntry{IsCron: true, Timestamp: 172800, Amount: 100, Price: 1.06, Value: 106, TotalChange: 1,
		ValueMovement: ValueMovement{Fee: 0.5, Pnl: 0.2, Price: 0.3}}

	windows := Roll("0xwallet", "0xtranche", []HistoryEntry{anchor, next})
	require.Len(t, windows, 1)
	// The leading cron entry anchors the window start but contributes nothing.
	require.Equal(t, int64(86400), windows[0].From)
	require.Equal(t, int64(172800), windows[0].To)
	require.InDelta(t, 1.0, windows[0].TotalChange, 1e-9)
	require.Len(t, windows[0].Histories, 1)
}

func TestRollClosesOnMidPeriodExit(t *testing.T) {
	open := Checkpoint{Timestamp: 1000, LpAmount: 10, LpAmountChange: 10, Price: 1.0, Value: 10}
	exit := Checkpoint{Timestamp: 2000, LpAmount: 0, LpAmountChange: -10, Price: 1.0, Value: 0}
	histories := []HistoryEntry{
		Attribute(nil, open, PerShareSums{}),
		Attribute(&open, exit, PerShareSums{}),
	}

	windows := Roll("0xwallet", "0xtranche", histories)
	require.Len(t, windows, 1)
	require.Equal(t, int64(1000), windows[0].From)
	require.Equal(t, int64(2000), windows[0].To)
	require.Equal(t, 0.0, windows[0].Amount)
}

func TestRollPerSegmentSkipsHoldingGap(t *testing.T) {
	// First holding period: open at 1000, full exit at 2000.
	openA := Checkpoint{Timestamp: 1000, LpAmount: 10, LpAmountChange: 10, Price: 1.0, Value: 10}
	exitA := Checkpoint{Timestamp: 2000, LpAmount: 0, LpAmountChange: -10, Price: 1.0, Value: 0}
	segmentA := []HistoryEntry{
		Attribute(nil, openA, PerShareSums{}),
		Attribute(&openA, exitA, PerShareSums{}),
	}

	// Re-entry at 50000 after a gap, closed by the day boundary.
	openB := Checkpoint{Timestamp: 50000, LpAmount: 20, LpAmountChange: 20, Price: 1.0, Value: 20}
	cronB := Checkpoint{Timestamp: 86400, LpAmount: 20, LpAmountChange: 0, Price: 1.0, Value: 20, IsCron: true}
	segmentB := []HistoryEntry{
		Attribute(nil, openB, PerShareSums{}),
		Attribute(&openB, cronB, PerShareSums{Fee: 0.01}),
	}

	var windows []Window
	for _, histories := range [][]HistoryEntry{segmentA, segmentB} {
		windows = append(windows, Roll("0xwallet", "0xtranche", histories)...)
	}
	require.Len(t, windows, 2)

	require.Equal(t, int64(1000), windows[0].From)
	require.Equal(t, int64(2000), windows[0].To)

	// The re-entry window starts at the re-entry, not at the previous
	// segment's close, so the gap does not dilute the averaged liquidity.
	require.Equal(t, int64(50000), windows[1].From)
	require.Equal(t, int64(86400), windows[1].To)
	require.InDelta(t, 20.0, windows[1].ValueMovement.Fee*100/windows[1].NominalApr, 1e-9)
}

func TestRollSingleEntryEmitsNothing(t *testing.T) {
	require.Nil(t, Roll("0xwallet", "0xtranche", workedHistories()[:1]))
	require.Nil(t, Roll("0xwallet", "0xtranche", nil))
}
