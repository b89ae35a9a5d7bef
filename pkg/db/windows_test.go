package db

import (
	"testing"

	"github.com/level-fi/llp-tracker/pkg/tracker"
	"github.com/stretchr/testify/require"
)

func TestWindowRowRoundTrip(t *testing.T) {
	w := tracker.Window{
		Wallet:         "0xwallet",
		Tranche:        "0xtranche",
		From:           86400,
		To:             172800,
		Amount:         100,
		AmountChange:   100,
		Price:          1.05,
		Value:          105,
		TotalChange:    5,
		RelativeChange: 4.76,
		NominalApr:     1.9,
		NetApr:         1.4,
		ValueMovement:  tracker.ValueMovement{Fee: 2, Pnl: -0.5, Price: 3.5, ValueChange: 0},
		Histories: []tracker.HistoryEntry{
			{Timestamp: 86400, Amount: 100, Value: 100},
			{IsCron: true, Timestamp: 172800, Amount: 100, Value: 105, TotalChange: 5},
		},
	}

	row, err := RowFromWindow(w)
	require.NoError(t, err)
	require.Equal(t, tracker.WindowID(w), row.ID)
	require.Equal(t, w.From, row.FromTs)
	require.Equal(t, w.ValueMovement.Price, row.PriceMovement)

	back, err := row.Window()
	require.NoError(t, err)
	require.Equal(t, w, back)
}

func TestWindowRowEmptyHistories(t *testing.T) {
	row := WindowRow{ID: "x", Wallet: "0xw", Tranche: "0xt", FromTs: 1, ToTs: 2}
	w, err := row.Window()
	require.NoError(t, err)
	require.Nil(t, w.Histories)
}
