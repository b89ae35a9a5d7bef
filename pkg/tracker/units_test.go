package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromRaw(t *testing.T) {
	amount, err := FromRaw("100000000000000000000", AmountDecimals)
	require.NoError(t, err)
	require.InDelta(t, 100.0, amount, 1e-9)

	price, err := FromRaw("1050000000000", PriceDecimals)
	require.NoError(t, err)
	require.InDelta(t, 1.05, price, 1e-9)

	neg, err := FromRaw("-5000000000000000000000", PerShareDecimals)
	require.NoError(t, err)
	require.InDelta(t, -0.005, neg, 1e-12)

	_, err = FromRaw("not-a-number", AmountDecimals)
	require.Error(t, err)
}

func TestRawValue(t *testing.T) {
	// 100 LP (1e18) at price 1.05 (1e12) makes a 30-decimal value of 105.
	raw, err := RawValue("100000000000000000000", "1050000000000")
	require.NoError(t, err)

	value, err := FromRaw(raw, ValueDecimals)
	require.NoError(t, err)
	require.InDelta(t, 105.0, value, 1e-9)

	_, err = RawValue("x", "1")
	require.Error(t, err)
}

func TestIDsAreDeterministic(t *testing.T) {
	a := CheckpointID("0xwallet", "0xtranche", 1700000000)
	b := CheckpointID("0xwallet", "0xtranche", 1700000000)
	require.Equal(t, a, b)
	require.Len(t, a, 64)
	require.NotEqual(t, a, CheckpointID("0xwallet", "0xtranche", 1700000001))

	w := Window{
		Wallet:        "0xwallet",
		Tranche:       "0xtranche",
		From:          1700000000,
		To:            1700086400,
		ValueMovement: ValueMovement{Fee: 2, Pnl: -0.5, Price: 3.5},
	}
	require.Equal(t, WindowID(w), WindowID(w))

	changed := w
	changed.ValueMovement.Fee = 2.1
	require.NotEqual(t, WindowID(w), WindowID(changed))
}
