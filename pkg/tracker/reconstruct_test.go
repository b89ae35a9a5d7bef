package tracker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func staticPrices(prices map[int64]float64) PriceFunc {
	return func(ts int64) (float64, bool) {
		p, ok := prices[ts]
		return p, ok
	}
}

func realCheckpoint(ts int64, amount, change, price float64) Checkpoint {
	return Checkpoint{
		Wallet:         "0xwallet",
		Tranche:        "0xtranche",
		Timestamp:      ts,
		LpAmount:       amount,
		LpAmountChange: change,
		Price:          price,
		Value:          amount * price,
		Block:          uint64(ts),
	}
}

func TestBuildSegmentsSynthesizesCronCheckpoints(t *testing.T) {
	real := map[int64]Checkpoint{
		100: realCheckpoint(100, 50, 50, 1.0),
	}
	segments, err := BuildSegments("0xwallet", "0xtranche", []int64{100, 200, 300}, real, staticPrices(map[int64]float64{200: 1.1, 300: 1.2}))
	require.NoError(t, err)
	require.Len(t, segments, 1)
	require.Len(t, segments[0], 3)

	cron := segments[0][1]
	require.True(t, cron.IsCron)
	require.Equal(t, int64(200), cron.Timestamp)
	require.Equal(t, 50.0, cron.LpAmount)
	require.Equal(t, 0.0, cron.LpAmountChange)
	require.InDelta(t, 55.0, cron.Value, 1e-9)
}

func TestBuildSegmentsSplitsOnFullExit(t *testing.T) {
	real := map[int64]Checkpoint{
		100: realCheckpoint(100, 50, 50, 1.0),
		250: realCheckpoint(250, 0, -50, 1.05),
		400: realCheckpoint(400, 30, 30, 1.2),
	}
	timestamps := []int64{100, 200, 250, 300, 350, 400, 450}
	segments, err := BuildSegments("0xwallet", "0xtranche", timestamps, real, staticPrices(map[int64]float64{200: 1.02, 450: 1.25}))
	require.NoError(t, err)
	require.Len(t, segments, 2)

	first, second := segments[0], segments[1]
	require.Len(t, first, 3)
	require.Equal(t, int64(250), first[len(first)-1].Timestamp)
	require.Equal(t, 0.0, first[len(first)-1].LpAmount)

	// No synthesis between exit and re-entry: 300 and 350 are skipped.
	require.Len(t, second, 2)
	require.Equal(t, int64(400), second[0].Timestamp)
	require.True(t, second[1].IsCron)

	pairs := Pairs(second)
	require.Nil(t, pairs[0].Start)
	require.Equal(t, second[0], *pairs[1].Start)
}

func TestBuildSegmentsNoPrematureSynthesis(t *testing.T) {
	real := map[int64]Checkpoint{
		300: realCheckpoint(300, 10, 10, 1.0),
	}
	// Cron boundaries before the first real action produce nothing.
	segments, err := BuildSegments("0xwallet", "0xtranche", []int64{100, 200, 300}, real, staticPrices(nil))
	require.NoError(t, err)
	require.Len(t, segments, 1)
	require.Len(t, segments[0], 1)
	require.Equal(t, int64(300), segments[0][0].Timestamp)
}

func TestBuildSegmentsMissingPrice(t *testing.T) {
	real := map[int64]Checkpoint{
		100: realCheckpoint(100, 50, 50, 1.0),
	}
	_, err := BuildSegments("0xwallet", "0xtranche", []int64{100, 200}, real, staticPrices(nil))
	require.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestBuildSegmentsDeduplicatesTimestamps(t *testing.T) {
	real := map[int64]Checkpoint{
		100: realCheckpoint(100, 50, 50, 1.0),
	}
	// An action landing exactly on a boundary shows up in both sets.
	segments, err := BuildSegments("0xwallet", "0xtranche", []int64{100, 100}, real, staticPrices(nil))
	require.NoError(t, err)
	require.Len(t, segments, 1)
	require.Len(t, segments[0], 1)
}
