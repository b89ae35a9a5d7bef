package tracker

import (
	"errors"
	"fmt"
	"sort"
)

// ErrPriceUnavailable signals that the price series has no point at or before
// a timestamp a cron checkpoint needs. The wallet's build is deferred until
// the price crawl catches up.
var ErrPriceUnavailable = errors.New("lp price unavailable")

// PriceFunc looks up the LP price at or before a timestamp.
type PriceFunc func(timestamp int64) (float64, bool)

// BuildSegments replays a wallet's timestamp set against its real checkpoints
// and produces holding-period segments with synthesized cron checkpoints.
//
// The timestamp set is the union of the wallet's real action timestamps and
// the canonical cron boundaries covering its active range. For each timestamp
// in order: a real checkpoint is appended as-is, and a zero balance closes
// the current segment; without a real checkpoint the last known balance is
// carried forward into a synthetic cron checkpoint, unless the segment has
// not opened yet (no position exists to carry).
func BuildSegments(wallet, tranche string, timestamps []int64, real map[int64]Checkpoint, priceAt PriceFunc) ([]Segment, error) {
	sorted := make([]int64, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var segments []Segment
	current := Segment{}
	var prev int64
	for i, ts := range sorted {
		if i > 0 && ts == prev {
			continue
		}
		prev = ts

		if cp, ok := real[ts]; ok {
			current = append(current, cp)
			if cp.LpAmount == 0 {
				segments = append(segments, current)
				current = Segment{}
			}
			continue
		}

		if len(current) == 0 {
			// No position yet, nothing to carry forward.
			continue
		}

		last := current[len(current)-1]
		price, ok := priceAt(ts)
		if !ok {
			return nil, fmt.Errorf("%w: tranche %s at %d", ErrPriceUnavailable, tranche, ts)
		}
		current = append(current, Checkpoint{
			Wallet:         wallet,
			Tranche:        tranche,
			Timestamp:      ts,
			LpAmount:       last.LpAmount,
			LpAmountChange: 0,
			Price:          price,
			Value:          last.LpAmount * price,
			IsCron:         true,
		})
	}
	if len(current) > 0 {
		segments = append(segments, current)
	}
	return segments, nil
}

// Pairs forms the adjacent checkpoint pairs of one segment, starting with the
// opening pair whose Start is nil.
func Pairs(seg Segment) []Pair {
	pairs := make([]Pair, 0, len(seg))
	var start *Checkpoint
	for i := range seg {
		pairs = append(pairs, Pair{Start: start, End: seg[i]})
		start = &seg[i]
	}
	return pairs
}
