package tracker

import "sort"

// Roll groups one segment's attributed deltas into calendar-aligned reporting
// windows with average-liquidity-weighted return rates.
//
// The scan is strictly sequential: it walks the entries in ascending
// timestamp order, accumulating flow and movement sums plus a time-weighted
// value integral, and closes the open window whenever the scanned entry is a
// cron boundary or drives the position to zero, even mid-period. A leading
// cron entry only anchors the first window's start. The
// emitted windows partition the segment's time range without gaps.
func Roll(wallet, tranche string, histories []HistoryEntry) []Window {
	if len(histories) <= 1 {
		return nil
	}

	entries := make([]HistoryEntry, len(histories))
	copy(entries, histories)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })

	var results []Window
	var data *Window
	var avgValue float64
	for i := range entries {
		item := entries[i]
		if i == 0 && item.IsCron {
			continue
		}

		if data == nil {
			data = &Window{
				Wallet:        wallet,
				Tranche:       tranche,
				From:          item.Timestamp,
				To:            item.Timestamp,
				Amount:        item.Amount,
				AmountChange:  item.AmountChange,
				Price:         item.Price,
				Value:         item.Value,
				TotalChange:   item.TotalChange,
				ValueMovement: item.ValueMovement,
				Histories:     []HistoryEntry{item},
			}

			var lastTime int64
			if len(results) > 0 {
				lastTime = results[len(results)-1].To
			} else if i > 0 && entries[i-1].IsCron {
				lastTime = entries[i-1].Timestamp
			}
			if lastTime > 0 {
				data.From = lastTime
				avgValue += float64(item.Timestamp-data.From) * (item.Value - item.ValueMovement.ValueChange)
			}
		} else {
			// Time deltas are anchored at the window's opening entry.
			avgValue += float64(item.Timestamp-data.To) * (item.Value - item.ValueMovement.ValueChange)
			data.AmountChange += item.AmountChange
			data.TotalChange += item.TotalChange
			data.ValueMovement.Fee += item.ValueMovement.Fee
			data.ValueMovement.Pnl += item.ValueMovement.Pnl
			data.ValueMovement.Price += item.ValueMovement.Price
			data.ValueMovement.ValueChange += item.ValueMovement.ValueChange
			data.Histories = append(data.Histories, item)
		}

		if item.IsCron || item.Amount == 0 {
			data.To = item.Timestamp
			data.Amount = item.Amount
			data.Price = item.Price
			data.Value = item.Value
			if data.Value != 0 {
				data.RelativeChange = data.TotalChange * 100 / data.Value
			} else {
				data.RelativeChange = -100
			}

			avgLiq := avgValue / float64(data.To-data.From)
			data.NominalApr = data.ValueMovement.Fee / avgLiq * 100
			data.NetApr = (data.ValueMovement.Fee + data.ValueMovement.Pnl) / avgLiq * 100

			results = append(results, *data)
			data = nil
			avgValue = 0
		}
	}
	return results
}
