package controller

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/pkg/tracker"
)

type liveResponse struct {
	Data *tracker.Window `json:"data"`
}

// HandleLive projects the wallet's unrealized window for the period between
// the last persisted entry and the next schedule boundary. Null data means
// there is nothing to project: flat position, or the price feed has no sample
// yet.
func (c *Controller) HandleLive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tranche, wallet, err := walletScope(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := time.Now().Unix()

	latest, found, err := c.App.DB.LatestWindow(ctx, tranche, wallet)
	if err != nil {
		c.App.Logger.Error("Unable to load latest window",
			zap.String("tranche", tranche), zap.String("wallet", wallet), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	// A wallet whose last window closed flat anchors on an empty entry at the
	// previous boundary, so a fresh deposit still projects from zero.
	var histories []tracker.HistoryEntry
	if found && latest.Amount != 0 {
		histories = latest.Histories
	} else {
		prevCron, ok, cronErr := c.App.Redis.PrevCronCheckpoint(ctx, now)
		if cronErr != nil {
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		if !ok {
			writeJSON(w, http.StatusOK, liveResponse{})
			return
		}
		histories = []tracker.HistoryEntry{tracker.ZeroHistory(prevCron)}
	}
	last := histories[len(histories)-1]
	endTs := c.App.Schedule.Next(now)

	price, ok, err := c.App.Redis.PriceAt(ctx, tranche, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, liveResponse{})
		return
	}

	amount, change, moved, err := c.App.DB.AmountChangeBetween(ctx, tranche, wallet, last.Timestamp, endTs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if !moved {
		amount, change = last.Amount, 0
	}

	// The cached tranche summary covers exactly one boundary interval, so it
	// is only usable when the anchor sits on a boundary.
	var sums tracker.PerShareSums
	var cached bool
	if last.IsCron {
		if sums, cached, err = c.App.Redis.CachedPerShareSums(ctx, tranche, endTs); err != nil {
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
	}
	if !cached {
		if sums, err = c.App.DB.PerShareSums(ctx, tranche, last.Timestamp, endTs); err != nil {
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
	}

	cpEnd := tracker.Checkpoint{
		Wallet:    wallet,
		Tranche:   tranche,
		Timestamp: endTs,
		LpAmount:  amount,
		Price:     price,
		Value:     amount * price,
		IsCron:    true,
	}
	if moved {
		cpEnd.LpAmountChange = change
	}

	live, ok := tracker.ProjectLive(wallet, tranche, histories, cpEnd, sums)
	if !ok {
		writeJSON(w, http.StatusOK, liveResponse{})
		return
	}
	// The window has not closed yet; report it as running up to now.
	live.To = now
	writeJSON(w, http.StatusOK, liveResponse{Data: &live})
}
