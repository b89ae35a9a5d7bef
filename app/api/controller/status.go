package controller

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/app/worker/activity"
)

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := c.App.DB.Db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "database connection error"})
		return
	}
	if err := c.App.Redis.Health(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "redis connection error"})
		return
	}

	temporalHealth, err := c.App.TemporalClient.Health(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "temporal connection error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "temporal": temporalHealth})
}

type replicaCounts struct {
	Checkpoints uint64 `json:"checkpoints"`
	Fee         uint64 `json:"fee"`
	Pnl         uint64 `json:"pnl"`
}

type ledgerCounts struct {
	Checkpoints uint64 `json:"checkpoints"`
	Fee         uint64 `json:"fee"`
	Pnl         uint64 `json:"pnl"`
	Timestamp   int64  `json:"timestamp"`
}

type trancheReadiness struct {
	Synced        bool `json:"synced"`
	ReadyForBuild bool `json:"readyForBuild"`
	Stats         struct {
		Local  replicaCounts `json:"local"`
		Ledger ledgerCounts  `json:"ledger"`
	} `json:"stats"`
}

// HandleReadiness reports, per tranche, how far the replica lags the ledger.
func (c *Controller) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	out := make(map[string]trancheReadiness, len(c.App.Tranches))
	for _, tranche := range c.App.Tranches {
		stats, err := c.App.Activities.SyncedStatus(ctx, activity.CrawlInput{Tranche: tranche})
		if err != nil {
			c.App.Logger.Error("Unable to compute synced status",
				zap.String("tranche", tranche), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "readiness check failed")
			return
		}
		ready, err := c.App.Activities.ReadyForBuild(ctx, activity.CrawlInput{Tranche: tranche})
		if err != nil {
			c.App.Logger.Error("Unable to compute build readiness",
				zap.String("tranche", tranche), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "readiness check failed")
			return
		}

		entry := trancheReadiness{Synced: stats.IsSynced, ReadyForBuild: ready}
		entry.Stats.Local = replicaCounts{
			Checkpoints: stats.CheckpointCount,
			Fee:         stats.FeeCount,
			Pnl:         stats.PnlCount,
		}
		entry.Stats.Ledger = ledgerCounts{
			Checkpoints: stats.LedgerIndex,
			Fee:         stats.LedgerFeeIndex,
			Pnl:         stats.LedgerPnlIndex,
			Timestamp:   stats.LedgerTimestamp,
		}
		out[stats.Tranche] = entry
	}

	writeJSON(w, http.StatusOK, out)
}

// HandleSyncedInfo returns the latest ledger block any crawl has observed.
func (c *Controller) HandleSyncedInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	block, timestamp, found, err := c.App.Redis.LastSyncedBlock(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, map[string]any{"data": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"block": block, "timestamp": timestamp},
	})
}
