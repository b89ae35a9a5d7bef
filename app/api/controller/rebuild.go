package controller

import (
	"context"
	"net/http"
	"strings"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/app/worker/activity"
	"github.com/level-fi/llp-tracker/app/worker/workflow"
)

// HandleRebuildTranche marks every known wallet of the tranche dirty and
// kicks a drain so the rebuild starts without waiting for the next tick.
func (c *Controller) HandleRebuildTranche(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tranche, _, err := walletScope(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	queued, err := c.App.Activities.QueueAllWallets(ctx, activity.CrawlInput{Tranche: tranche})
	if err != nil {
		c.App.Logger.Error("Unable to queue tranche rebuild",
			zap.String("tranche", tranche), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "rebuild failed")
		return
	}

	c.startDrain(ctx, tranche)
	writeJSON(w, http.StatusOK, map[string]any{"queued": queued})
}

// HandleRebuildWallet marks one wallet dirty and kicks a drain.
func (c *Controller) HandleRebuildWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tranche, wallet, err := walletScope(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := c.App.Activities.QueueWallets(ctx, activity.BuildInput{
		Tranche: tranche,
		Wallets: []string{wallet},
	}); err != nil {
		c.App.Logger.Error("Unable to queue wallet rebuild",
			zap.String("tranche", tranche), zap.String("wallet", wallet), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "rebuild failed")
		return
	}

	c.startDrain(ctx, tranche)
	writeJSON(w, http.StatusOK, map[string]any{"queued": 1})
}

// startDrain starts the drain workflow for the tranche. A drain already
// running will pick the pending wallets up anyway, so that case is not an
// error.
func (c *Controller) startDrain(ctx context.Context, tranche string) {
	_, err := c.App.TemporalClient.TClient.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        c.App.TemporalClient.GetDrainWorkflowId(tranche),
		TaskQueue: c.App.TemporalClient.GetCrawlQueue(),
	}, workflow.DrainWorkflowName, activity.CrawlInput{Tranche: tranche})
	if err != nil && !strings.Contains(err.Error(), "already") {
		c.App.Logger.Warn("Unable to start drain workflow",
			zap.String("tranche", tranche), zap.Error(err))
	}
}
