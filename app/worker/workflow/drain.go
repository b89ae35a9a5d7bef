package workflow

import (
	"time"

	"github.com/level-fi/llp-tracker/app/worker/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// DrainWorkflow pops the dirty wallet set of a tranche and fans the wallets
// out to build batches. Nothing is built while the replica lags the ledger:
// the pending set simply keeps accumulating until readiness.
func (wc *Context) DrainWorkflow(ctx workflow.Context, in activity.CrawlInput) error {
	logger := workflow.GetLogger(ctx)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var ready bool
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.ReadyForBuild, in).Get(ctx, &ready); err != nil {
		return err
	}
	if !ready {
		logger.Debug("Replica not ready, drain skipped", "tranche", in.Tranche)
		return nil
	}

	var wallets []string
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.DrainPending, in).Get(ctx, &wallets); err != nil {
		return err
	}
	if len(wallets) == 0 {
		return nil
	}

	batchSize := wc.Config.BuildMaxWallets
	if batchSize <= 0 {
		batchSize = 50
	}

	info := workflow.GetInfo(ctx)
	var futures []workflow.ChildWorkflowFuture
	var batches [][]string
	for start := 0; start < len(wallets); start += batchSize {
		end := start + batchSize
		if end > len(wallets) {
			end = len(wallets)
		}
		batch := wallets[start:end]
		batches = append(batches, batch)

		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: wc.TemporalClient.GetBuildWorkflowId(in.Tranche, len(batches)-1) +
				":" + info.WorkflowExecution.RunID,
			TaskQueue: wc.TemporalClient.GetBuildQueue(),
		})
		futures = append(futures, workflow.ExecuteChildWorkflow(childCtx, BuildWorkflowName,
			activity.BuildInput{Tranche: in.Tranche, Wallets: batch}))
	}

	// A failed batch goes back to the pending set instead of failing the
	// drain, so one bad wallet cannot starve the rest.
	for i, future := range futures {
		if err := future.Get(ctx, nil); err != nil {
			logger.Error("Build batch failed, requeueing wallets",
				"tranche", in.Tranche, "wallets", len(batches[i]), "error", err)
			if rErr := workflow.ExecuteActivity(ctx, wc.ActivityContext.RequeuePending,
				activity.BuildInput{Tranche: in.Tranche, Wallets: batches[i]}).Get(ctx, nil); rErr != nil {
				return rErr
			}
		}
	}
	return nil
}
