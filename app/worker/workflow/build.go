package workflow

import (
	"time"

	"github.com/level-fi/llp-tracker/app/worker/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// BuildWorkflow rebuilds one batch of wallets. Wallets deferred on a price
// gap are requeued so the next drain retries them.
func (wc *Context) BuildWorkflow(ctx workflow.Context, in activity.BuildInput) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var out activity.BuildOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.BuildWallets, in).Get(ctx, &out); err != nil {
		return err
	}

	if len(out.Deferred) > 0 {
		return workflow.ExecuteActivity(ctx, wc.ActivityContext.RequeuePending,
			activity.BuildInput{Tranche: in.Tranche, Wallets: out.Deferred}).Get(ctx, nil)
	}
	return nil
}
