package workflow

import (
	"time"

	"github.com/level-fi/llp-tracker/app/worker/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// BoundaryInput carries the tick time and the tranches to extend.
type BoundaryInput struct {
	Now      int64    `json:"now"`
	Tranches []string `json:"tranches"`
}

// BoundaryWorkflow runs on every schedule tick: it registers the boundary
// series up to now, then queues every wallet still holding shares so their
// open windows pick up the new boundary.
func (wc *Context) BoundaryWorkflow(ctx workflow.Context, in BoundaryInput) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.RegisterBoundaries,
		activity.RegisterBoundariesInput{Now: in.Now}).Get(ctx, nil); err != nil {
		return err
	}

	futures := make([]workflow.Future, 0, len(in.Tranches))
	for _, tranche := range in.Tranches {
		futures = append(futures, workflow.ExecuteActivity(ctx,
			wc.ActivityContext.MarkActiveWallets, activity.CrawlInput{Tranche: tranche}))
	}
	for _, future := range futures {
		if err := future.Get(ctx, nil); err != nil {
			return err
		}
	}
	return nil
}
