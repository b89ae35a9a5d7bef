package workflow

import (
	"time"

	"github.com/level-fi/llp-tracker/app/worker/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// crawlActivityOptions is shared by the three crawl workflows. The ledger can
// lag or rate limit, so retries back off but never give up inside one round.
func crawlActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    10,
		},
	}
}

// CrawlCheckpointsWorkflow advances the checkpoint feed one page. A full page
// continues as new immediately so catch-up never waits for the next tick and
// the workflow history stays bounded.
func (wc *Context) CrawlCheckpointsWorkflow(ctx workflow.Context, in activity.CrawlInput) error {
	ctx = workflow.WithActivityOptions(ctx, crawlActivityOptions())

	var out activity.CrawlOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.CrawlCheckpoints, in).Get(ctx, &out); err != nil {
		return err
	}
	if out.FullPage {
		return workflow.NewContinueAsNewError(ctx, CrawlCheckpointsWorkflowName, in)
	}
	return nil
}

// CrawlPerSharesWorkflow advances one per-share feed one page.
func (wc *Context) CrawlPerSharesWorkflow(ctx workflow.Context, in activity.CrawlPerSharesInput) error {
	ctx = workflow.WithActivityOptions(ctx, crawlActivityOptions())

	var out activity.CrawlOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.CrawlPerShares, in).Get(ctx, &out); err != nil {
		return err
	}
	if out.FullPage {
		return workflow.NewContinueAsNewError(ctx, CrawlPerSharesWorkflowName, in)
	}
	return nil
}

// CrawlPricesWorkflow advances the price series one page.
func (wc *Context) CrawlPricesWorkflow(ctx workflow.Context, in activity.CrawlInput) error {
	ctx = workflow.WithActivityOptions(ctx, crawlActivityOptions())

	var out activity.CrawlOutput
	if err := workflow.ExecuteActivity(ctx, wc.ActivityContext.CrawlPrices, in).Get(ctx, &out); err != nil {
		return err
	}
	if out.FullPage {
		return workflow.NewContinueAsNewError(ctx, CrawlPricesWorkflowName, in)
	}
	return nil
}
