package workflow

import (
	"github.com/level-fi/llp-tracker/app/worker/activity"
	"github.com/level-fi/llp-tracker/pkg/temporal"
)

// Workflow registration names.
const (
	CrawlCheckpointsWorkflowName = "CrawlCheckpointsWorkflow"
	CrawlPerSharesWorkflowName   = "CrawlPerSharesWorkflow"
	CrawlPricesWorkflowName      = "CrawlPricesWorkflow"
	BoundaryWorkflowName         = "BoundaryWorkflow"
	DrainWorkflowName            = "DrainWorkflow"
	BuildWorkflowName            = "BuildWorkflow"
)

// Config holds the workflow configuration.
type Config struct {
	// BuildMaxWallets caps the wallet count of one build batch.
	BuildMaxWallets int
}

// Context holds the workflow context.
type Context struct {
	TemporalClient  *temporal.Client
	ActivityContext *activity.Context
	Config          Config
}
