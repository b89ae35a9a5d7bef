package workflow

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	sdkworkflow "go.temporal.io/sdk/workflow"

	"github.com/level-fi/llp-tracker/app/worker/activity"
	"github.com/level-fi/llp-tracker/pkg/temporal"
)

func testContext() *Context {
	return &Context{
		TemporalClient: &temporal.Client{
			CrawlQueue:      "crawl",
			BuildQueue:      "build",
			BuildWorkflowId: "build:%s:%d",
		},
		ActivityContext: &activity.Context{},
		Config:          Config{BuildMaxWallets: 2},
	}
}

func TestCrawlCheckpointsWorkflowContinuesOnFullPage(t *testing.T) {
	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	wc := testContext()

	env.RegisterWorkflowWithOptions(wc.CrawlCheckpointsWorkflow,
		sdkworkflow.RegisterOptions{Name: CrawlCheckpointsWorkflowName})
	env.OnActivity(wc.ActivityContext.CrawlCheckpoints, mock.Anything, mock.Anything).
		Return(activity.CrawlOutput{Rows: 500, FullPage: true}, nil)

	env.ExecuteWorkflow(wc.CrawlCheckpointsWorkflow, activity.CrawlInput{Tranche: "0xabc"})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	require.True(t, sdkworkflow.IsContinueAsNewError(err), "full page should roll into a fresh run")
}

func TestCrawlCheckpointsWorkflowStopsOnPartialPage(t *testing.T) {
	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	wc := testContext()

	env.RegisterWorkflowWithOptions(wc.CrawlCheckpointsWorkflow,
		sdkworkflow.RegisterOptions{Name: CrawlCheckpointsWorkflowName})
	env.OnActivity(wc.ActivityContext.CrawlCheckpoints, mock.Anything, mock.Anything).
		Return(activity.CrawlOutput{Rows: 3, FullPage: false}, nil)

	env.ExecuteWorkflow(wc.CrawlCheckpointsWorkflow, activity.CrawlInput{Tranche: "0xabc"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}

func TestCrawlPerSharesWorkflowContinuesOnFullPage(t *testing.T) {
	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	wc := testContext()

	env.RegisterWorkflowWithOptions(wc.CrawlPerSharesWorkflow,
		sdkworkflow.RegisterOptions{Name: CrawlPerSharesWorkflowName})
	env.OnActivity(wc.ActivityContext.CrawlPerShares, mock.Anything, mock.Anything).
		Return(activity.CrawlOutput{Rows: 500, FullPage: true}, nil)

	env.ExecuteWorkflow(wc.CrawlPerSharesWorkflow, activity.CrawlPerSharesInput{Tranche: "0xabc"})

	require.True(t, env.IsWorkflowCompleted())
	require.True(t, sdkworkflow.IsContinueAsNewError(env.GetWorkflowError()))
}
