package workflow

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	sdkworkflow "go.temporal.io/sdk/workflow"

	"github.com/level-fi/llp-tracker/app/worker/activity"
)

func TestDrainWorkflowSkipsWhenNotReady(t *testing.T) {
	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	wc := testContext()

	env.RegisterWorkflowWithOptions(wc.DrainWorkflow,
		sdkworkflow.RegisterOptions{Name: DrainWorkflowName})
	env.OnActivity(wc.ActivityContext.ReadyForBuild, mock.Anything, mock.Anything).
		Return(false, nil)

	env.ExecuteWorkflow(wc.DrainWorkflow, activity.CrawlInput{Tranche: "0xabc"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	env.AssertNotCalled(t, "DrainPending", mock.Anything, mock.Anything)
}

func TestDrainWorkflowFansOutBuildBatches(t *testing.T) {
	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	wc := testContext() // BuildMaxWallets = 2

	var mu sync.Mutex
	var built [][]string

	env.RegisterWorkflowWithOptions(wc.DrainWorkflow,
		sdkworkflow.RegisterOptions{Name: DrainWorkflowName})
	env.RegisterWorkflowWithOptions(wc.BuildWorkflow,
		sdkworkflow.RegisterOptions{Name: BuildWorkflowName})
	env.OnActivity(wc.ActivityContext.ReadyForBuild, mock.Anything, mock.Anything).
		Return(true, nil)
	env.OnActivity(wc.ActivityContext.DrainPending, mock.Anything, mock.Anything).
		Return([]string{"0x1", "0x2", "0x3"}, nil)
	env.OnActivity(wc.ActivityContext.BuildWallets, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			in := args.Get(1).(activity.BuildInput)
			mu.Lock()
			built = append(built, in.Wallets)
			mu.Unlock()
		}).
		Return(activity.BuildOutput{Built: 1}, nil)

	env.ExecuteWorkflow(wc.DrainWorkflow, activity.CrawlInput{Tranche: "0xabc"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, built, 2, "three wallets with batch size two make two batches")
	require.ElementsMatch(t, []string{"0x1", "0x2", "0x3"}, append(append([]string{}, built[0]...), built[1]...))
}

func TestDrainWorkflowRequeuesFailedBatch(t *testing.T) {
	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	wc := testContext()

	var mu sync.Mutex
	var requeued []string

	env.RegisterWorkflowWithOptions(wc.DrainWorkflow,
		sdkworkflow.RegisterOptions{Name: DrainWorkflowName})
	env.RegisterWorkflowWithOptions(wc.BuildWorkflow,
		sdkworkflow.RegisterOptions{Name: BuildWorkflowName})
	env.OnActivity(wc.ActivityContext.ReadyForBuild, mock.Anything, mock.Anything).
		Return(true, nil)
	env.OnActivity(wc.ActivityContext.DrainPending, mock.Anything, mock.Anything).
		Return([]string{"0x1", "0x2"}, nil)
	env.OnActivity(wc.ActivityContext.BuildWallets, mock.Anything, mock.Anything).
		Return(activity.BuildOutput{}, errors.New("clickhouse unavailable"))
	env.OnActivity(wc.ActivityContext.RequeuePending, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			in := args.Get(1).(activity.BuildInput)
			mu.Lock()
			requeued = append(requeued, in.Wallets...)
			mu.Unlock()
		}).
		Return(nil)

	env.ExecuteWorkflow(wc.DrainWorkflow, activity.CrawlInput{Tranche: "0xabc"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError(), "a failed batch must not fail the drain")
	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []string{"0x1", "0x2"}, requeued)
}

func TestBuildWorkflowRequeuesDeferredWallets(t *testing.T) {
	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	wc := testContext()

	var mu sync.Mutex
	var requeued []string

	env.RegisterWorkflowWithOptions(wc.BuildWorkflow,
		sdkworkflow.RegisterOptions{Name: BuildWorkflowName})
	env.OnActivity(wc.ActivityContext.BuildWallets, mock.Anything, mock.Anything).
		Return(activity.BuildOutput{Built: 1, Deferred: []string{"0x2"}}, nil)
	env.OnActivity(wc.ActivityContext.RequeuePending, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			in := args.Get(1).(activity.BuildInput)
			mu.Lock()
			requeued = append(requeued, in.Wallets...)
			mu.Unlock()
		}).
		Return(nil)

	env.ExecuteWorkflow(wc.BuildWorkflow, activity.BuildInput{Tranche: "0xabc", Wallets: []string{"0x1", "0x2"}})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"0x2"}, requeued, "wallets deferred on a price gap go back to pending")
}

func TestBoundaryWorkflowMarksEveryTranche(t *testing.T) {
	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	wc := testContext()

	var mu sync.Mutex
	var marked []string

	env.RegisterWorkflowWithOptions(wc.BoundaryWorkflow,
		sdkworkflow.RegisterOptions{Name: BoundaryWorkflowName})
	env.OnActivity(wc.ActivityContext.RegisterBoundaries, mock.Anything, mock.Anything).
		Return(nil)
	env.OnActivity(wc.ActivityContext.MarkActiveWallets, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			in := args.Get(1).(activity.CrawlInput)
			mu.Lock()
			marked = append(marked, in.Tranche)
			mu.Unlock()
		}).
		Return(2, nil)

	env.ExecuteWorkflow(wc.BoundaryWorkflow, BoundaryInput{
		Now:      1700000000,
		Tranches: []string{"0xaaa", "0xbbb"},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	mu.Lock()
	defer mu.Unlock()
	require.ElementsMatch(t, []string{"0xaaa", "0xbbb"}, marked)
	env.AssertCalled(t, "RegisterBoundaries", mock.Anything,
		activity.RegisterBoundariesInput{Now: 1700000000})
}
