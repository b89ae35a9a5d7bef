package worker

import (
	"context"
	"time"

	"github.com/level-fi/llp-tracker/app/worker/activity"
	"github.com/level-fi/llp-tracker/app/worker/workflow"
	"github.com/level-fi/llp-tracker/pkg/db"
	"github.com/level-fi/llp-tracker/pkg/ledger"
	"github.com/level-fi/llp-tracker/pkg/logging"
	redisclient "github.com/level-fi/llp-tracker/pkg/redis"
	"github.com/level-fi/llp-tracker/pkg/temporal"
	"github.com/level-fi/llp-tracker/pkg/tracker"
	"github.com/level-fi/llp-tracker/pkg/utils"
	sdkworker "go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
)

type App struct {
	CrawlWorker    sdkworker.Worker
	BuildWorker    sdkworker.Worker
	TemporalClient *temporal.Client
	Logger         *zap.Logger
}

// Start starts the workers and blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	if err := a.CrawlWorker.Start(); err != nil {
		a.Logger.Fatal("Unable to start crawl worker", zap.Error(err))
	}
	if err := a.BuildWorker.Start(); err != nil {
		a.Logger.Fatal("Unable to start build worker", zap.Error(err))
	}
	<-ctx.Done()
	a.Stop()
}

// Stop stops the workers.
func (a *App) Stop() {
	a.CrawlWorker.Stop()
	a.BuildWorker.Stop()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	trackerDb, dbErr := db.New(ctx, logger)
	if dbErr != nil {
		logger.Fatal("Unable to initialize tracker database", zap.Error(dbErr))
	}

	redisClient, redisErr := redisclient.NewClient(ctx, logger)
	if redisErr != nil {
		logger.Fatal("Unable to connect to Redis", zap.Error(redisErr))
	}

	schedule, schedErr := tracker.NewSchedule(utils.Env("CRON_EXPRESSION", "0 0 0 * * *"))
	if schedErr != nil {
		logger.Fatal("Invalid CRON_EXPRESSION", zap.Error(schedErr))
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	activityContext := &activity.Context{
		Logger:         logger,
		DB:             trackerDb,
		Redis:          redisClient,
		Ledger:         ledger.NewFromEnv(),
		Schedule:       schedule,
		TemporalClient: temporalClient,
		CronStartDate:  utils.EnvInt64("CRON_START_DATE", 0),
		QueryBatches:   utils.EnvInt("QUERY_BATCHES", 5),
		PageSize:       utils.EnvInt("PAGE_SIZE", 100),
	}
	workflowContext := workflow.Context{
		TemporalClient:  temporalClient,
		ActivityContext: activityContext,
		Config: workflow.Config{
			BuildMaxWallets: utils.EnvInt("BUILD_MAX_WALLETS", 50),
		},
	}

	// Crawl queue: ledger replication, boundary ticks, drains.
	crawlWorker := sdkworker.New(
		temporalClient.TClient,
		temporalClient.GetCrawlQueue(),
		sdkworker.Options{
			MaxConcurrentWorkflowTaskPollers: 10,
			MaxConcurrentActivityTaskPollers: 10,
			WorkerStopTimeout:                1 * time.Minute,
		},
	)
	crawlWorker.RegisterWorkflowWithOptions(
		workflowContext.CrawlCheckpointsWorkflow,
		temporalworkflow.RegisterOptions{Name: workflow.CrawlCheckpointsWorkflowName},
	)
	crawlWorker.RegisterWorkflowWithOptions(
		workflowContext.CrawlPerSharesWorkflow,
		temporalworkflow.RegisterOptions{Name: workflow.CrawlPerSharesWorkflowName},
	)
	crawlWorker.RegisterWorkflowWithOptions(
		workflowContext.CrawlPricesWorkflow,
		temporalworkflow.RegisterOptions{Name: workflow.CrawlPricesWorkflowName},
	)
	crawlWorker.RegisterWorkflowWithOptions(
		workflowContext.BoundaryWorkflow,
		temporalworkflow.RegisterOptions{Name: workflow.BoundaryWorkflowName},
	)
	crawlWorker.RegisterWorkflowWithOptions(
		workflowContext.DrainWorkflow,
		temporalworkflow.RegisterOptions{Name: workflow.DrainWorkflowName},
	)
	crawlWorker.RegisterActivity(activityContext.CrawlCheckpoints)
	crawlWorker.RegisterActivity(activityContext.CrawlPerShares)
	crawlWorker.RegisterActivity(activityContext.CrawlPrices)
	crawlWorker.RegisterActivity(activityContext.RegisterBoundaries)
	crawlWorker.RegisterActivity(activityContext.MarkActiveWallets)
	crawlWorker.RegisterActivity(activityContext.ReadyForBuild)
	crawlWorker.RegisterActivity(activityContext.SyncedStatus)
	crawlWorker.RegisterActivity(activityContext.DrainPending)
	crawlWorker.RegisterActivity(activityContext.RequeuePending)
	crawlWorker.RegisterActivity(activityContext.QueueWallets)
	crawlWorker.RegisterActivity(activityContext.QueueAllWallets)

	// Build queue: window rebuild batches fanned out by drains.
	buildWorker := sdkworker.New(
		temporalClient.TClient,
		temporalClient.GetBuildQueue(),
		sdkworker.Options{
			MaxConcurrentWorkflowTaskPollers:   10,
			MaxConcurrentActivityTaskPollers:   10,
			MaxConcurrentActivityExecutionSize: 20,
			WorkerStopTimeout:                  1 * time.Minute,
		},
	)
	buildWorker.RegisterWorkflowWithOptions(
		workflowContext.BuildWorkflow,
		temporalworkflow.RegisterOptions{Name: workflow.BuildWorkflowName},
	)
	buildWorker.RegisterActivity(activityContext.BuildWallets)
	buildWorker.RegisterActivity(activityContext.RequeuePending)

	return &App{
		CrawlWorker:    crawlWorker,
		BuildWorker:    buildWorker,
		TemporalClient: temporalClient,
		Logger:         logger,
	}
}
