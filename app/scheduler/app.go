// Package scheduler owns the clocks of the tracker: it seeds the canonical
// boundary series on boot and triggers the crawl, boundary, and drain
// workflows on their cron cadences. All real work happens on the Temporal
// workers; a missed tick here only delays, never loses, work.
package scheduler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/app/worker/activity"
	"github.com/level-fi/llp-tracker/app/worker/workflow"
	"github.com/level-fi/llp-tracker/pkg/logging"
	redisclient "github.com/level-fi/llp-tracker/pkg/redis"
	"github.com/level-fi/llp-tracker/pkg/temporal"
	"github.com/level-fi/llp-tracker/pkg/tracker"
	"github.com/level-fi/llp-tracker/pkg/utils"
)

type App struct {
	Redis          *redisclient.Client
	TemporalClient *temporal.Client
	Schedule       *tracker.Schedule
	Logger         *zap.Logger

	Cron      *cron.Cron
	CrawlSpec string
	DrainSpec string

	Tranches      []string
	CronStartDate int64

	// Server serves the liveness probes.
	Server *http.Server
}

// Initialize initializes the App.
func Initialize(ctx context.Context) (*App, error) {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	redisClient, redisErr := redisclient.NewClient(ctx, logger)
	if redisErr != nil {
		logger.Fatal("Unable to connect to Redis", zap.Error(redisErr))
	}

	temporalClient, tErr := temporal.NewClient(ctx, logger)
	if tErr != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(tErr))
	}

	schedule, schedErr := tracker.NewSchedule(utils.Env("CRON_EXPRESSION", "0 0 0 * * *"))
	if schedErr != nil {
		logger.Fatal("Invalid CRON_EXPRESSION", zap.Error(schedErr))
	}

	tranches := utils.SplitAddressList(utils.Env("TRANCHES", ""))
	if len(tranches) == 0 {
		logger.Fatal("TRANCHES environment variable is required")
	}

	app := &App{
		Redis:          redisClient,
		TemporalClient: temporalClient,
		Schedule:       schedule,
		Logger:         logger,
		CrawlSpec:      utils.Env("CRAWL_CRON", "*/30 * * * * *"),
		DrainSpec:      utils.Env("DRAIN_CRON", "0 * * * * *"),
		Tranches:       tranches,
		CronStartDate:  utils.EnvInt64("CRON_START_DATE", 0),
	}

	if err := app.SeedBoundaries(ctx); err != nil {
		return nil, err
	}
	if err := app.SetupScheduler(ctx, cron.DefaultLogger); err != nil {
		return nil, err
	}
	app.SetupServer()

	return app, nil
}

// SeedBoundaries rebuilds the canonical boundary series from scratch so a
// changed schedule expression never leaves stale boundaries behind. The reseed
// runs through the same activity code the workers use for boundary ticks.
func (a *App) SeedBoundaries(ctx context.Context) error {
	seed := &activity.Context{
		Logger:        a.Logger,
		Redis:         a.Redis,
		Schedule:      a.Schedule,
		CronStartDate: a.CronStartDate,
	}
	now := time.Now().Unix()
	if err := seed.SeedBoundaries(ctx, activity.SeedBoundariesInput{Now: now}); err != nil {
		return err
	}
	a.Logger.Info("Boundary series seeded",
		zap.Int64("start", a.CronStartDate),
		zap.Int64("until", now))
	return nil
}

// SetupServer sets up the HTTP server.
func (a *App) SetupServer() {
	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3002")

	r := mux.NewRouter()
	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })).Methods("GET")

	a.Server = &http.Server{Addr: addr, Handler: r}
}

// SetupScheduler sets up the cron scheduler.
func (a *App) SetupScheduler(ctx context.Context, logger cron.Logger) error {
	// Seconds field, optional
	a.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger)))

	if _, err := a.Cron.AddFunc(a.CrawlSpec, func() {
		rctx, cancel := context.WithTimeout(ctx, 25*time.Second)
		defer cancel()
		a.TriggerCrawls(rctx)
	}); err != nil {
		return err
	}

	if _, err := a.Cron.AddFunc(a.Schedule.Expression(), func() {
		rctx, cancel := context.WithTimeout(ctx, 25*time.Second)
		defer cancel()
		a.TriggerBoundary(rctx)
	}); err != nil {
		return err
	}

	if _, err := a.Cron.AddFunc(a.DrainSpec, func() {
		rctx, cancel := context.WithTimeout(ctx, 25*time.Second)
		defer cancel()
		a.TriggerDrains(rctx)
	}); err != nil {
		return err
	}

	return nil
}

// TriggerCrawls starts one crawl workflow per tranche and feed. A crawl still
// running from the previous tick is simply left alone.
func (a *App) TriggerCrawls(ctx context.Context) {
	for _, tranche := range a.Tranches {
		a.startWorkflow(ctx, a.TemporalClient.GetCrawlCheckpointsWorkflowId(tranche),
			workflow.CrawlCheckpointsWorkflowName, activity.CrawlInput{Tranche: tranche})
		a.startWorkflow(ctx, a.TemporalClient.GetCrawlPerSharesWorkflowId(string(tracker.FeePerShares), tranche),
			workflow.CrawlPerSharesWorkflowName, activity.CrawlPerSharesInput{Tranche: tranche, Kind: tracker.FeePerShares})
		a.startWorkflow(ctx, a.TemporalClient.GetCrawlPerSharesWorkflowId(string(tracker.PnlPerShares), tranche),
			workflow.CrawlPerSharesWorkflowName, activity.CrawlPerSharesInput{Tranche: tranche, Kind: tracker.PnlPerShares})
		a.startWorkflow(ctx, a.TemporalClient.GetCrawlPricesWorkflowId(tranche),
			workflow.CrawlPricesWorkflowName, activity.CrawlInput{Tranche: tranche})
	}
}

// TriggerBoundary starts the boundary workflow for this tick.
func (a *App) TriggerBoundary(ctx context.Context) {
	now := time.Now().Unix()
	a.startWorkflow(ctx, "boundary",
		workflow.BoundaryWorkflowName, workflow.BoundaryInput{Now: now, Tranches: a.Tranches})
}

// TriggerDrains starts one drain workflow per tranche.
func (a *App) TriggerDrains(ctx context.Context) {
	for _, tranche := range a.Tranches {
		a.startWorkflow(ctx, a.TemporalClient.GetDrainWorkflowId(tranche),
			workflow.DrainWorkflowName, activity.CrawlInput{Tranche: tranche})
	}
}

func (a *App) startWorkflow(ctx context.Context, id, name string, input any) {
	_, err := a.TemporalClient.TClient.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: a.TemporalClient.GetCrawlQueue(),
	}, name, input)
	if err != nil {
		if strings.Contains(err.Error(), "already") {
			// The previous run is still going, which is fine.
			return
		}
		a.Logger.Warn("Unable to start workflow", zap.String("workflow", id), zap.Error(err))
	}
}

// StartCron starts the cron scheduler.
func (a *App) StartCron() {
	a.Cron.Start()
	a.Logger.Info("[scheduler] Cron started",
		zap.String("crawlSpec", a.CrawlSpec),
		zap.String("boundarySpec", a.Schedule.Expression()),
		zap.String("drainSpec", a.DrainSpec))
}

// StopCron stops the cron scheduler.
func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	a.StartCron()
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()
	_ = a.Server.Close()
	a.Logger.Info("[scheduler] shutting down…")
	a.StopCron()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
