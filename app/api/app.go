package api

import (
	"context"

	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/app/api/types"
	"github.com/level-fi/llp-tracker/app/worker/activity"
	"github.com/level-fi/llp-tracker/pkg/db"
	"github.com/level-fi/llp-tracker/pkg/ledger"
	"github.com/level-fi/llp-tracker/pkg/logging"
	redisclient "github.com/level-fi/llp-tracker/pkg/redis"
	"github.com/level-fi/llp-tracker/pkg/temporal"
	"github.com/level-fi/llp-tracker/pkg/tracker"
	"github.com/level-fi/llp-tracker/pkg/utils"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
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

	temporalClient, tErr := temporal.NewClient(ctx, logger)
	if tErr != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(tErr))
	}

	schedule, schedErr := tracker.NewSchedule(utils.Env("CRON_EXPRESSION", "0 0 0 * * *"))
	if schedErr != nil {
		logger.Fatal("Invalid CRON_EXPRESSION", zap.Error(schedErr))
	}

	ledgerClient := ledger.NewFromEnv()

	app := &types.App{
		DB:             trackerDb,
		Redis:          redisClient,
		Ledger:         ledgerClient,
		TemporalClient: temporalClient,
		Schedule:       schedule,
		Activities: &activity.Context{
			Logger:        logger,
			DB:            trackerDb,
			Redis:         redisClient,
			Ledger:        ledgerClient,
			Schedule:      schedule,
			CronStartDate: utils.EnvInt64("CRON_START_DATE", 0),
		},
		Tranches: utils.SplitAddressList(utils.Env("TRANCHES", "")),
		APIKey:   utils.Env("API_KEY", ""),
		Logger:   logger,
	}

	if app.APIKey == "" {
		logger.Warn("API_KEY is not set, rebuild endpoints are disabled")
	}

	return app
}
