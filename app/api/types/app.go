package types

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/app/worker/activity"
	"github.com/level-fi/llp-tracker/pkg/db"
	"github.com/level-fi/llp-tracker/pkg/ledger"
	"github.com/level-fi/llp-tracker/pkg/redis"
	"github.com/level-fi/llp-tracker/pkg/temporal"
	"github.com/level-fi/llp-tracker/pkg/tracker"
)

type App struct {
	DB             *db.DB
	Redis          *redis.Client
	Ledger         *ledger.Client
	TemporalClient *temporal.Client
	Schedule       *tracker.Schedule

	// Activities are the same readiness and queueing routines the workers
	// run, invoked in-process here so both surfaces agree on the numbers.
	Activities *activity.Context

	Tranches []string
	// APIKey guards the rebuild endpoints. Empty means they are disabled.
	APIKey string

	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}
	if err := a.Redis.Close(); err != nil {
		a.Logger.Error("Failed to close redis connection", zap.Error(err))
	}

	_ = a.Server.Shutdown(shutdownCtx)
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
