package activity

import (
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/pkg/db"
	"github.com/level-fi/llp-tracker/pkg/ledger"
	redisclient "github.com/level-fi/llp-tracker/pkg/redis"
	temporalclient "github.com/level-fi/llp-tracker/pkg/temporal"
	"github.com/level-fi/llp-tracker/pkg/tracker"
)

// Context carries the shared dependencies of every activity.
type Context struct {
	Logger *zap.Logger
	// ClickHouse replica of the ledger feeds plus materialized windows
	DB *db.DB
	// Cursors, wallet sets, boundary series, prices, cached summaries
	Redis *redisclient.Client
	// GraphQL reads from the ledger
	Ledger *ledger.Client
	// Canonical boundary schedule
	Schedule *tracker.Schedule
	// For scheduling workflows
	TemporalClient *temporalclient.Client

	// CronStartDate is the epoch second tracking starts at. Boundaries and
	// cached summaries before it are ignored.
	CronStartDate int64
	// QueryBatches aliased sub-queries per crawl round trip
	QueryBatches int
	// PageSize rows per aliased sub-query
	PageSize int

	// BuildMaxParallelism allows overriding the default build pool size.
	BuildMaxParallelism int
	buildPoolOnce       sync.Once
	buildPool           pond.Pool
}

// pageLimit is the row count of a completely full crawl response. A full page
// means the feed probably has more rows waiting.
func (c *Context) pageLimit() int {
	return c.QueryBatches * c.PageSize
}

// workerPool returns the shared pool used to rebuild wallets concurrently
// within one build activity.
func (c *Context) workerPool() pond.Pool {
	c.buildPoolOnce.Do(func() {
		size := c.BuildMaxParallelism
		if size <= 0 {
			size = runtime.NumCPU() * 2
			if size > 16 {
				size = 16
			}
		}
		c.buildPool = pond.NewPool(size)
	})
	return c.buildPool
}
