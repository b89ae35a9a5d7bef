package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/level-fi/llp-tracker/pkg/utils"
	"go.uber.org/zap"

	"go.temporal.io/api/enums/v1"
	taskqueuepb "go.temporal.io/api/taskqueue/v1"
	workflowservicepb "go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

type Client struct {
	TClient   client.Client
	Namespace string

	// Task Queues
	CrawlQueue string // crawl - ledger replication jobs, one running workflow per tranche and feed.
	BuildQueue string // build - wallet window rebuild jobs fanned out by the drain workflow.

	// Workflow IDs
	CrawlCheckpointsWorkflowId string
	CrawlPerSharesWorkflowId   string
	CrawlPricesWorkflowId      string
	DrainWorkflowId            string
	BuildWorkflowId            string
}

type Health struct {
	ConnectionOK bool                      `json:"connection_ok"`
	CrawlQueue   []*taskqueuepb.PollerInfo `json:"crawl_queue"`
	BuildQueue   []*taskqueuepb.PollerInfo `json:"build_queue"`
}

func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("TEMPORAL_HOSTPORT", "localhost:7233")
	ns := utils.Env("TEMPORAL_NAMESPACE", "llp-tracker")
	loggerWrapper := NewZapAdapter(logger)

	logger.Info("Connecting to Temporal", zap.String("host", host), zap.String("namespace", ns))
	tClient, err := Dial(ctx, host, ns, loggerWrapper)
	if err != nil {
		return nil, err
	}

	if _, err = tClient.CheckHealth(ctx, nil); err != nil {
		return nil, err
	}

	return &Client{
		TClient:   tClient,
		Namespace: ns,
		// for now this is just hardcoded, could be configurable if we need it
		CrawlQueue: "crawl",
		BuildQueue: "build",
		// workflow IDs
		CrawlCheckpointsWorkflowId: "crawl:checkpoints:%s",
		CrawlPerSharesWorkflowId:   "crawl:%s_per_shares:%s",
		CrawlPricesWorkflowId:      "crawl:prices:%s",
		DrainWorkflowId:            "drain:%s",
		BuildWorkflowId:            "build:%s:%d",
	}, nil
}

// Dial connects to Temporal using the provided hostPort and namespace.
func Dial(ctx context.Context, hostPort, namespace string, logger log.Logger) (client.Client, error) {
	return client.DialContext(
		ctx,
		client.Options{
			HostPort:  hostPort,
			Namespace: namespace,
			Logger:    logger,
		},
	)
}

// GetCrawlQueue returns the crawl queue.
func (c *Client) GetCrawlQueue() string { return c.CrawlQueue }

// GetBuildQueue returns the build queue.
func (c *Client) GetBuildQueue() string { return c.BuildQueue }

// GetCrawlCheckpointsWorkflowId returns the workflow ID of the checkpoint crawl for the given tranche.
func (c *Client) GetCrawlCheckpointsWorkflowId(tranche string) string {
	return fmt.Sprintf(c.CrawlCheckpointsWorkflowId, tranche)
}

// GetCrawlPerSharesWorkflowId returns the workflow ID of one per-share crawl for the given tranche.
func (c *Client) GetCrawlPerSharesWorkflowId(kind, tranche string) string {
	return fmt.Sprintf(c.CrawlPerSharesWorkflowId, kind, tranche)
}

// GetCrawlPricesWorkflowId returns the workflow ID of the price crawl for the given tranche.
func (c *Client) GetCrawlPricesWorkflowId(tranche string) string {
	return fmt.Sprintf(c.CrawlPricesWorkflowId, tranche)
}

// GetDrainWorkflowId returns the workflow ID of the pending-wallet drain for the given tranche.
func (c *Client) GetDrainWorkflowId(tranche string) string {
	return fmt.Sprintf(c.DrainWorkflowId, tranche)
}

// GetBuildWorkflowId returns the workflow ID of one build batch.
func (c *Client) GetBuildWorkflowId(tranche string, batch int) string {
	return fmt.Sprintf(c.BuildWorkflowId, tranche, batch)
}

// Health returns the health of the Temporal client.
func (c *Client) Health(ctx context.Context) (Health, error) {
	h := Health{ConnectionOK: true}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	svc := c.TClient.WorkflowService()
	if svc != nil {
		if rep, err := svc.DescribeTaskQueue(ctx, &workflowservicepb.DescribeTaskQueueRequest{
			Namespace:     c.Namespace,
			TaskQueue:     &taskqueuepb.TaskQueue{Name: c.CrawlQueue},
			TaskQueueType: enums.TASK_QUEUE_TYPE_WORKFLOW,
		}); err == nil {
			h.CrawlQueue = rep.GetPollers()
		}
		if rep, err := svc.DescribeTaskQueue(ctx, &workflowservicepb.DescribeTaskQueueRequest{
			Namespace:     c.Namespace,
			TaskQueue:     &taskqueuepb.TaskQueue{Name: c.BuildQueue},
			TaskQueueType: enums.TASK_QUEUE_TYPE_WORKFLOW,
		}); err == nil {
			h.BuildQueue = rep.GetPollers()
		}
	}
	return h, nil
}
