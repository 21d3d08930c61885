package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/tendant/image-analysis-pipeline/internal/dbosruntime"
	"github.com/tendant/image-analysis-pipeline/internal/workflows"
	"github.com/tendant/image-analysis-pipeline/pkg/pipeline"
)

// enqueuer is the part of the workflow client used by Client
type enqueuer interface {
	RunAsync(ctx context.Context, req pipeline.ProcessRequest) (string, error)
	GetStatus(ctx context.Context, runID string) (*workflows.WorkflowStatus, error)
}

// Client provides a client-only API for starting workflows without executing them
// Use this in applications that want to enqueue workflows for workers to execute
type Client struct {
	dbosClient *dbosruntime.Client
	runner     enqueuer
}

// NewClient creates a client that can start workflows but doesn't execute them
// Workers must be running separately to execute the enqueued workflows
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	dbosClient, err := dbosruntime.NewClient(ctx, cfg.runtimeConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DBOS client: %w", err)
	}

	return &Client{
		dbosClient: dbosClient,
		runner:     workflows.NewWorkflowClient(dbosClient),
	}, nil
}

// RunAnalysis enqueues analysis of gs://bucket/name for workers to execute
func (c *Client) RunAnalysis(ctx context.Context, bucket, name string) (string, error) {
	return c.runner.RunAsync(ctx, pipeline.ProcessRequest{
		Bucket: bucket,
		Name:   name,
		Job:    pipeline.JobImageAnalysis,
	})
}

// Status returns the status of a run
func (c *Client) Status(ctx context.Context, runID string) (*pipeline.RunStatus, error) {
	return c.runner.GetStatus(ctx, runID)
}

// Shutdown gracefully shuts down the client
func (c *Client) Shutdown(timeout time.Duration) {
	if c.dbosClient != nil {
		c.dbosClient.Shutdown(timeout)
	}
}
