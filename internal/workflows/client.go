package workflows

import (
	"context"
	"fmt"

	"github.com/dbos-inc/dbos-transact-golang/dbos"
	"github.com/tendant/image-analysis-pipeline/internal/dbosruntime"
	"github.com/tendant/image-analysis-pipeline/pkg/pipeline"
)

// EnqueueFunc submits a request to a queue under the given workflow ID and returns
// the ID the queue accepted
type EnqueueFunc func(queueName, workflowID string, req pipeline.ProcessRequest) (string, error)

// WorkflowClient enqueues workflows for separately running workers without
// executing anything in this process
type WorkflowClient struct {
	queueName string
	enqueue   EnqueueFunc
	status    statusSource
}

// NewWorkflowClient creates a client enqueuing through a DBOS client
func NewWorkflowClient(client *dbosruntime.Client) *WorkflowClient {
	return newWorkflowClient(client.QueueName(), dbosEnqueue(client), client)
}

func newWorkflowClient(queueName string, enqueue EnqueueFunc, status statusSource) *WorkflowClient {
	return &WorkflowClient{
		queueName: queueName,
		enqueue:   enqueue,
		status:    status,
	}
}

// dbosEnqueue targets the workflow registered by worker processes under WorkflowName
func dbosEnqueue(client *dbosruntime.Client) EnqueueFunc {
	return func(queueName, workflowID string, req pipeline.ProcessRequest) (string, error) {
		opts := []dbos.EnqueueOption{dbos.WithEnqueueWorkflowID(workflowID)}
		if version := client.ApplicationVersion(); version != "" {
			opts = append(opts, dbos.WithEnqueueApplicationVersion(version))
		}

		handle, err := dbos.Enqueue[pipeline.ProcessRequest, *WorkflowResult](
			client.DBOS(),
			queueName,
			WorkflowName,
			req,
			opts...,
		)
		if err != nil {
			return "", err
		}
		return handle.GetWorkflowID(), nil
	}
}

// RunAsync enqueues the request and returns the run ID
func (c *WorkflowClient) RunAsync(ctx context.Context, req pipeline.ProcessRequest) (string, error) {
	req.Job = jobOf(req)

	runID, err := c.enqueue(c.queueName, newWorkflowID(req), req)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s on %s: %w", req.Job, c.queueName, err)
	}
	return runID, nil
}

// GetStatus retrieves the status of an enqueued run
func (c *WorkflowClient) GetStatus(ctx context.Context, runID string) (*WorkflowStatus, error) {
	return lookupStatus(ctx, c.status, runID)
}
