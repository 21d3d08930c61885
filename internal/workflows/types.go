package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dbos-inc/dbos-transact-golang/dbos"
	"github.com/tendant/image-analysis-pipeline/internal/analysis"
	"github.com/tendant/image-analysis-pipeline/internal/dbosruntime"
	"github.com/tendant/image-analysis-pipeline/pkg/pipeline"
)

// WorkflowContext contains context for workflow execution
type WorkflowContext struct {
	Ctx     context.Context
	Request pipeline.ProcessRequest
	RunID   string
}

// WorkflowResult contains the result of workflow execution.
// Skips are successful results with a skipped_* outcome.
type WorkflowResult struct {
	Success    bool              `json:"success"`
	Outcome    string            `json:"outcome"`
	Error      string            `json:"error,omitempty"`
	Summary    *analysis.Summary `json:"summary,omitempty"`
	UpdateTime time.Time         `json:"update_time,omitempty"`
}

// Workflow defines the interface for processing workflows
type Workflow interface {
	// Execute runs the workflow
	Execute(wctx *WorkflowContext) (*WorkflowResult, error)

	// Name returns the workflow name
	Name() string
}

// WorkflowName is the name the DBOS workflow function is registered under.
// Enqueue-only clients address workers by this name.
const WorkflowName = "image-analysis-pipeline.run"

// WorkflowRunner executes workflows
type WorkflowRunner struct {
	workflows   map[string]Workflow
	dbosRuntime *dbosruntime.Runtime
}

// NewWorkflowRunner creates a new workflow runner. dbosRuntime may be nil, in which
// case only synchronous Run is available.
func NewWorkflowRunner(dbosRuntime *dbosruntime.Runtime) *WorkflowRunner {
	runner := &WorkflowRunner{
		workflows:   make(map[string]Workflow),
		dbosRuntime: dbosRuntime,
	}

	// Register the DBOS workflow function
	if dbosRuntime != nil {
		dbos.RegisterWorkflow(dbosRuntime.Context(), runner.executeWorkflowDBOS, dbos.WithWorkflowName(WorkflowName))
	}

	return runner
}

// Register registers a workflow
func (r *WorkflowRunner) Register(job string, workflow Workflow) {
	r.workflows[job] = workflow
}

// Async reports whether RunAsync is available
func (r *WorkflowRunner) Async() bool {
	return r.dbosRuntime != nil
}

func jobOf(req pipeline.ProcessRequest) string {
	if req.Job == "" {
		return pipeline.JobImageAnalysis
	}
	return req.Job
}

// Run executes a workflow synchronously
func (r *WorkflowRunner) Run(wctx *WorkflowContext) (*WorkflowResult, error) {
	workflow, ok := r.workflows[jobOf(wctx.Request)]
	if !ok {
		return &WorkflowResult{
			Success: false,
			Outcome: pipeline.OutcomeFailed,
			Error:   ErrWorkflowNotFound.Error(),
		}, ErrWorkflowNotFound
	}

	return workflow.Execute(wctx)
}

// RunAsync enqueues a workflow for async execution via DBOS
func (r *WorkflowRunner) RunAsync(ctx context.Context, req pipeline.ProcessRequest) (string, error) {
	if r.dbosRuntime == nil {
		return "", errors.New("DBOS runtime not initialized")
	}

	req.Job = jobOf(req)

	handle, err := dbos.RunWorkflow[pipeline.ProcessRequest, *WorkflowResult](
		r.dbosRuntime.Context(),
		r.executeWorkflowDBOS,
		req,
		dbos.WithWorkflowID(newWorkflowID(req)),
		dbos.WithQueue(r.dbosRuntime.QueueName()),
	)
	if err != nil {
		return "", err
	}

	return handle.GetWorkflowID(), nil
}

// newWorkflowID is unique per delivery; redeliveries of the same image are separate runs
func newWorkflowID(req pipeline.ProcessRequest) string {
	return fmt.Sprintf("%s-%s-%s-%d", req.Job, req.Bucket, req.Name, time.Now().UnixNano())
}

// executeWorkflowDBOS is the DBOS workflow function that wraps registered workflows
func (r *WorkflowRunner) executeWorkflowDBOS(dbosCtx dbos.DBOSContext, req pipeline.ProcessRequest) (*WorkflowResult, error) {
	workflow, ok := r.workflows[jobOf(req)]
	if !ok {
		return &WorkflowResult{
			Success: false,
			Outcome: pipeline.OutcomeFailed,
			Error:   ErrWorkflowNotFound.Error(),
		}, ErrWorkflowNotFound
	}

	workflowID, err := dbosCtx.GetWorkflowID()
	if err != nil {
		return &WorkflowResult{
			Success: false,
			Outcome: pipeline.OutcomeFailed,
			Error:   err.Error(),
		}, err
	}

	// DBOSContext implements context.Context
	wctx := &WorkflowContext{
		Ctx:     dbosCtx,
		Request: req,
		RunID:   workflowID,
	}

	return workflow.Execute(wctx)
}

// WorkflowStatus represents the status of a workflow execution.
// State is one of "pending", "running", "succeeded", "failed".
type WorkflowStatus = pipeline.RunStatus

// ErrRunNotFound is returned when no workflow exists for a run ID
var ErrRunNotFound = errors.New("run not found")

// statusSource reads workflow rows from the DBOS system tables
type statusSource interface {
	GetWorkflowStatus(ctx context.Context, workflowUUID string) (*dbosruntime.WorkflowStatusInfo, error)
}

// GetStatus retrieves the status of a workflow execution from the DBOS system tables
func (r *WorkflowRunner) GetStatus(ctx context.Context, runID string) (*WorkflowStatus, error) {
	if r.dbosRuntime == nil {
		return nil, errors.New("status tracking requires DBOS runtime")
	}
	return lookupStatus(ctx, r.dbosRuntime, runID)
}

func lookupStatus(ctx context.Context, source statusSource, runID string) (*WorkflowStatus, error) {
	info, err := source.GetWorkflowStatus(ctx, runID)
	if err != nil {
		if errors.Is(err, dbosruntime.ErrWorkflowNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	return &WorkflowStatus{
		RunID:     info.WorkflowUUID,
		State:     stateOf(info.Status),
		RawStatus: info.Status,
		Name:      info.Name,
		CreatedAt: time.UnixMilli(info.CreatedAt),
		UpdatedAt: time.UnixMilli(info.UpdatedAt),
	}, nil
}

func stateOf(status string) string {
	switch strings.ToUpper(status) {
	case "PENDING":
		return "running"
	case "ENQUEUED":
		return "pending"
	case "SUCCESS":
		return "succeeded"
	case "ERROR", "CANCELLED", "MAX_RECOVERY_ATTEMPTS_EXCEEDED", "RETRIES_EXCEEDED":
		return "failed"
	default:
		return strings.ToLower(status)
	}
}
