package executors

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tendant/image-analysis-pipeline/internal/dedupe"
	"github.com/tendant/image-analysis-pipeline/internal/workflows"
	"github.com/tendant/image-analysis-pipeline/pkg/pipeline"
)

// Runner runs or enqueues workflows
type Runner interface {
	Run(wctx *workflows.WorkflowContext) (*workflows.WorkflowResult, error)
	RunAsync(ctx context.Context, req pipeline.ProcessRequest) (string, error)
}

// Ledger counts deliveries per image
type Ledger interface {
	Record(ctx context.Context, key string, pipeline string, pipelineVersion int) (int, error)
}

// Execution is the outcome of one delivery
type Execution struct {
	RunID     string
	SeenCount int
	Result    *workflows.WorkflowResult
}

// AnalysisExecutor runs the image analysis workflow for one delivery and
// records the delivery in the dedupe ledger
type AnalysisExecutor struct {
	runner Runner
	ledger Ledger
	logger *zap.Logger
}

// NewAnalysisExecutor creates an executor. ledger may be nil to disable dedupe tracking.
func NewAnalysisExecutor(runner Runner, ledger Ledger, logger *zap.Logger) *AnalysisExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisExecutor{
		runner: runner,
		ledger: ledger,
		logger: logger,
	}
}

// Execute runs the analysis synchronously
func (e *AnalysisExecutor) Execute(ctx context.Context, req pipeline.ProcessRequest) (*Execution, error) {
	runID := uuid.New().String()
	if req.Job == "" {
		req.Job = pipeline.JobImageAnalysis
	}

	exec := &Execution{
		RunID:     runID,
		SeenCount: e.record(ctx, req),
	}

	result, err := e.runner.Run(&workflows.WorkflowContext{
		Ctx:     ctx,
		Request: req,
		RunID:   runID,
	})
	exec.Result = result
	if err != nil {
		return exec, fmt.Errorf("analysis workflow failed: %w", err)
	}

	return exec, nil
}

// Enqueue hands the analysis to the durable queue and returns immediately
func (e *AnalysisExecutor) Enqueue(ctx context.Context, req pipeline.ProcessRequest) (*Execution, error) {
	if req.Job == "" {
		req.Job = pipeline.JobImageAnalysis
	}

	seen := e.record(ctx, req)

	runID, err := e.runner.RunAsync(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue workflow: %w", err)
	}

	e.logger.Info("workflow enqueued",
		zap.String("run_id", runID),
		zap.String("bucket", req.Bucket),
		zap.String("name", req.Name),
	)
	return &Execution{RunID: runID, SeenCount: seen}, nil
}

// record never fails the delivery; a ledger outage only loses the count
func (e *AnalysisExecutor) record(ctx context.Context, req pipeline.ProcessRequest) int {
	if e.ledger == nil {
		return 0
	}

	seen, err := e.ledger.Record(ctx, dedupe.Key(req.Bucket, req.Name), req.Job, pipeline.PipelineVersion)
	if err != nil {
		e.logger.Warn("failed to record delivery", zap.String("bucket", req.Bucket), zap.String("name", req.Name), zap.Error(err))
		return 0
	}
	if seen > 1 {
		e.logger.Info("image delivered again", zap.String("bucket", req.Bucket), zap.String("name", req.Name), zap.Int("seen_count", seen))
	}
	return seen
}
