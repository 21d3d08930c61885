package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tendant/image-analysis-pipeline/internal/app"
	"github.com/tendant/image-analysis-pipeline/internal/config"
	"github.com/tendant/image-analysis-pipeline/internal/dbosruntime"
	"github.com/tendant/image-analysis-pipeline/internal/workflows"
	"github.com/tendant/image-analysis-pipeline/pkg/pipeline"
)

// Config holds the configuration for initializing the pipeline runner.
// Vision and store settings are read from the environment with the same keys as the worker.
type Config struct {
	DatabaseURL        string // DBOS PostgreSQL connection string
	AppName            string // Application name for DBOS
	QueueName          string // DBOS queue name
	Concurrency        int    // Number of analyses run at once
	ApplicationVersion string // Optional: Override binary hash for version matching
	Logger             *zap.Logger
}

func (c Config) runtimeConfig() dbosruntime.Config {
	return dbosruntime.Config{
		DatabaseURL:        c.DatabaseURL,
		AppName:            c.AppName,
		QueueName:          c.QueueName,
		Concurrency:        c.Concurrency,
		ApplicationVersion: c.ApplicationVersion,
	}
}

// Runner provides a high-level API for running analysis workflows via DBOS
// inside the calling process
type Runner struct {
	runtime *dbosruntime.Runtime
	runner  *workflows.WorkflowRunner
	cleanup app.Cleanup
}

// New creates and initializes a new pipeline runner with DBOS integration
func New(ctx context.Context, cfg Config) (*Runner, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	base := config.WorkerDefaults()
	base.DBOS.SystemDatabaseURL = cfg.DatabaseURL
	pipelineCfg, err := config.Load(base)
	if err != nil {
		return nil, err
	}

	dbosRuntime, err := dbosruntime.NewRuntime(ctx, cfg.runtimeConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DBOS: %w", err)
	}

	workflowRunner := workflows.NewWorkflowRunner(dbosRuntime)

	analysis, cleanup, err := app.NewAnalysisWorkflow(ctx, pipelineCfg, logger, nil)
	if err != nil {
		dbosRuntime.Shutdown(time.Second)
		return nil, err
	}
	workflowRunner.Register(pipeline.JobImageAnalysis, analysis)

	// Launch DBOS (must be after workflow registration)
	if err := dbosRuntime.Launch(); err != nil {
		dbosRuntime.Shutdown(time.Second)
		cleanup()
		return nil, fmt.Errorf("failed to launch DBOS: %w", err)
	}

	return &Runner{
		runtime: dbosRuntime,
		runner:  workflowRunner,
		cleanup: cleanup,
	}, nil
}

// RunAnalysis enqueues analysis of gs://bucket/name and returns the run ID
func (r *Runner) RunAnalysis(ctx context.Context, bucket, name string) (string, error) {
	return r.runner.RunAsync(ctx, pipeline.ProcessRequest{
		Bucket: bucket,
		Name:   name,
		Job:    pipeline.JobImageAnalysis,
	})
}

// Status returns the status of a run
func (r *Runner) Status(ctx context.Context, runID string) (*pipeline.RunStatus, error) {
	return r.runner.GetStatus(ctx, runID)
}

// Shutdown gracefully shuts down the pipeline runner
func (r *Runner) Shutdown(timeout time.Duration) {
	if r.runtime != nil {
		r.runtime.Shutdown(timeout)
	}
	if r.cleanup != nil {
		r.cleanup()
	}
}
