package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/tendant/image-analysis-pipeline/internal/app"
	"github.com/tendant/image-analysis-pipeline/internal/config"
	"github.com/tendant/image-analysis-pipeline/internal/dbosruntime"
	"github.com/tendant/image-analysis-pipeline/internal/dedupe"
	"github.com/tendant/image-analysis-pipeline/internal/executors"
	"github.com/tendant/image-analysis-pipeline/internal/handlers"
	"github.com/tendant/image-analysis-pipeline/internal/logging"
	"github.com/tendant/image-analysis-pipeline/internal/metrics"
	"github.com/tendant/image-analysis-pipeline/internal/readiness"
	"github.com/tendant/image-analysis-pipeline/internal/server"
	"github.com/tendant/image-analysis-pipeline/internal/workflows"
	"github.com/tendant/image-analysis-pipeline/pkg/pipeline"
)

func main() {
	cfg, err := config.Load(config.WorkerDefaults())
	if err != nil {
		os.Stderr.WriteString("CRITICAL: Failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("CRITICAL: Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	var probe readiness.Probe

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	// Initialize DBOS runtime (required)
	dbosRuntime, err := dbosruntime.NewRuntime(ctx, dbosruntime.Config{
		DatabaseURL:        cfg.DBOS.SystemDatabaseURL,
		AppName:            "pipeline-worker",
		QueueName:          cfg.DBOS.QueueName,
		Concurrency:        cfg.DBOS.Concurrency,
		ApplicationVersion: cfg.DBOS.ApplicationVersion,
	})
	if err != nil {
		log.Fatal("Failed to initialize DBOS", zap.Error(err))
	}

	// Initialize workflow runner with DBOS support (registers workflows with DBOS)
	workflowRunner := workflows.NewWorkflowRunner(dbosRuntime)

	analysis, cleanup, err := app.NewAnalysisWorkflow(ctx, cfg, log, m)
	if err != nil {
		log.Fatal("Failed to initialize analysis workflow", zap.Error(err))
	}
	defer cleanup()

	workflowRunner.Register(pipeline.JobImageAnalysis, analysis)
	log.Info("Registered workflow", zap.String("workflow", analysis.Name()), zap.String("job", pipeline.JobImageAnalysis))

	var ledger executors.Ledger
	if cfg.Dedupe.Enabled {
		tracker, err := dedupe.NewTracker(ctx, dbosRuntime.DB())
		if err != nil {
			log.Fatal("Failed to initialize dedupe ledger", zap.Error(err))
		}
		ledger = tracker
	}

	// Launch DBOS (must be done after workflow registration)
	if err := dbosRuntime.Launch(); err != nil {
		log.Fatal("Failed to launch DBOS", zap.Error(err))
	}
	defer dbosRuntime.Shutdown(cfg.HTTP.ShutdownTimeout)

	log.Info("DBOS runtime initialized",
		zap.String("queue", dbosRuntime.QueueName()),
		zap.Int("concurrency", dbosRuntime.Concurrency()))

	executor := executors.NewAnalysisExecutor(workflowRunner, ledger, log)
	srv := server.New(cfg, handlers.Routes{
		Probes:  handlers.NewProbeHandler(&probe, "worker", log),
		Events:  handlers.NewEventHandler(executor, log),
		Process: handlers.NewAsyncHandler(executor, workflowRunner, log),
	}, reg, log)

	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()
	probe.Up()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	probe.Down()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
