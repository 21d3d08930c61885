package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tendant/image-analysis-pipeline/internal/app"
	"github.com/tendant/image-analysis-pipeline/internal/config"
	"github.com/tendant/image-analysis-pipeline/internal/executors"
	"github.com/tendant/image-analysis-pipeline/internal/handlers"
	"github.com/tendant/image-analysis-pipeline/internal/logging"
	"github.com/tendant/image-analysis-pipeline/internal/metrics"
	"github.com/tendant/image-analysis-pipeline/internal/readiness"
	"github.com/tendant/image-analysis-pipeline/internal/server"
	"github.com/tendant/image-analysis-pipeline/internal/workflows"
	"github.com/tendant/image-analysis-pipeline/pkg/pipeline"
)

// Standalone pipeline worker for quick testing
// Uses the local analyzer over ./dev-data/<bucket>/<name> and an in-memory store
// No DBOS or cloud credentials needed
func main() {
	cfg, err := config.Load(config.StandaloneDefaults())
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

	log.Info("Pipeline Standalone Worker",
		zap.String("vision", cfg.Vision.Backend),
		zap.String("source", cfg.Source.Kind),
		zap.String("source_dir", cfg.Source.Dir),
		zap.String("store", cfg.Store.Backend),
		zap.String("http_addr", cfg.HTTP.Addr))

	ctx := context.Background()
	var probe readiness.Probe

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	analysis, cleanup, err := app.NewAnalysisWorkflow(ctx, cfg, log, m)
	if err != nil {
		log.Fatal("Failed to initialize analysis workflow", zap.Error(err))
	}
	defer cleanup()

	// Initialize workflow runner without DBOS: requests run synchronously
	workflowRunner := workflows.NewWorkflowRunner(nil)
	workflowRunner.Register(pipeline.JobImageAnalysis, analysis)
	log.Info("Registered workflow", zap.String("workflow", analysis.Name()), zap.String("job", pipeline.JobImageAnalysis))

	executor := executors.NewAnalysisExecutor(workflowRunner, nil, log)
	srv := server.New(cfg, handlers.Routes{
		Probes:  handlers.NewProbeHandler(&probe, "standalone", log),
		Events:  handlers.NewEventHandler(executor, log),
		Process: handlers.NewSyncHandler(executor, log),
	}, reg, log)

	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()
	probe.Up()

	log.Info("Quick test: put an image under the source directory, then",
		zap.String("curl", `curl -X POST localhost:8080/v1/process -d '{"bucket":"pics","name":"cat.jpg"}'`))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	probe.Down()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
