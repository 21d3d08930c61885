package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tendant/image-analysis-pipeline/internal/executors"
	"github.com/tendant/image-analysis-pipeline/internal/workflows"
	"github.com/tendant/image-analysis-pipeline/pkg/pipeline"
)

// Enqueuer hands an analysis to the durable queue
type Enqueuer interface {
	Enqueue(ctx context.Context, req pipeline.ProcessRequest) (*executors.Execution, error)
}

// StatusSource looks up the status of an enqueued run
type StatusSource interface {
	GetStatus(ctx context.Context, runID string) (*workflows.WorkflowStatus, error)
}

// ProcessHandler handles direct processing requests
type ProcessHandler struct {
	executor Executor
	enqueuer Enqueuer
	status   StatusSource
	log      *zap.Logger
}

// NewSyncHandler creates a handler that runs the analysis inside the request
func NewSyncHandler(executor Executor, log *zap.Logger) *ProcessHandler {
	return &ProcessHandler{executor: executor, log: log}
}

// NewAsyncHandler creates a handler that enqueues the analysis and returns immediately
func NewAsyncHandler(enqueuer Enqueuer, status StatusSource, log *zap.Logger) *ProcessHandler {
	return &ProcessHandler{enqueuer: enqueuer, status: status, log: log}
}

func bindProcessRequest(c *gin.Context) (pipeline.ProcessRequest, bool) {
	var req pipeline.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return req, false
	}
	if req.Bucket == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bucket is required"})
		return req, false
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return req, false
	}
	return req, true
}

// HandleProcess handles POST /v1/process
func (h *ProcessHandler) HandleProcess(c *gin.Context) {
	req, ok := bindProcessRequest(c)
	if !ok {
		return
	}

	if h.enqueuer != nil {
		h.enqueue(c, req)
		return
	}

	h.log.Info("processing request", zap.String("bucket", req.Bucket), zap.String("name", req.Name))

	exec, err := h.executor.Execute(c.Request.Context(), req)
	switch {
	case errors.Is(err, workflows.ErrInvalidRequest), errors.Is(err, workflows.ErrWorkflowNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Workflow execution failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, pipeline.ProcessResponse{
		RunID:           exec.RunID,
		Outcome:         exec.Result.Outcome,
		DedupeSeenCount: exec.SeenCount,
	})
}

func (h *ProcessHandler) enqueue(c *gin.Context, req pipeline.ProcessRequest) {
	exec, err := h.enqueuer.Enqueue(c.Request.Context(), req)
	if err != nil {
		h.log.Error("failed to enqueue workflow", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Return immediately with 202 Accepted
	c.JSON(http.StatusAccepted, pipeline.ProcessResponse{
		RunID:           exec.RunID,
		DedupeSeenCount: exec.SeenCount,
	})
}

// HandleStatus handles GET /v1/runs/:id
func (h *ProcessHandler) HandleStatus(c *gin.Context) {
	runID := c.Param("id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id is required"})
		return
	}

	status, err := h.status.GetStatus(c.Request.Context(), runID)
	if errors.Is(err, workflows.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Workflow not found"})
		return
	}
	if err != nil {
		h.log.Error("failed to get workflow status", zap.String("run_id", runID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get workflow status"})
		return
	}

	c.JSON(http.StatusOK, status)
}
