package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tendant/image-analysis-pipeline/internal/executors"
	"github.com/tendant/image-analysis-pipeline/internal/workflows"
	"github.com/tendant/image-analysis-pipeline/pkg/pipeline"
)

// CloudEvent headers that every delivery must carry
var requiredHeaders = []string{"ce-id", "ce-source", "ce-type", "ce-specversion", "ce-subject"}

// Executor runs one analysis synchronously
type Executor interface {
	Execute(ctx context.Context, req pipeline.ProcessRequest) (*executors.Execution, error)
}

// EventHandler receives storage notifications
type EventHandler struct {
	executor Executor
	log      *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(executor Executor, log *zap.Logger) *EventHandler {
	return &EventHandler{
		executor: executor,
		log:      log,
	}
}

// HandleCloudEvent handles POST / - a CloudEvent in binary mode whose body is the object payload.
// Every response carries the detection message; the status reflects the outcome.
func (h *EventHandler) HandleCloudEvent(c *gin.Context) {
	if ct := c.ContentType(); ct != gin.MIMEJSON {
		c.String(http.StatusUnsupportedMediaType, "Content type '%s' not supported.", ct)
		return
	}

	for _, field := range requiredHeaders {
		if c.GetHeader(field) == "" {
			msg := fmt.Sprintf("Missing expected header: %s.", field)
			h.log.Warn(msg)
			c.String(http.StatusBadRequest, "%s", msg)
			return
		}
	}

	subject := c.GetHeader("ce-subject")
	msg := "Detected change in Cloud Storage bucket: (ce-subject) : " + subject
	h.log.Info(msg, zap.String("ce_id", c.GetHeader("ce-id")), zap.String("ce_type", c.GetHeader("ce-type")))

	var body executors.GCSEvent
	if err := c.ShouldBindJSON(&body); err != nil {
		h.log.Warn("invalid event body", zap.Error(err))
		c.String(http.StatusBadRequest, "%s", msg)
		return
	}

	req := pipeline.ProcessRequest{
		Bucket: body.Bucket,
		Name:   body.Name,
		Job:    pipeline.JobImageAnalysis,
		Metadata: map[string]string{
			"source": "cloudevent",
			"ce_id":  c.GetHeader("ce-id"),
		},
	}

	exec, err := h.executor.Execute(c.Request.Context(), req)
	switch {
	case errors.Is(err, workflows.ErrInvalidRequest):
		c.String(http.StatusBadRequest, "%s", msg)
		return
	case err != nil:
		c.String(http.StatusInternalServerError, "%s", msg)
		return
	}

	switch exec.Result.Outcome {
	case pipeline.OutcomeSkippedEmptyBatch, pipeline.OutcomeSkippedAnnotationError, pipeline.OutcomeSkippedInvalidKey:
		c.String(http.StatusBadRequest, "%s", msg)
	default:
		c.String(http.StatusOK, "%s", msg)
	}
}

// HandleStorageEvent handles POST /events/storage - a raw object notification or a
// Pub/Sub push envelope. Skips are acknowledged; only failures ask for redelivery.
func (h *EventHandler) HandleStorageEvent(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	req, err := executors.DecodeStorageEvent(payload)
	if errors.Is(err, executors.ErrIgnoredEvent) {
		h.log.Info("ignoring storage event", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if err != nil {
		h.log.Warn("invalid storage event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exec, err := h.executor.Execute(c.Request.Context(), req)
	if errors.Is(err, workflows.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, pipeline.ProcessResponse{
		RunID:           exec.RunID,
		Outcome:         exec.Result.Outcome,
		DedupeSeenCount: exec.SeenCount,
	})
}
