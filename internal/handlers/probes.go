package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tendant/image-analysis-pipeline/internal/readiness"
)

const startupMessage = "Image analysis startup endpoint: application is ready to serve traffic"

// ProbeHandler serves health and startup checks
type ProbeHandler struct {
	probe *readiness.Probe
	mode  string
	log   *zap.Logger
}

// NewProbeHandler creates a new probe handler
func NewProbeHandler(probe *readiness.Probe, mode string, log *zap.Logger) *ProbeHandler {
	return &ProbeHandler{probe: probe, mode: mode, log: log}
}

// Health handles GET /health
func (h *ProbeHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"mode":   h.mode,
	})
}

// Start handles GET /start
func (h *ProbeHandler) Start(c *gin.Context) {
	h.log.Debug("start endpoint requested")
	c.String(http.StatusOK, "EventController started")
}

// Startup handles GET /actuator/startup
func (h *ProbeHandler) Startup(c *gin.Context) {
	if !h.probe.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"StartupEndpoint": startupMessage})
}
