// Package server runs the gin engine behind an http.Server.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tendant/image-analysis-pipeline/internal/config"
	"github.com/tendant/image-analysis-pipeline/internal/handlers"
)

// Server serves the pipeline routes and the metrics endpoint over HTTP
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	log        *zap.Logger
}

// New builds the engine and mounts routes. gatherer may be nil to skip the metrics endpoint.
func New(cfg *config.Config, routes handlers.Routes, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	handlers.Register(router, routes)

	if cfg.Metrics.Enabled && gatherer != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           router,
			ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			MaxHeaderBytes:    1 << 20, // 1 MB
		},
		engine: router,
		log:    log,
	}
}

// Handler returns the routed engine
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run blocks serving until Shutdown; it returns http.ErrServerClosed after a clean stop
func (s *Server) Run() error {
	s.log.Info("Server is running", zap.String("address", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx ends
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
