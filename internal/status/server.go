// Package status serves pipeline health, counters and the confidence
// threshold over HTTP.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"live-text-overlay/internal/core"
	"live-text-overlay/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Server is the optional local status endpoint.
type Server struct {
	engine    *gin.Engine
	stats     *metrics.Pipeline
	threshold *core.Threshold
	logger    *logrus.Entry

	onThreshold func(int)
}

type thresholdRequest struct {
	ConfidenceThreshold *int `json:"confidence_threshold" binding:"required,min=0,max=100"`
}

func NewServer(stats *metrics.Pipeline, threshold *core.Threshold, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		engine:    gin.New(),
		stats:     stats,
		threshold: threshold,
		logger:    logger.WithField("component", "status"),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.healthHandler)
	s.engine.GET("/stats", s.statsHandler)
	s.engine.GET("/threshold", s.getThresholdHandler)
	s.engine.PUT("/threshold", s.putThresholdHandler)
}

// OnThresholdChange registers fn to run after every accepted PUT /threshold.
// It must be called before Run.
func (s *Server) OnThresholdChange(fn func(int)) {
	s.onThreshold = fn
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("Status server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Request served")
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) statsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.stats.Snapshot())
}

func (s *Server) getThresholdHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"confidence_threshold": s.threshold.Get()})
}

func (s *Server) putThresholdHandler(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v := s.threshold.Set(*req.ConfidenceThreshold)
	s.logger.WithField("confidence_threshold", v).Info("Confidence threshold updated")
	if s.onThreshold != nil {
		s.onThreshold(v)
	}
	c.JSON(http.StatusOK, gin.H{"confidence_threshold": v})
}
