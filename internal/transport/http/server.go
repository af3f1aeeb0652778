// Package httpapi exposes the trigger surface: run one entity, run a full
// sweep, and read back state, scores and reports. It is a thin layer over the
// runner and the store; scheduling and decisions live elsewhere.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"adpilot/internal/logger"
	"adpilot/internal/optimizer"
	"adpilot/internal/platform"
	"adpilot/internal/scoring"
	"adpilot/internal/store"

	"github.com/gin-gonic/gin"
)

// Server hosts the optimizer HTTP API.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the server's dependencies.
type ServerConfig struct {
	Addr       string
	Runner     *optimizer.Runner
	States     store.StateStore
	Scoring    *scoring.Engine
	Metrics    platform.MetricsSource
	WindowDays int
}

// NewServer builds the router. The runner and store are required; scoring and
// metrics endpoints degrade to 404 when their dependencies are absent.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Runner == nil || cfg.States == nil {
		return nil, errors.New("http server requires runner and state store")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{
		runner:     cfg.Runner,
		states:     cfg.States,
		scoring:    cfg.Scoring,
		metrics:    cfg.Metrics,
		windowDays: cfg.WindowDays,
	}
	api := router.Group("/api/optimizer")
	api.POST("/run/:entityType/:entityId", h.runOne)
	api.POST("/run-all", h.runAll)
	api.GET("/states", h.listStates)
	api.GET("/state/:entityType/:entityId", h.getState)
	if cfg.Scoring != nil && cfg.Metrics != nil {
		api.GET("/score/:entityType/:entityId", h.getScore)
		api.GET("/report/:entityType/:entityId", h.getReport)
	}

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("http: listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("http: %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Truncate(time.Millisecond))
	}
}
