// Package server exposes the workflow engine over HTTP: a gin JSON API for
// workflow and session management, a websocket chat transport, and
// prometheus metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/genstack/genstack/chat"
	"github.com/genstack/genstack/engine"
	"github.com/genstack/genstack/storage"
	"github.com/genstack/genstack/workflow"
)

// Dependencies bundles what the server needs to run.
type Dependencies struct {
	Engine      *engine.Engine
	Workflows   storage.WorkflowStore
	Documents   storage.DocumentStore
	Coordinator *chat.Coordinator
	Cache       *workflow.ValidationCache
	Registry    *prometheus.Registry
	Logger      *slog.Logger
}

// Server is the HTTP front of the engine.
type Server struct {
	router      *gin.Engine
	engine      *engine.Engine
	workflows   storage.WorkflowStore
	documents   storage.DocumentStore
	coordinator *chat.Coordinator
	cache       *workflow.ValidationCache
	metrics     *Metrics
	logger      *slog.Logger
	httpServer  *http.Server
}

// New builds the server and its routes.
func New(deps Dependencies) *Server {
	gin.SetMode(gin.ReleaseMode)

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		router:      gin.New(),
		engine:      deps.Engine,
		workflows:   deps.Workflows,
		documents:   deps.Documents,
		coordinator: deps.Coordinator,
		cache:       deps.Cache,
		metrics:     NewMetrics(registry),
		logger:      deps.Logger,
	}

	s.router.Use(gin.Recovery(), s.requestLogger())
	s.routes(registry)
	return s
}

func (s *Server) routes(registry *prometheus.Registry) {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")
	{
		api.POST("/workflows", s.handleCreateWorkflow)
		api.GET("/workflows", s.handleListWorkflows)
		api.GET("/workflows/:id", s.handleGetWorkflow)
		api.PUT("/workflows/:id", s.handleUpdateWorkflow)
		api.DELETE("/workflows/:id", s.handleDeleteWorkflow)
		api.POST("/workflows/validate", s.handleValidate)
		api.POST("/workflows/:id/execute", s.handleExecute)

		api.POST("/sessions", s.handleCreateSession)
		api.GET("/sessions/:id/messages", s.handleListMessages)

		api.GET("/documents", s.handleListDocuments)
	}

	s.router.GET("/ws/chat/:id", s.handleChatSocket)
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves HTTP on addr until the context is canceled, then drains with
// a shutdown grace period.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info("http server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(started),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
