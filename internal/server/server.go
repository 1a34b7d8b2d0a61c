// Package server exposes the tracker over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ldi/planner/internal/tracker"
)

const RequestIDHeader = "X-Request-ID"

type Server struct {
	// mu serializes every call into the manager, which has no locking of its own.
	mu      sync.Mutex
	manager *tracker.Manager
	logger  *slog.Logger
	router  *gin.Engine

	lifecycle sync.Mutex
	server    *http.Server
	closed    bool
}

func NewServer(manager *tracker.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	s := &Server{
		manager: manager,
		logger:  logger,
		router:  router,
	}

	router.Use(gin.Recovery(), s.requestID, s.logRequests)

	for _, r := range s.resources() {
		group := router.Group("/" + r.path)
		group.GET("", r.handleList)
		group.POST("", r.handleSave)
		group.DELETE("", r.handleDeleteAll)
		group.GET("/:id", r.handleGet)
		group.DELETE("/:id", r.handleDelete)
	}
	router.GET("/epics/:id/subtasks", s.handleEpicSubtasks)
	router.GET("/prioritized", s.handlePrioritized)
	router.GET("/history", s.handleHistory)

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr until Shutdown is called. It returns
// http.ErrServerClosed after a shutdown, including one that came first.
func (s *Server) Start(addr string) error {
	s.lifecycle.Lock()
	if s.closed {
		s.lifecycle.Unlock()
		return http.ErrServerClosed
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.server = srv
	s.lifecycle.Unlock()

	s.logger.Info("listening", "addr", addr)
	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.closed = true
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set("request_id", id)
	c.Header(RequestIDHeader, id)
	c.Next()
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()

	attrs := []any{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
		"request_id", c.GetString("request_id"),
	}
	if len(c.Errors) > 0 {
		attrs = append(attrs, "error", c.Errors.String())
	}
	switch {
	case c.Writer.Status() >= http.StatusInternalServerError:
		s.logger.Error("request", attrs...)
	default:
		s.logger.Info("request", attrs...)
	}
}
