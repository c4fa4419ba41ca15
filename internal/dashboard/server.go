// Package dashboard provides the supervisor-facing HTTP API: pending
// and recent help requests, resolution, learned knowledge, call logs,
// and aggregate stats.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/frontdeskd/internal/helpreq"
	"github.com/fyrsmithlabs/frontdeskd/internal/knowledge"
	"github.com/fyrsmithlabs/frontdeskd/internal/store"
)

const defaultListLimit = 50

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server serves the supervisor dashboard API.
type Server struct {
	echo      *echo.Echo
	lifecycle *helpreq.Service
	index     *knowledge.Index
	store     store.Store
	logger    *zap.Logger
	config    *Config
}

// NewServer creates the dashboard server and registers its routes.
func NewServer(lifecycle *helpreq.Service, index *knowledge.Index, st store.Store, logger *zap.Logger, cfg *Config) (*Server, error) {
	if lifecycle == nil {
		return nil, fmt.Errorf("lifecycle service cannot be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("knowledge index cannot be nil")
	}
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		lifecycle: lifecycle,
		index:     index,
		store:     st,
		logger:    logger,
		config:    cfg,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/requests/pending", s.handlePendingRequests)
	v1.GET("/requests/recent", s.handleRecentRequests)
	v1.POST("/requests/:id/resolve", s.handleResolveRequest)
	v1.GET("/knowledge", s.handleKnowledge)
	v1.GET("/knowledge/search", s.handleKnowledgeSearch)
	v1.GET("/calls", s.handleCalls)
	v1.GET("/stats", s.handleStats)
}

// ResolveRequest is the request body for POST /api/v1/requests/:id/resolve.
type ResolveRequest struct {
	Answer       string `json:"answer"`
	ResolverName string `json:"resolver_name"`
}

// ResolveResponse is the response body for POST /api/v1/requests/:id/resolve.
type ResolveResponse struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
}

// StatsResponse is the response body for GET /api/v1/stats.
type StatsResponse struct {
	helpreq.Stats
	KnowledgeEntries int `json:"total_knowledge_entries"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handlePendingRequests(c echo.Context) error {
	requests, err := s.lifecycle.Pending(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to list pending requests", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list pending requests")
	}
	return c.JSON(http.StatusOK, requests)
}

func (s *Server) handleRecentRequests(c echo.Context) error {
	requests, err := s.lifecycle.Recent(c.Request().Context(), queryLimit(c))
	if err != nil {
		s.logger.Error("failed to list recent requests", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list recent requests")
	}
	return c.JSON(http.StatusOK, requests)
}

func (s *Server) handleResolveRequest(c echo.Context) error {
	id := c.Param("id")

	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid resolve request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ok, err := s.lifecycle.Resolve(c.Request().Context(), id, req.Answer, req.ResolverName)
	switch {
	case errors.Is(err, helpreq.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, "answer field is required")
	case errors.Is(err, helpreq.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "help request not found")
	case errors.Is(err, helpreq.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, "help request is not pending")
	case err != nil:
		s.logger.Error("failed to resolve help request",
			zap.String("request_id", id),
			zap.Error(err),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve help request")
	}

	return c.JSON(http.StatusOK, ResolveResponse{ID: id, Resolved: ok})
}

func (s *Server) handleKnowledge(c echo.Context) error {
	return c.JSON(http.StatusOK, s.index.Entries())
}

// handleKnowledgeSearch runs a substring search against the store. A
// dashboard lookup is not a caller hit, so usage counts stay untouched.
func (s *Server) handleKnowledgeSearch(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q parameter is required")
	}

	entries, err := s.store.TextSearchKnowledge(c.Request().Context(), query)
	if err != nil {
		s.logger.Error("knowledge search failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "knowledge search failed")
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) handleCalls(c echo.Context) error {
	logs, err := s.store.ListCallLogs(c.Request().Context(), queryLimit(c))
	if err != nil {
		s.logger.Error("failed to list call logs", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list call logs")
	}
	return c.JSON(http.StatusOK, logs)
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.lifecycle.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to compute stats", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute stats")
	}

	return c.JSON(http.StatusOK, StatsResponse{
		Stats:            *stats,
		KnowledgeEntries: s.index.Len(),
	})
}

// queryLimit parses ?limit=, falling back to the default on absent or
// unusable values.
func queryLimit(c echo.Context) int {
	raw := c.QueryParam("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting dashboard server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down dashboard server")
	return s.echo.Shutdown(ctx)
}
