// Package server hosts the HTTP surface of the agent.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pepavlin/agent-manager-sub000/internal/profile"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/agent"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/memory"
	"github.com/pepavlin/agent-manager-sub000/server/router/apiv1"
	"github.com/pepavlin/agent-manager-sub000/store"
)

// Server wraps the echo instance and its dependencies.
type Server struct {
	e       *echo.Echo
	profile *profile.Profile
	store   *store.Store
	logger  *slog.Logger
}

// NewServer creates the HTTP server and mounts all routes.
func NewServer(profile *profile.Profile, s *store.Store, orchestrator *agent.Orchestrator, memoryService *memory.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	apiV1Service := apiv1.NewAPIV1Service(profile, s, orchestrator, memoryService, logger)
	apiV1Service.Register(e)

	return &Server{
		e:       e,
		profile: profile,
		store:   s,
		logger:  logger,
	}
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	s.logger.Info("server started", "addr", addr, "mode", s.profile.Mode)
	return s.e.Start(addr)
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.e.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to shut down server gracefully", "error", err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("failed to close database", "error", err)
	}
	s.logger.Info("server stopped")
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds())
			return nil
		},
	})
}
