// Package apiv1 exposes the agent core over HTTP. Handlers translate
// boundary types and map the error taxonomy to status codes; all business
// logic stays in the plugin and store layers.
package apiv1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pepavlin/agent-manager-sub000/internal/errors"
	"github.com/pepavlin/agent-manager-sub000/internal/profile"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/agent"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/memory"
	"github.com/pepavlin/agent-manager-sub000/store"
)

// APIV1Service registers the v1 REST routes.
type APIV1Service struct {
	profile      *profile.Profile
	store        *store.Store
	orchestrator *agent.Orchestrator
	memory       *memory.Service
	logger       *slog.Logger
}

// NewAPIV1Service creates the v1 route service.
func NewAPIV1Service(profile *profile.Profile, s *store.Store, orchestrator *agent.Orchestrator, memoryService *memory.Service, logger *slog.Logger) *APIV1Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIV1Service{
		profile:      profile,
		store:        s,
		orchestrator: orchestrator,
		memory:       memoryService,
		logger:       logger,
	}
}

// Register mounts all v1 routes on the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.POST("/chat", s.processChat)
	g.POST("/tool-results", s.processToolResult)

	g.POST("/projects", s.createProject)
	g.GET("/projects/:id", s.getProject)
	g.PATCH("/projects/:id", s.updateProject)

	g.GET("/projects/:id/memory", s.listMemoryItems)
	g.GET("/projects/:id/memory/:itemID", s.getMemoryItem)
	g.POST("/projects/:id/memory/search", s.searchMemoryItems)
	g.POST("/projects/:id/memory/purge", s.purgeExpiredMemory)

	g.GET("/projects/:id/audit", s.listAuditLogs)

	g.POST("/projects/:id/preferences", s.savePreference)
	g.POST("/projects/:id/lessons", s.saveLesson)
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

// writeError maps the error taxonomy to HTTP status codes.
func (s *APIV1Service) writeError(c echo.Context, err error) error {
	if agentErr, ok := err.(*errors.AgentError); ok {
		status := http.StatusInternalServerError
		switch agentErr.Code {
		case errors.CodeNotFound:
			status = http.StatusNotFound
		case errors.CodeValidationFailed, errors.CodeInvalidArgument:
			status = http.StatusBadRequest
		case errors.CodeProviderFailure:
			status = http.StatusBadGateway
		}
		return c.JSON(status, errorBody{
			Code:    string(agentErr.Code),
			Message: agentErr.Message,
			Context: agentErr.Context,
		})
	}

	s.logger.Error("request failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, errorBody{
		Code:    "INTERNAL",
		Message: "internal server error",
	})
}
