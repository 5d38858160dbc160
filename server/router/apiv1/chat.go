package apiv1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pepavlin/agent-manager-sub000/internal/errors"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/agent"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/tools"
	"github.com/pepavlin/agent-manager-sub000/store"
)

type chatTurnRequest struct {
	ProjectID string             `json:"project_id"`
	UserID    string             `json:"user_id"`
	ThreadID  string             `json:"thread_id,omitempty"`
	Message   string             `json:"message"`
	Tools     []tools.Definition `json:"tools,omitempty"`
	Source    string             `json:"source,omitempty"`
}

func (s *APIV1Service) processChat(c echo.Context) error {
	var body chatTurnRequest
	if err := c.Bind(&body); err != nil {
		return s.writeError(c, errors.InvalidArgument("malformed request body: %v", err))
	}

	result, err := s.orchestrator.ProcessChat(c.Request().Context(), &agent.ChatRequest{
		ProjectID: body.ProjectID,
		UserID:    body.UserID,
		ThreadID:  body.ThreadID,
		Message:   body.Message,
		Tools:     body.Tools,
		Source:    store.MemorySource(body.Source),
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type toolResultSubmission struct {
	ToolCallID string             `json:"tool_call_id"`
	ProjectID  string             `json:"project_id"`
	OK         bool               `json:"ok"`
	Data       map[string]any     `json:"data,omitempty"`
	Error      string             `json:"error,omitempty"`
	UserID     string             `json:"user_id,omitempty"`
	Tools      []tools.Definition `json:"tools,omitempty"`
}

func (s *APIV1Service) processToolResult(c echo.Context) error {
	var body toolResultSubmission
	if err := c.Bind(&body); err != nil {
		return s.writeError(c, errors.InvalidArgument("malformed request body: %v", err))
	}

	result, err := s.orchestrator.ProcessToolResult(c.Request().Context(), &agent.ToolResultSubmission{
		ToolCallID: body.ToolCallID,
		ProjectID:  body.ProjectID,
		OK:         body.OK,
		Data:       body.Data,
		Error:      body.Error,
		UserID:     body.UserID,
		Tools:      body.Tools,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
