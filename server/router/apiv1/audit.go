package apiv1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pepavlin/agent-manager-sub000/internal/errors"
	"github.com/pepavlin/agent-manager-sub000/store"
)

type auditLogPayload struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	ThreadID  string `json:"thread_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Action    string `json:"action"`
	Mode      string `json:"mode,omitempty"`
	ToolName  string `json:"tool_name,omitempty"`
	Source    string `json:"source,omitempty"`
	Payload   string `json:"payload,omitempty"`
	CreatedTs int64  `json:"created_ts"`
}

func toAuditLogPayload(log *store.AuditLog) *auditLogPayload {
	return &auditLogPayload{
		ID:        log.ID,
		ProjectID: log.ProjectID,
		ThreadID:  log.ThreadID,
		UserID:    log.UserID,
		Action:    log.Action,
		Mode:      log.Mode,
		ToolName:  log.ToolName,
		Source:    log.Source,
		Payload:   log.Payload,
		CreatedTs: log.CreatedTs,
	}
}

func (s *APIV1Service) listAuditLogs(c echo.Context) error {
	projectID := c.Param("id")
	find := &store.FindAuditLog{ProjectID: &projectID}

	if threadID := c.QueryParam("thread_id"); threadID != "" {
		find.ThreadID = &threadID
	}
	if limit := c.QueryParam("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return s.writeError(c, errors.InvalidArgument("invalid limit %q", limit))
		}
		find.Limit = n
	}

	logs, err := s.store.ListAuditLogs(c.Request().Context(), find)
	if err != nil {
		return s.writeError(c, err)
	}
	payloads := make([]*auditLogPayload, 0, len(logs))
	for _, log := range logs {
		payloads = append(payloads, toAuditLogPayload(log))
	}
	return c.JSON(http.StatusOK, payloads)
}
