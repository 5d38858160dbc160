package apiv1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pepavlin/agent-manager-sub000/internal/errors"
	"github.com/pepavlin/agent-manager-sub000/plugin/ai/memory"
	"github.com/pepavlin/agent-manager-sub000/store"
)

type memoryItemPayload struct {
	ID         string         `json:"id"`
	ProjectID  string         `json:"project_id"`
	UserID     *string        `json:"user_id,omitempty"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Content    map[string]any `json:"content,omitempty"`
	Status     *string        `json:"status,omitempty"`
	Source     string         `json:"source,omitempty"`
	Confidence float64        `json:"confidence"`
	Tags       []string       `json:"tags,omitempty"`
	ExpiresTs  *int64         `json:"expires_ts,omitempty"`
	CreatedTs  int64          `json:"created_ts"`
	UpdatedTs  int64          `json:"updated_ts"`
}

func toMemoryItemPayload(item *store.MemoryItem) *memoryItemPayload {
	payload := &memoryItemPayload{
		ID:         item.ID,
		ProjectID:  item.ProjectID,
		UserID:     item.UserID,
		Type:       string(item.Type),
		Title:      item.Title,
		Content:    item.Content,
		Source:     string(item.Source),
		Confidence: item.Confidence,
		Tags:       item.Tags,
		ExpiresTs:  item.ExpiresTs,
		CreatedTs:  item.CreatedTs,
		UpdatedTs:  item.UpdatedTs,
	}
	if item.Status != nil {
		status := string(*item.Status)
		payload.Status = &status
	}
	return payload
}

func toMemoryItemPayloads(items []*store.MemoryItem) []*memoryItemPayload {
	payloads := make([]*memoryItemPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, toMemoryItemPayload(item))
	}
	return payloads
}

func (s *APIV1Service) listMemoryItems(c echo.Context) error {
	projectID := c.Param("id")
	find := &store.FindMemoryItem{ProjectID: &projectID}

	if types := c.QueryParam("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			find.Types = append(find.Types, store.MemoryItemType(strings.TrimSpace(t)))
		}
	}
	if statuses := c.QueryParam("statuses"); statuses != "" {
		for _, st := range strings.Split(statuses, ",") {
			find.Statuses = append(find.Statuses, store.MemoryItemStatus(strings.TrimSpace(st)))
		}
	}
	if c.QueryParam("include_expired") == "true" {
		find.IncludeExpired = true
	}
	if limit := c.QueryParam("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return s.writeError(c, errors.InvalidArgument("invalid limit %q", limit))
		}
		find.Limit = n
	}

	items, err := s.memory.List(c.Request().Context(), find)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toMemoryItemPayloads(items))
}

func (s *APIV1Service) getMemoryItem(c echo.Context) error {
	projectID := c.Param("id")
	itemID := c.Param("itemID")

	item, err := s.memory.Get(c.Request().Context(), itemID)
	if err != nil {
		return s.writeError(c, err)
	}
	// Items are scoped by project in the path; an id from another project
	// is indistinguishable from a missing one.
	if item.ProjectID != projectID {
		return s.writeError(c, errors.NotFound("memory item %s not found", itemID).
			WithContext("memory_item_id", itemID))
	}
	return c.JSON(http.StatusOK, toMemoryItemPayload(item))
}

type searchMemoryRequest struct {
	Query  string   `json:"query"`
	Types  []string `json:"types,omitempty"`
	UserID *string  `json:"user_id,omitempty"`
	Limit  int      `json:"limit,omitempty"`
}

func (s *APIV1Service) searchMemoryItems(c echo.Context) error {
	projectID := c.Param("id")
	var body searchMemoryRequest
	if err := c.Bind(&body); err != nil {
		return s.writeError(c, errors.InvalidArgument("malformed request body: %v", err))
	}
	if strings.TrimSpace(body.Query) == "" {
		return s.writeError(c, errors.InvalidArgument("query is required"))
	}

	req := &memory.SearchRequest{
		ProjectID: projectID,
		Query:     body.Query,
		UserID:    body.UserID,
		Limit:     body.Limit,
	}
	for _, t := range body.Types {
		req.Types = append(req.Types, store.MemoryItemType(t))
	}

	items, err := s.memory.Search(c.Request().Context(), req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toMemoryItemPayloads(items))
}

func (s *APIV1Service) purgeExpiredMemory(c echo.Context) error {
	projectID := c.Param("id")
	count, err := s.memory.PurgeExpired(c.Request().Context(), projectID)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"purged": count})
}

type saveTextRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

func (s *APIV1Service) savePreference(c echo.Context) error {
	projectID := c.Param("id")
	var body saveTextRequest
	if err := c.Bind(&body); err != nil {
		return s.writeError(c, errors.InvalidArgument("malformed request body: %v", err))
	}
	if body.UserID == "" || strings.TrimSpace(body.Text) == "" {
		return s.writeError(c, errors.InvalidArgument("user_id and text are required"))
	}

	pref, err := s.memory.SavePreference(c.Request().Context(), projectID, body.UserID, body.Text)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, pref)
}

func (s *APIV1Service) saveLesson(c echo.Context) error {
	projectID := c.Param("id")
	var body saveTextRequest
	if err := c.Bind(&body); err != nil {
		return s.writeError(c, errors.InvalidArgument("malformed request body: %v", err))
	}
	if body.UserID == "" || strings.TrimSpace(body.Text) == "" {
		return s.writeError(c, errors.InvalidArgument("user_id and text are required"))
	}

	lesson, err := s.memory.SaveLesson(c.Request().Context(), projectID, body.UserID, body.Text)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, lesson)
}
