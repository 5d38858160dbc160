package apiv1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/pepavlin/agent-manager-sub000/internal/errors"
	"github.com/pepavlin/agent-manager-sub000/store"
)

type projectPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Brief     string `json:"brief,omitempty"`
	CreatedTs int64  `json:"created_ts"`
	UpdatedTs int64  `json:"updated_ts"`
}

func toProjectPayload(project *store.Project) *projectPayload {
	return &projectPayload{
		ID:        project.ID,
		Name:      project.Name,
		Role:      project.Role,
		Brief:     project.Brief,
		CreatedTs: project.CreatedTs,
		UpdatedTs: project.UpdatedTs,
	}
}

type createProjectRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (s *APIV1Service) createProject(c echo.Context) error {
	var body createProjectRequest
	if err := c.Bind(&body); err != nil {
		return s.writeError(c, errors.InvalidArgument("malformed request body: %v", err))
	}
	if body.Name == "" {
		return s.writeError(c, errors.InvalidArgument("project name is required"))
	}

	project, err := s.store.CreateProject(c.Request().Context(), &store.Project{
		ID:   shortuuid.New(),
		Name: body.Name,
		Role: body.Role,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toProjectPayload(project))
}

func (s *APIV1Service) getProject(c echo.Context) error {
	id := c.Param("id")
	project, err := s.store.GetProject(c.Request().Context(), &store.FindProject{ID: &id})
	if err != nil {
		return s.writeError(c, err)
	}
	if project == nil {
		return s.writeError(c, errors.NotFound("project %s not found", id).WithContext("project_id", id))
	}
	return c.JSON(http.StatusOK, toProjectPayload(project))
}

type updateProjectRequest struct {
	Name  *string `json:"name,omitempty"`
	Brief *string `json:"brief,omitempty"`
}

func (s *APIV1Service) updateProject(c echo.Context) error {
	id := c.Param("id")
	var body updateProjectRequest
	if err := c.Bind(&body); err != nil {
		return s.writeError(c, errors.InvalidArgument("malformed request body: %v", err))
	}

	project, err := s.store.UpdateProject(c.Request().Context(), &store.UpdateProject{
		ID:    id,
		Name:  body.Name,
		Brief: body.Brief,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	if project == nil {
		return s.writeError(c, errors.NotFound("project %s not found", id).WithContext("project_id", id))
	}
	return c.JSON(http.StatusOK, toProjectPayload(project))
}
