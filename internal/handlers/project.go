package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mlindgren/collab-todo-api/internal/dto"
	apierrors "github.com/mlindgren/collab-todo-api/internal/errors"
	"github.com/mlindgren/collab-todo-api/internal/middleware"
	"github.com/mlindgren/collab-todo-api/internal/services"
	"github.com/mlindgren/collab-todo-api/internal/watch"
)

// ProjectHandler coordinates project-related HTTP handlers.
type ProjectHandler struct {
	projectService *services.ProjectService
	watchManager   *watch.Manager
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService, watchManager *watch.Manager) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		watchManager:   watchManager,
	}
}

// CreateProject creates a project with the caller as its owner.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateProjectRequest struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     userID,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects lists the projects the caller belongs to.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	projects, err := h.projectService.ListProjectsForUser(userID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": dto.ToProjectDTOs(projects),
	})
}

// GetProject returns a single project with its member list. The
// access middleware has already resolved the project.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, exists := middleware.GetProject(c)
	if !exists {
		apierrors.NotFound(c, apierrors.ErrCodeProjectNotFound, "Project not found")
		return
	}

	full, members, err := h.projectService.GetProjectWithMembers(project.ID)
	if err != nil {
		respondProjectError(c, err)
		return
	}
	full.Members = members

	c.JSON(http.StatusOK, dto.ToProjectDTO(*full))
}

// DeleteProject deletes a project. Owner only.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	if err := h.projectService.DeleteProject(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Project deleted successfully",
	})
}

// InviteToProject invites a user, by email, to join the project.
func (h *ProjectHandler) InviteToProject(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type InviteRequest struct {
		Email string `json:"email" binding:"required,email"`
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	invitation, err := h.projectService.InviteToProject(c.Request.Context(), c.Param("id"), userID, req.Email)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToInvitationDTO(*invitation))
}

// RemoveMember removes a member from the project. Owner only; the
// owner themselves cannot be removed.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	err := h.projectService.RemoveMember(c.Request.Context(), c.Param("id"), userID, c.Param("user_id"))
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed successfully",
	})
}

// WatchProjects streams live snapshots of the caller's project list
// over SSE.
func (h *ProjectHandler) WatchProjects(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	sub, err := h.watchManager.WatchProjects(c.Request.Context(), userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to open subscription")
		return
	}
	defer sub.Unsubscribe()

	setSSEHeaders(c)
	c.Stream(func(w io.Writer) bool {
		select {
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				return false
			}
			c.SSEvent("snapshot", dto.ToProjectDTOs(snapshot))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, apierrors.ErrCodeProjectNotFound, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, apierrors.ErrCodeUserNotFound, err.Error())
	case errors.Is(err, services.ErrMemberNotFound):
		apierrors.NotFound(c, apierrors.ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrInvitationNotFound):
		apierrors.NotFound(c, apierrors.ErrCodeInvitationNotFound, err.Error())
	case errors.Is(err, services.ErrOwnerRequired):
		apierrors.Forbidden(c, apierrors.ErrCodeOwnerRequired, err.Error())
	case errors.Is(err, services.ErrAlreadyMember):
		apierrors.Conflict(c, apierrors.ErrCodeAlreadyMember, err.Error())
	case errors.Is(err, services.ErrCannotRemoveOwner):
		apierrors.Conflict(c, apierrors.ErrCodeCannotRemoveOwner, err.Error())
	case errors.Is(err, services.ErrInvalidProjectName):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAuthRequired):
		apierrors.Unauthorized(c, "")
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
