package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mlindgren/collab-todo-api/internal/dto"
	apierrors "github.com/mlindgren/collab-todo-api/internal/errors"
	"github.com/mlindgren/collab-todo-api/internal/middleware"
	"github.com/mlindgren/collab-todo-api/internal/services"
	"github.com/mlindgren/collab-todo-api/internal/watch"
)

// InvitationHandler coordinates invitation-related HTTP handlers.
type InvitationHandler struct {
	projectService *services.ProjectService
	watchManager   *watch.Manager
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(projectService *services.ProjectService, watchManager *watch.Manager) *InvitationHandler {
	return &InvitationHandler{
		projectService: projectService,
		watchManager:   watchManager,
	}
}

// ListInvitations returns the caller's pending invitations, newest
// first.
func (h *InvitationHandler) ListInvitations(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	invitations, err := h.projectService.ListInvitationsForUser(userID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invitations": dto.ToInvitationDTOs(invitations),
	})
}

// RespondInvitation accepts or rejects a pending invitation addressed
// to the caller.
func (h *InvitationHandler) RespondInvitation(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type RespondRequest struct {
		Accept *bool `json:"accept" binding:"required"`
	}

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	invitation, err := h.projectService.HandleInvitation(c.Request.Context(), c.Param("id"), userID, *req.Accept)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInvitationDTO(*invitation))
}

// WatchInvitations streams live snapshots of the caller's pending
// invitations over SSE.
func (h *InvitationHandler) WatchInvitations(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	sub, err := h.watchManager.WatchInvitations(c.Request.Context(), userID)
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
			c.SSEvent("snapshot", dto.ToInvitationDTOs(snapshot))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
