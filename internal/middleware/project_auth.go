package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/mlindgren/collab-todo-api/internal/errors"
	"github.com/mlindgren/collab-todo-api/internal/models"
	"github.com/mlindgren/collab-todo-api/internal/repository"
)

const (
	contextKeyProject       = "project"
	contextKeyProjectMember = "project_member"
)

// RequireProjectAccess checks if the user is a member of the project
// named by the :id route parameter, and stores the project and the
// membership in the request context.
func RequireProjectAccess(projectRepo repository.ProjectRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		if projectID == "" {
			apierrors.BadRequest(c, "Invalid project ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		project, err := projectRepo.FindByID(projectID)
		if err != nil {
			apierrors.NotFound(c, apierrors.ErrCodeProjectNotFound, "Project not found")
			c.Abort()
			return
		}

		member, err := projectRepo.FindMember(projectID, userID)
		if err != nil {
			// Return 404 instead of 403 to avoid leaking project existence
			apierrors.NotFound(c, apierrors.ErrCodeProjectNotFound, "Project not found")
			c.Abort()
			return
		}

		c.Set(contextKeyProject, *project)
		c.Set(contextKeyProjectMember, *member)
		c.Next()
	}
}

// RequireProjectOwner checks if the user is the owner of the project
// loaded by RequireProjectAccess.
func RequireProjectOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		memberInterface, exists := c.Get(contextKeyProjectMember)
		if !exists {
			apierrors.Forbidden(c, apierrors.ErrCodeOwnerRequired, "Project access required")
			c.Abort()
			return
		}

		member, ok := memberInterface.(models.ProjectMember)
		if !ok {
			apierrors.InternalError(c, "Invalid project member data")
			c.Abort()
			return
		}

		if member.Role != models.RoleOwner {
			apierrors.Forbidden(c, apierrors.ErrCodeOwnerRequired, "Only the project owner can perform this action")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetProject retrieves the project loaded by RequireProjectAccess.
func GetProject(c *gin.Context) (models.Project, bool) {
	projectInterface, exists := c.Get(contextKeyProject)
	if !exists {
		return models.Project{}, false
	}
	project, ok := projectInterface.(models.Project)
	return project, ok
}
