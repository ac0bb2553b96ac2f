package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mlindgren/collab-todo-api/internal/models"
)

// CategoryHandler serves the fixed category catalog.
type CategoryHandler struct{}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// ListCategories returns the available todo categories.
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": models.Categories,
	})
}
