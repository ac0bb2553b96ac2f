package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mlindgren/collab-todo-api/internal/dto"
	apierrors "github.com/mlindgren/collab-todo-api/internal/errors"
	"github.com/mlindgren/collab-todo-api/internal/middleware"
	"github.com/mlindgren/collab-todo-api/internal/models"
	"github.com/mlindgren/collab-todo-api/internal/query"
	"github.com/mlindgren/collab-todo-api/internal/services"
	"github.com/mlindgren/collab-todo-api/internal/utils"
	"github.com/mlindgren/collab-todo-api/internal/watch"
)

// TodoHandler coordinates todo-related HTTP handlers.
type TodoHandler struct {
	todoService  *services.TodoService
	watchManager *watch.Manager
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(todoService *services.TodoService, watchManager *watch.Manager) *TodoHandler {
	return &TodoHandler{
		todoService:  todoService,
		watchManager: watchManager,
	}
}

// buildTodoQuery assembles the composed query from request parameters.
// Scope defaults to the user's personal todos when project_id is absent.
func buildTodoQuery(c *gin.Context, userID string) (query.TodoQuery, error) {
	q := query.TodoQuery{Sort: query.DefaultSort()}

	if projectID := c.Query("project_id"); projectID != "" {
		q.Scope = query.ProjectScope(projectID)
	} else {
		q.Scope = query.PersonalScope(userID)
	}

	if completedStr := c.Query("completed"); completedStr != "" {
		completed, err := strconv.ParseBool(completedStr)
		if err != nil {
			return q, errors.New("invalid completed value")
		}
		q.Filter.Completed = &completed
	}
	q.Filter.Category = c.Query("category")
	q.Filter.AssignedTo = c.Query("assigned_to")
	if priority := c.Query("priority"); priority != "" {
		if !models.ValidPriority(models.Priority(priority)) {
			return q, errors.New("invalid priority")
		}
		q.Filter.Priority = models.Priority(priority)
	}
	if tags := c.Query("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				q.Filter.Tags = append(q.Filter.Tags, tag)
			}
		}
	}

	if field := c.Query("sort"); field != "" {
		if !query.ValidSortField(query.SortField(field)) {
			return q, errors.New("invalid sort field")
		}
		q.Sort.Field = query.SortField(field)
		q.Sort.Direction = query.Asc
	}
	if direction := c.Query("direction"); direction != "" {
		switch query.Direction(direction) {
		case query.Asc, query.Desc:
			q.Sort.Direction = query.Direction(direction)
		default:
			return q, errors.New("invalid sort direction")
		}
	}

	return q, nil
}

// ListTodos returns the todos matching the composed query, with a
// progress summary over the scope.
func (h *TodoHandler) ListTodos(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	q, err := buildTodoQuery(c, userID)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	params := utils.GetPaginationParams(c)

	todos, total, err := h.todoService.ListTodos(services.ListTodosInput{
		UserID:    userID,
		ProjectID: q.Scope.ProjectID,
		Query:     q,
		Page:      params.Page,
		PageSize:  params.Limit,
	})
	if err != nil {
		respondTodoError(c, err)
		return
	}

	progress, err := h.todoService.Progress(q)
	if err != nil {
		respondTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TodoListResponse{
		Todos:    dto.ToTodoDTOs(todos),
		Progress: progress,
		Pagination: utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

// CreateTodo creates a new todo.
func (h *TodoHandler) CreateTodo(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateTodoRequest struct {
		Title       string          `json:"title" binding:"required"`
		Description string          `json:"description"`
		ProjectID   *string         `json:"project_id"`
		DueDate     *time.Time      `json:"due_date"`
		Priority    models.Priority `json:"priority"`
		Tags        []string        `json:"tags"`
		Category    string          `json:"category"`
	}

	var req CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	todo, err := h.todoService.CreateTodo(c.Request.Context(), services.CreateTodoInput{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Tags:        req.Tags,
		Category:    req.Category,
		UserID:      userID,
	})
	if err != nil {
		respondTodoError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTodoDTO(*todo))
}

// UpdateTodo applies a partial update to a todo.
func (h *TodoHandler) UpdateTodo(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type UpdateTodoRequest struct {
		Title         *string          `json:"title"`
		Description   *string          `json:"description"`
		Completed     *bool            `json:"completed"`
		DueDate       *time.Time       `json:"due_date"`
		ClearDueDate  bool             `json:"clear_due_date"`
		Priority      *models.Priority `json:"priority"`
		Tags          []string         `json:"tags"`
		Category      *string          `json:"category"`
		AssignedTo    *string          `json:"assigned_to"`
		ClearAssignee bool             `json:"clear_assignee"`
	}

	var req UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	todo, err := h.todoService.UpdateTodo(c.Request.Context(), c.Param("id"), userID, services.UpdateTodoInput{
		Title:         req.Title,
		Description:   req.Description,
		Completed:     req.Completed,
		DueDate:       req.DueDate,
		ClearDueDate:  req.ClearDueDate,
		Priority:      req.Priority,
		Tags:          req.Tags,
		Category:      req.Category,
		AssignedTo:    req.AssignedTo,
		ClearAssignee: req.ClearAssignee,
	})
	if err != nil {
		respondTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTodoDTO(*todo))
}

// DeleteTodo deletes a todo.
func (h *TodoHandler) DeleteTodo(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	if err := h.todoService.DeleteTodo(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Todo deleted successfully",
	})
}

// ToggleTodo flips a todo's completed flag.
func (h *TodoHandler) ToggleTodo(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	todo, err := h.todoService.ToggleTodo(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTodoDTO(*todo))
}

// AssignTodo assigns a todo to a user.
func (h *TodoHandler) AssignTodo(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type AssignRequest struct {
		UserID string `json:"user_id" binding:"required"`
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	todo, err := h.todoService.AssignTodo(c.Request.Context(), c.Param("id"), userID, req.UserID)
	if err != nil {
		respondTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTodoDTO(*todo))
}

// WatchTodos streams live snapshots of the composed query over SSE.
// Each event replaces the previous result set wholesale; the stream
// ends when the client disconnects.
func (h *TodoHandler) WatchTodos(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	q, err := buildTodoQuery(c, userID)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	if err := h.todoService.VerifyScopeAccess(userID, q.Scope.ProjectID); err != nil {
		respondTodoError(c, err)
		return
	}

	sub, err := h.watchManager.WatchTodos(c.Request.Context(), q)
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
			c.SSEvent("snapshot", dto.ToTodoDTOs(snapshot))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func setSSEHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
}

func respondTodoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTodoNotFound):
		apierrors.NotFound(c, apierrors.ErrCodeTodoNotFound, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrInvalidAssignee):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotTodoOwner),
		errors.Is(err, services.ErrTodoPermissionDenied):
		apierrors.Forbidden(c, "", err.Error())
	case errors.Is(err, services.ErrNotProjectMember):
		// Mirror the project middleware: membership failures read as
		// not found.
		apierrors.NotFound(c, apierrors.ErrCodeProjectNotFound, "Project not found")
	case errors.Is(err, services.ErrAuthRequired):
		apierrors.Unauthorized(c, "")
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
