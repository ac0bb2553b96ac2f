package dto

import (
	"time"

	"github.com/mlindgren/collab-todo-api/internal/models"
	"github.com/mlindgren/collab-todo-api/internal/services"
	"github.com/mlindgren/collab-todo-api/internal/utils"
)

// TodoDTO represents a todo in API responses
type TodoDTO struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Completed   bool            `json:"completed"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Priority    models.Priority `json:"priority,omitempty"`
	Tags        []string        `json:"tags"`
	Category    string          `json:"category,omitempty"`
	UserID      string          `json:"user_id"`
	ProjectID   *string         `json:"project_id,omitempty"`
	AssignedTo  *string         `json:"assigned_to,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	User        *UserDTO        `json:"user,omitempty"`
	Assignee    *UserDTO        `json:"assignee,omitempty"`
}

// TodoListResponse represents a todo listing with progress and
// pagination metadata
type TodoListResponse struct {
	Todos      []TodoDTO                `json:"todos"`
	Progress   services.TodoProgress    `json:"progress"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToTodoDTO converts a Todo model to TodoDTO
func ToTodoDTO(todo models.Todo) TodoDTO {
	dto := TodoDTO{
		ID:          todo.ID,
		Title:       todo.Title,
		Description: todo.Description,
		Completed:   todo.Completed,
		DueDate:     todo.DueDate,
		Priority:    todo.Priority,
		Tags:        todo.Tags,
		Category:    todo.Category,
		UserID:      todo.UserID,
		ProjectID:   todo.ProjectID,
		AssignedTo:  todo.AssignedTo,
		CreatedAt:   todo.CreatedAt,
		UpdatedAt:   todo.UpdatedAt,
	}

	if dto.Tags == nil {
		dto.Tags = []string{}
	}

	// Include creator if preloaded
	if todo.User.ID != "" {
		user := ToUserDTO(todo.User)
		dto.User = &user
	}

	// Include assignee if preloaded
	if todo.Assignee != nil && todo.Assignee.ID != "" {
		assignee := ToUserDTO(*todo.Assignee)
		dto.Assignee = &assignee
	}

	return dto
}

// ToTodoDTOs converts a snapshot of todos
func ToTodoDTOs(todos []models.Todo) []TodoDTO {
	dtos := make([]TodoDTO, len(todos))
	for i, todo := range todos {
		dtos[i] = ToTodoDTO(todo)
	}
	return dtos
}
