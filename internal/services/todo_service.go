package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mlindgren/collab-todo-api/internal/models"
	"github.com/mlindgren/collab-todo-api/internal/query"
	"github.com/mlindgren/collab-todo-api/internal/repository"
	"github.com/mlindgren/collab-todo-api/internal/watch"
	"gorm.io/gorm"
)

var (
	ErrTodoNotFound         = errors.New("todo not found")
	ErrTitleRequired        = errors.New("title is required")
	ErrTitleEmpty           = errors.New("title cannot be empty")
	ErrNotTodoOwner         = errors.New("only the todo creator can perform this action")
	ErrTodoPermissionDenied = errors.New("user does not have permission to modify this todo")
	ErrNotProjectMember     = errors.New("user is not a member of the project")
	ErrInvalidPriority      = errors.New("invalid priority")
	ErrInvalidCategory      = errors.New("unknown category")
	ErrInvalidAssignee      = errors.New("assignee is not a member of the todo's project")
)

// TodoService handles todo business logic.
type TodoService struct {
	todoRepo    repository.TodoRepository
	projectRepo repository.ProjectRepository
	publisher   watch.Publisher
}

// NewTodoService creates a new TodoService.
func NewTodoService(todoRepo repository.TodoRepository, projectRepo repository.ProjectRepository, publisher watch.Publisher) *TodoService {
	return &TodoService{
		todoRepo:    todoRepo,
		projectRepo: projectRepo,
		publisher:   publisher,
	}
}

// ListTodosInput selects the scope, filter and sort for a listing.
type ListTodosInput struct {
	UserID    string
	ProjectID string
	Query     query.TodoQuery
	Page      int
	PageSize  int
}

// TodoProgress summarizes completion within a result set's scope.
type TodoProgress struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
}

// ListTodos returns todos for a composed query after verifying the
// caller may read the scope.
func (s *TodoService) ListTodos(input ListTodosInput) ([]models.Todo, int64, error) {
	if err := s.VerifyScopeAccess(input.UserID, input.ProjectID); err != nil {
		return nil, 0, err
	}

	todos, total, err := s.todoRepo.List(input.Query, input.Page, input.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list todos: %w", err)
	}

	return todos, total, nil
}

// Progress returns completed/total counts for the scope of a query,
// ignoring its completed filter.
func (s *TodoService) Progress(q query.TodoQuery) (TodoProgress, error) {
	scoped := q
	scoped.Filter.Completed = nil

	total, completed, err := s.todoRepo.Counts(scoped)
	if err != nil {
		return TodoProgress{}, fmt.Errorf("failed to count todos: %w", err)
	}

	return TodoProgress{Total: total, Completed: completed}, nil
}

// CreateTodoInput represents input for creating a todo.
type CreateTodoInput struct {
	Title       string
	Description string
	ProjectID   *string
	DueDate     *time.Time
	Priority    models.Priority
	Tags        []string
	Category    string
	UserID      string
}

// CreateTodo creates a todo in the caller's personal scope, or in a
// project the caller belongs to.
func (s *TodoService) CreateTodo(ctx context.Context, input CreateTodoInput) (*models.Todo, error) {
	if input.UserID == "" {
		return nil, ErrAuthRequired
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if input.Priority != "" && !models.ValidPriority(input.Priority) {
		return nil, ErrInvalidPriority
	}
	if input.Category != "" && !models.ValidCategory(input.Category) {
		return nil, ErrInvalidCategory
	}

	if input.ProjectID != nil {
		if err := s.ensureProjectMember(*input.ProjectID, input.UserID); err != nil {
			return nil, err
		}
	}

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}

	todo := &models.Todo{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Completed:   false,
		DueDate:     input.DueDate,
		Priority:    input.Priority,
		Tags:        tags,
		Category:    input.Category,
		UserID:      input.UserID,
		ProjectID:   input.ProjectID,
	}

	if err := s.todoRepo.Create(todo); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	s.publishChange(ctx, todo)
	return todo, nil
}

// UpdateTodoInput represents a partial update. Pointer fields are
// applied when present; the Clear flags reset optional fields.
type UpdateTodoInput struct {
	Title         *string
	Description   *string
	Completed     *bool
	DueDate       *time.Time
	ClearDueDate  bool
	Priority      *models.Priority
	Tags          []string
	Category      *string
	AssignedTo    *string
	ClearAssignee bool
}

// UpdateTodo updates a todo. The creator or, for project todos, any
// project member may update.
func (s *TodoService) UpdateTodo(ctx context.Context, todoID, actorID string, input UpdateTodoInput) (*models.Todo, error) {
	todo, err := s.findForWrite(todoID, actorID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleEmpty
		}
		todo.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		todo.Description = *input.Description
	}
	if input.Completed != nil {
		todo.Completed = *input.Completed
	}
	if input.ClearDueDate {
		todo.DueDate = nil
	} else if input.DueDate != nil {
		todo.DueDate = input.DueDate
	}
	if input.Priority != nil {
		if *input.Priority != "" && !models.ValidPriority(*input.Priority) {
			return nil, ErrInvalidPriority
		}
		todo.Priority = *input.Priority
	}
	if input.Tags != nil {
		todo.Tags = input.Tags
	}
	if input.Category != nil {
		if *input.Category != "" && !models.ValidCategory(*input.Category) {
			return nil, ErrInvalidCategory
		}
		todo.Category = *input.Category
	}
	if input.ClearAssignee {
		todo.AssignedTo = nil
	} else if input.AssignedTo != nil {
		if err := s.validateAssignee(todo, *input.AssignedTo); err != nil {
			return nil, err
		}
		todo.AssignedTo = input.AssignedTo
	}

	if err := s.todoRepo.Update(todo); err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}

	s.publishChange(ctx, todo)
	return todo, nil
}

// DeleteTodo deletes a todo. Only the creator may delete.
func (s *TodoService) DeleteTodo(ctx context.Context, todoID, actorID string) error {
	todo, err := s.todoRepo.FindByID(todoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTodoNotFound
		}
		return fmt.Errorf("failed to find todo: %w", err)
	}

	if todo.UserID != actorID {
		return ErrNotTodoOwner
	}

	if err := s.todoRepo.Delete(todoID); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	s.publishChange(ctx, todo)
	return nil
}

// ToggleTodo flips the completed flag.
func (s *TodoService) ToggleTodo(ctx context.Context, todoID, actorID string) (*models.Todo, error) {
	todo, err := s.findForWrite(todoID, actorID)
	if err != nil {
		return nil, err
	}

	todo.Completed = !todo.Completed

	if err := s.todoRepo.Update(todo); err != nil {
		return nil, fmt.Errorf("failed to toggle todo: %w", err)
	}

	s.publishChange(ctx, todo)
	return todo, nil
}

// AssignTodo assigns the todo to a user, who must share the todo's
// scope: the creator for personal todos, a project member otherwise.
func (s *TodoService) AssignTodo(ctx context.Context, todoID, actorID, assigneeID string) (*models.Todo, error) {
	todo, err := s.findForWrite(todoID, actorID)
	if err != nil {
		return nil, err
	}

	if err := s.validateAssignee(todo, assigneeID); err != nil {
		return nil, err
	}

	todo.AssignedTo = &assigneeID

	if err := s.todoRepo.Update(todo); err != nil {
		return nil, fmt.Errorf("failed to assign todo: %w", err)
	}

	s.publishChange(ctx, todo)
	return todo, nil
}

// findForWrite loads a todo and verifies write access: the creator, or
// any member of the todo's project.
func (s *TodoService) findForWrite(todoID, actorID string) (*models.Todo, error) {
	todo, err := s.todoRepo.FindByID(todoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("failed to find todo: %w", err)
	}

	if todo.UserID == actorID {
		return todo, nil
	}
	if todo.ProjectID != nil {
		if _, err := s.projectRepo.FindMember(*todo.ProjectID, actorID); err == nil {
			return todo, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to verify project membership: %w", err)
		}
	}

	return nil, ErrTodoPermissionDenied
}

func (s *TodoService) validateAssignee(todo *models.Todo, assigneeID string) error {
	if todo.ProjectID == nil {
		if assigneeID != todo.UserID {
			return ErrInvalidAssignee
		}
		return nil
	}

	if _, err := s.projectRepo.FindMember(*todo.ProjectID, assigneeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidAssignee
		}
		return fmt.Errorf("failed to verify assignee membership: %w", err)
	}
	return nil
}

// VerifyScopeAccess checks that the user may read a scope: personal
// scope is always readable by its user, project scope requires
// membership.
func (s *TodoService) VerifyScopeAccess(userID, projectID string) error {
	if projectID == "" {
		return nil
	}
	return s.ensureProjectMember(projectID, userID)
}

func (s *TodoService) ensureProjectMember(projectID, userID string) error {
	if _, err := s.projectRepo.FindMember(projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotProjectMember
		}
		return fmt.Errorf("failed to verify project membership: %w", err)
	}
	return nil
}

func (s *TodoService) publishChange(ctx context.Context, todo *models.Todo) {
	if s.publisher == nil {
		return
	}

	ev := watch.Event{Collection: watch.CollectionTodos, UserID: todo.UserID}
	if todo.ProjectID != nil {
		ev.ProjectID = *todo.ProjectID
	}

	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Printf("todo service: failed to publish todos event: %v", err)
	}
}
