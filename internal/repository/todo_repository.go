package repository

import (
	"github.com/mlindgren/collab-todo-api/internal/database"
	"github.com/mlindgren/collab-todo-api/internal/models"
	"github.com/mlindgren/collab-todo-api/internal/query"
	"github.com/mlindgren/collab-todo-api/internal/utils"
	"gorm.io/gorm"
)

// GormTodoRepository is a GORM implementation of TodoRepository
type GormTodoRepository struct {
	db *gorm.DB
}

// NewTodoRepository creates a new TodoRepository
func NewTodoRepository(db *gorm.DB) TodoRepository {
	return &GormTodoRepository{db: db}
}

// Create creates a new todo
func (r *GormTodoRepository) Create(todo *models.Todo) error {
	return r.db.Create(todo).Error
}

// FindByID finds a todo by ID with optional preloading
func (r *GormTodoRepository) FindByID(id string, preload ...string) (*models.Todo, error) {
	var todo models.Todo
	q := r.db

	for _, p := range preload {
		q = q.Preload(p)
	}

	if err := q.First(&todo, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &todo, nil
}

// List runs a composed query with optional pagination
func (r *GormTodoRepository) List(q query.TodoQuery, page, pageSize int) ([]models.Todo, int64, error) {
	var todos []models.Todo

	base := q.Apply(r.db.Model(&models.Todo{}))

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := base
	if page > 0 && pageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.PaginationParams{
			Offset: (page - 1) * pageSize,
			Limit:  pageSize,
		}))
	}

	if err := listQuery.Preload("User").Preload("Assignee").Find(&todos).Error; err != nil {
		return nil, 0, err
	}

	return todos, total, nil
}

// Counts returns total and completed counts within the constrained set
func (r *GormTodoRepository) Counts(q query.TodoQuery) (int64, int64, error) {
	var total, completed int64

	if err := q.Apply(r.db.Model(&models.Todo{})).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := q.Apply(r.db.Model(&models.Todo{})).
		Where("todos.completed = ?", true).
		Count(&completed).Error; err != nil {
		return 0, 0, err
	}

	return total, completed, nil
}

// Update updates a todo
func (r *GormTodoRepository) Update(todo *models.Todo) error {
	return r.db.Save(todo).Error
}

// Delete soft deletes a todo
func (r *GormTodoRepository) Delete(id string) error {
	return r.db.Delete(&models.Todo{}, "id = ?", id).Error
}
