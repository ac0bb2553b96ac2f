package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mlindgren/collab-todo-api/internal/constants"
	"github.com/mlindgren/collab-todo-api/internal/dto"
	"github.com/mlindgren/collab-todo-api/internal/models"
	"github.com/mlindgren/collab-todo-api/internal/repository"
	"github.com/mlindgren/collab-todo-api/internal/services"
	"github.com/mlindgren/collab-todo-api/internal/watch"
)

// TodoHandlerTestSuite defines the test suite for TodoHandler
type TodoHandlerTestSuite struct {
	suite.Suite
	db          *gorm.DB
	handler     *TodoHandler
	todoService *services.TodoService
	userRepo    repository.UserRepository
	projectRepo repository.ProjectRepository
}

// SetupTest runs before each test
func (suite *TodoHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.ProjectInvitation{},
		&models.Todo{},
	)
	suite.Require().NoError(err)

	suite.userRepo = repository.NewUserRepository(suite.db)
	todoRepo := repository.NewTodoRepository(suite.db)
	suite.projectRepo = repository.NewProjectRepository(suite.db)
	bus := watch.NewMemoryBus()

	suite.todoService = services.NewTodoService(todoRepo, suite.projectRepo, bus)
	suite.handler = NewTodoHandler(suite.todoService, nil)

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *TodoHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TodoHandlerTestSuite) createTestUser(email string) *models.User {
	user := &models.User{Email: email, DisplayName: email}
	suite.Require().NoError(suite.userRepo.Create(user))
	return user
}

func (suite *TodoHandlerTestSuite) createTestTodo(title, userID string) *models.Todo {
	todo, err := suite.todoService.CreateTodo(context.Background(), services.CreateTodoInput{
		Title:  title,
		UserID: userID,
	})
	suite.Require().NoError(err)
	return todo
}

// Helper function to create authenticated context
func (suite *TodoHandlerTestSuite) createAuthContext(method, url string, body []byte, userID string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(constants.ContextKeyUserID, userID)

	return c, w
}

func (suite *TodoHandlerTestSuite) TestListTodos_Success() {
	user := suite.createTestUser("test@example.com")
	suite.createTestTodo("First", user.ID)
	suite.createTestTodo("Second", user.ID)

	c, w := suite.createAuthContext("GET", "/api/todos", nil, user.ID)

	suite.handler.ListTodos(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.TodoListResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), response.Todos, 2)
	assert.EqualValues(suite.T(), 2, response.Progress.Total)
	assert.EqualValues(suite.T(), 0, response.Progress.Completed)
	assert.EqualValues(suite.T(), 2, response.Pagination.Total)
}

func (suite *TodoHandlerTestSuite) TestListTodos_Unauthorized() {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/todos", nil)
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	suite.handler.ListTodos(c)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *TodoHandlerTestSuite) TestListTodos_CompletedFilter() {
	user := suite.createTestUser("test@example.com")
	done := suite.createTestTodo("Done", user.ID)
	suite.createTestTodo("Open", user.ID)

	_, err := suite.todoService.ToggleTodo(context.Background(), done.ID, user.ID)
	suite.Require().NoError(err)

	c, w := suite.createAuthContext("GET", "/api/todos?completed=true", nil, user.ID)

	suite.handler.ListTodos(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.TodoListResponse
	err = json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), response.Todos, 1)
	assert.Equal(suite.T(), "Done", response.Todos[0].Title)
	// Progress still counts the whole scope.
	assert.EqualValues(suite.T(), 2, response.Progress.Total)
	assert.EqualValues(suite.T(), 1, response.Progress.Completed)
}

func (suite *TodoHandlerTestSuite) TestListTodos_InvalidSort() {
	user := suite.createTestUser("test@example.com")

	c, w := suite.createAuthContext("GET", "/api/todos?sort=bogus", nil, user.ID)

	suite.handler.ListTodos(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *TodoHandlerTestSuite) TestListTodos_ProjectScopeRequiresMembership() {
	user := suite.createTestUser("test@example.com")
	outsider := suite.createTestUser("outsider@example.com")

	project := &models.Project{Name: "Alpha", OwnerID: user.ID}
	owner := &models.ProjectMember{UserID: user.ID, Role: models.RoleOwner}
	suite.Require().NoError(suite.projectRepo.CreateWithOwner(project, owner))

	c, w := suite.createAuthContext("GET", "/api/todos?project_id="+project.ID, nil, outsider.ID)

	suite.handler.ListTodos(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *TodoHandlerTestSuite) TestCreateTodo_Success() {
	user := suite.createTestUser("test@example.com")

	body, _ := json.Marshal(map[string]interface{}{
		"title":    "New Todo",
		"priority": "high",
		"category": "work",
		"tags":     []string{"urgent"},
	})
	c, w := suite.createAuthContext("POST", "/api/todos", body, user.ID)

	suite.handler.CreateTodo(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response dto.TodoDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "New Todo", response.Title)
	assert.Equal(suite.T(), models.PriorityHigh, response.Priority)
	assert.False(suite.T(), response.Completed)
	assert.Nil(suite.T(), response.ProjectID)
	assert.Equal(suite.T(), []string{"urgent"}, response.Tags)
}

func (suite *TodoHandlerTestSuite) TestCreateTodo_MissingTitle() {
	user := suite.createTestUser("test@example.com")

	body, _ := json.Marshal(map[string]string{"description": "no title"})
	c, w := suite.createAuthContext("POST", "/api/todos", body, user.ID)

	suite.handler.CreateTodo(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *TodoHandlerTestSuite) TestUpdateTodo_Success() {
	user := suite.createTestUser("test@example.com")
	todo := suite.createTestTodo("Original", user.ID)

	body, _ := json.Marshal(map[string]interface{}{
		"title":    "Renamed",
		"category": "personal",
	})
	c, w := suite.createAuthContext("PATCH", "/api/todos/"+todo.ID, body, user.ID)
	c.Params = gin.Params{{Key: "id", Value: todo.ID}}

	suite.handler.UpdateTodo(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.TodoDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Renamed", response.Title)
	assert.Equal(suite.T(), "personal", response.Category)
}

func (suite *TodoHandlerTestSuite) TestUpdateTodo_NotFound() {
	user := suite.createTestUser("test@example.com")

	body, _ := json.Marshal(map[string]string{"title": "Renamed"})
	c, w := suite.createAuthContext("PATCH", "/api/todos/missing", body, user.ID)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	suite.handler.UpdateTodo(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *TodoHandlerTestSuite) TestToggleTodo_Success() {
	user := suite.createTestUser("test@example.com")
	todo := suite.createTestTodo("Toggle me", user.ID)

	c, w := suite.createAuthContext("POST", "/api/todos/"+todo.ID+"/toggle", nil, user.ID)
	c.Params = gin.Params{{Key: "id", Value: todo.ID}}

	suite.handler.ToggleTodo(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.TodoDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), response.Completed)
}

func (suite *TodoHandlerTestSuite) TestDeleteTodo_Success() {
	user := suite.createTestUser("test@example.com")
	todo := suite.createTestTodo("Delete me", user.ID)

	c, w := suite.createAuthContext("DELETE", "/api/todos/"+todo.ID, nil, user.ID)
	c.Params = gin.Params{{Key: "id", Value: todo.ID}}

	suite.handler.DeleteTodo(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var count int64
	suite.db.Model(&models.Todo{}).Count(&count)
	assert.EqualValues(suite.T(), 0, count)
}

func (suite *TodoHandlerTestSuite) TestDeleteTodo_NotCreator() {
	user := suite.createTestUser("test@example.com")
	other := suite.createTestUser("other@example.com")
	todo := suite.createTestTodo("Mine", user.ID)

	c, w := suite.createAuthContext("DELETE", "/api/todos/"+todo.ID, nil, other.ID)
	c.Params = gin.Params{{Key: "id", Value: todo.ID}}

	suite.handler.DeleteTodo(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *TodoHandlerTestSuite) TestAssignTodo_PersonalSelf() {
	user := suite.createTestUser("test@example.com")
	todo := suite.createTestTodo("Assign me", user.ID)

	body, _ := json.Marshal(map[string]string{"user_id": user.ID})
	c, w := suite.createAuthContext("POST", "/api/todos/"+todo.ID+"/assign", body, user.ID)
	c.Params = gin.Params{{Key: "id", Value: todo.ID}}

	suite.handler.AssignTodo(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.TodoDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	suite.Require().NotNil(response.AssignedTo)
	assert.Equal(suite.T(), user.ID, *response.AssignedTo)
}

func TestTodoHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TodoHandlerTestSuite))
}
