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

// ProjectHandlerTestSuite defines the test suite for ProjectHandler
type ProjectHandlerTestSuite struct {
	suite.Suite
	db                *gorm.DB
	handler           *ProjectHandler
	invitationHandler *InvitationHandler
	projectService    *services.ProjectService
	userRepo          repository.UserRepository
}

// SetupTest runs before each test
func (suite *ProjectHandlerTestSuite) SetupTest() {
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
	projectRepo := repository.NewProjectRepository(suite.db)
	invRepo := repository.NewInvitationRepository(suite.db)
	bus := watch.NewMemoryBus()

	suite.projectService = services.NewProjectService(projectRepo, invRepo, suite.userRepo, bus)
	suite.handler = NewProjectHandler(suite.projectService, nil)
	suite.invitationHandler = NewInvitationHandler(suite.projectService, nil)

	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *ProjectHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// Helper function to create test data
func (suite *ProjectHandlerTestSuite) createTestUser(email string) *models.User {
	user := &models.User{Email: email, DisplayName: email}
	suite.Require().NoError(suite.userRepo.Create(user))
	return user
}

func (suite *ProjectHandlerTestSuite) createTestProject(name, ownerID string) *models.Project {
	project, err := suite.projectService.CreateProject(context.Background(), services.CreateProjectInput{
		Name:    name,
		OwnerID: ownerID,
	})
	suite.Require().NoError(err)
	return project
}

// Helper function to create authenticated context
func (suite *ProjectHandlerTestSuite) createAuthContext(method, url string, body []byte, userID string) (*gin.Context, *httptest.ResponseRecorder) {
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

func (suite *ProjectHandlerTestSuite) TestCreateProject_Success() {
	user := suite.createTestUser("owner@example.com")

	body, _ := json.Marshal(map[string]string{
		"name":        "Alpha",
		"description": "First project",
	})
	c, w := suite.createAuthContext("POST", "/api/projects", body, user.ID)

	suite.handler.CreateProject(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response dto.ProjectDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Alpha", response.Name)
	assert.Equal(suite.T(), user.ID, response.OwnerID)
	assert.Equal(suite.T(), []string{user.ID}, response.MembersIDs)
}

func (suite *ProjectHandlerTestSuite) TestCreateProject_MissingName() {
	user := suite.createTestUser("owner@example.com")

	body, _ := json.Marshal(map[string]string{"description": "no name"})
	c, w := suite.createAuthContext("POST", "/api/projects", body, user.ID)

	suite.handler.CreateProject(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *ProjectHandlerTestSuite) TestListProjects_Success() {
	user := suite.createTestUser("owner@example.com")
	suite.createTestProject("Alpha", user.ID)
	suite.createTestProject("Beta", user.ID)

	c, w := suite.createAuthContext("GET", "/api/projects", nil, user.ID)

	suite.handler.ListProjects(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string][]dto.ProjectDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), response["projects"], 2)
}

func (suite *ProjectHandlerTestSuite) TestInviteToProject_Success() {
	owner := suite.createTestUser("owner@example.com")
	invitee := suite.createTestUser("invitee@example.com")
	project := suite.createTestProject("Alpha", owner.ID)

	body, _ := json.Marshal(map[string]string{"email": "invitee@example.com"})
	c, w := suite.createAuthContext("POST", "/api/projects/"+project.ID+"/invitations", body, owner.ID)
	c.Params = gin.Params{{Key: "id", Value: project.ID}}

	suite.handler.InviteToProject(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response dto.InvitationDTO
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.InvitationPending, response.Status)
	assert.Equal(suite.T(), invitee.ID, response.ToUserID)
	assert.Equal(suite.T(), project.Name, response.ProjectName)
}

func (suite *ProjectHandlerTestSuite) TestInviteToProject_UnknownEmail() {
	owner := suite.createTestUser("owner@example.com")
	project := suite.createTestProject("Alpha", owner.ID)

	body, _ := json.Marshal(map[string]string{"email": "nobody@example.com"})
	c, w := suite.createAuthContext("POST", "/api/projects/"+project.ID+"/invitations", body, owner.ID)
	c.Params = gin.Params{{Key: "id", Value: project.ID}}

	suite.handler.InviteToProject(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *ProjectHandlerTestSuite) TestInviteToProject_AlreadyMember() {
	owner := suite.createTestUser("owner@example.com")
	project := suite.createTestProject("Alpha", owner.ID)

	body, _ := json.Marshal(map[string]string{"email": "owner@example.com"})
	c, w := suite.createAuthContext("POST", "/api/projects/"+project.ID+"/invitations", body, owner.ID)
	c.Params = gin.Params{{Key: "id", Value: project.ID}}

	suite.handler.InviteToProject(c)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func (suite *ProjectHandlerTestSuite) TestRespondInvitation_Accept() {
	owner := suite.createTestUser("owner@example.com")
	invitee := suite.createTestUser("invitee@example.com")
	project := suite.createTestProject("Alpha", owner.ID)

	invitation, err := suite.projectService.InviteToProject(context.Background(), project.ID, owner.ID, invitee.Email)
	suite.Require().NoError(err)

	body, _ := json.Marshal(map[string]bool{"accept": true})
	c, w := suite.createAuthContext("POST", "/api/invitations/"+invitation.ID+"/respond", body, invitee.ID)
	c.Params = gin.Params{{Key: "id", Value: invitation.ID}}

	suite.invitationHandler.RespondInvitation(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.InvitationDTO
	err = json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.InvitationAccepted, response.Status)

	project, _, err = suite.projectService.GetProjectWithMembers(project.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), []string{owner.ID, invitee.ID}, project.MembersIDs)
}

func (suite *ProjectHandlerTestSuite) TestRespondInvitation_WrongRecipient() {
	owner := suite.createTestUser("owner@example.com")
	invitee := suite.createTestUser("invitee@example.com")
	outsider := suite.createTestUser("outsider@example.com")
	project := suite.createTestProject("Alpha", owner.ID)

	invitation, err := suite.projectService.InviteToProject(context.Background(), project.ID, owner.ID, invitee.Email)
	suite.Require().NoError(err)

	body, _ := json.Marshal(map[string]bool{"accept": true})
	c, w := suite.createAuthContext("POST", "/api/invitations/"+invitation.ID+"/respond", body, outsider.ID)
	c.Params = gin.Params{{Key: "id", Value: invitation.ID}}

	suite.invitationHandler.RespondInvitation(c)

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *ProjectHandlerTestSuite) TestListInvitations_PendingOnly() {
	owner := suite.createTestUser("owner@example.com")
	invitee := suite.createTestUser("invitee@example.com")
	project := suite.createTestProject("Alpha", owner.ID)

	invitation, err := suite.projectService.InviteToProject(context.Background(), project.ID, owner.ID, invitee.Email)
	suite.Require().NoError(err)
	_, err = suite.projectService.HandleInvitation(context.Background(), invitation.ID, invitee.ID, false)
	suite.Require().NoError(err)

	c, w := suite.createAuthContext("GET", "/api/invitations", nil, invitee.ID)

	suite.invitationHandler.ListInvitations(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response map[string][]dto.InvitationDTO
	err = json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), response["invitations"])
}

func (suite *ProjectHandlerTestSuite) TestRemoveMember_CannotRemoveOwner() {
	owner := suite.createTestUser("owner@example.com")
	project := suite.createTestProject("Alpha", owner.ID)

	c, w := suite.createAuthContext("DELETE", "/api/projects/"+project.ID+"/members/"+owner.ID, nil, owner.ID)
	c.Params = gin.Params{
		{Key: "id", Value: project.ID},
		{Key: "user_id", Value: owner.ID},
	}

	suite.handler.RemoveMember(c)

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func (suite *ProjectHandlerTestSuite) TestDeleteProject_NonOwnerForbidden() {
	owner := suite.createTestUser("owner@example.com")
	member := suite.createTestUser("member@example.com")
	project := suite.createTestProject("Alpha", owner.ID)

	invitation, err := suite.projectService.InviteToProject(context.Background(), project.ID, owner.ID, member.Email)
	suite.Require().NoError(err)
	_, err = suite.projectService.HandleInvitation(context.Background(), invitation.ID, member.ID, true)
	suite.Require().NoError(err)

	c, w := suite.createAuthContext("DELETE", "/api/projects/"+project.ID, nil, member.ID)
	c.Params = gin.Params{{Key: "id", Value: project.ID}}

	suite.handler.DeleteProject(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func TestProjectHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectHandlerTestSuite))
}
