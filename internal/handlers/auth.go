package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/mlindgren/collab-todo-api/internal/constants"
	"github.com/mlindgren/collab-todo-api/internal/dto"
	apierrors "github.com/mlindgren/collab-todo-api/internal/errors"
	"github.com/mlindgren/collab-todo-api/internal/middleware"
	"github.com/mlindgren/collab-todo-api/internal/services"
	"github.com/mlindgren/collab-todo-api/internal/utils"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService   *services.AuthService
	googleService *services.GoogleAuthService
	baseURL       string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, googleService *services.GoogleAuthService, baseURL string) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		googleService: googleService,
		baseURL:       baseURL,
	}
}

// Signup registers a new password-based user.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Email       string `json:"email" binding:"required,email"`
		Password    string `json:"password" binding:"required"`
		DisplayName string `json:"display_name" binding:"max=255"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Signup(services.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	if err := h.saveSession(c, user.ID); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	if err := h.saveSession(c, user.ID); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.authService.GetUser(userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// GoogleLogin starts the Google sign-in round trip.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if !h.googleService.Enabled() {
		apierrors.RespondWithError(c, http.StatusNotImplemented,
			apierrors.NewAPIError(apierrors.ErrCodeInternalError, "Google sign-in is not configured"))
		return
	}

	state, err := utils.GenerateStateToken()
	if err != nil {
		apierrors.InternalError(c, "Failed to generate state token")
		return
	}

	session := sessions.Default(c)
	session.Set(constants.OAuthStateCookie, state)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.Redirect(http.StatusFound, h.googleService.AuthCodeURL(state))
}

// GoogleCallback finishes the Google sign-in round trip: it verifies
// the state token, resolves the code to an identity, and upserts the
// user record before starting the session.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	session := sessions.Default(c)

	expectedState, _ := session.Get(constants.OAuthStateCookie).(string)
	session.Delete(constants.OAuthStateCookie)

	if expectedState == "" || c.Query("state") != expectedState {
		apierrors.BadRequest(c, "Invalid state token")
		return
	}

	code := c.Query("code")
	if code == "" {
		apierrors.BadRequest(c, "Missing authorization code")
		return
	}

	identity, err := h.googleService.Exchange(c.Request.Context(), code)
	if err != nil {
		apierrors.Unauthorized(c, "Google sign-in failed")
		return
	}

	user, err := h.authService.SignInExternal(*identity)
	if err != nil {
		apierrors.InternalError(c, "Failed to sign in")
		return
	}

	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.Redirect(http.StatusFound, h.baseURL)
}

func (h *AuthHandler) saveSession(c *gin.Context, userID string) error {
	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, userID)
	return session.Save()
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.Conflict(c, "", err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.RespondWithError(c, http.StatusUnauthorized,
			apierrors.NewAPIError(apierrors.ErrCodeInvalidCredentials, err.Error()))
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, apierrors.ErrCodeUserNotFound, err.Error())
	case errors.Is(err, services.ErrFailedToHashPassword):
		apierrors.InternalError(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
