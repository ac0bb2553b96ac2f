package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	// Authentication errors
	ErrCodeAuthRequired       = "AUTH_REQUIRED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// Authorization errors
	ErrCodeOwnerRequired = "OWNER_REQUIRED"
	ErrCodeForbidden     = "FORBIDDEN"

	// Validation errors
	ErrCodeInvalidInput = "INVALID_INPUT"

	// Resource errors
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeProjectNotFound    = "PROJECT_NOT_FOUND"
	ErrCodeTodoNotFound       = "TODO_NOT_FOUND"
	ErrCodeInvitationNotFound = "INVITATION_NOT_FOUND"
	ErrCodeNotFound           = "NOT_FOUND"

	// Business logic errors
	ErrCodeAlreadyMember     = "ALREADY_MEMBER"
	ErrCodeCannotRemoveOwner = "CANNOT_REMOVE_OWNER"
	ErrCodeConflict          = "CONFLICT"

	// Service errors
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeAuthRequired, message))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, code, message string) {
	if code == "" {
		code = ErrCodeForbidden
	}
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(code, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, code, message string) {
	if code == "" {
		code = ErrCodeNotFound
	}
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(code, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, message))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, code, message string) {
	if code == "" {
		code = ErrCodeConflict
	}
	if message == "" {
		message = "Resource conflict"
	}
	RespondWithError(c, http.StatusConflict, NewAPIError(code, message))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}
