package constants

import "time"

// Session
const (
	SessionCookieName = "todo_session"
	ContextKeyUserID  = "user_id"
)

// Auth
const (
	MinPasswordLength = 8
	OAuthStateCookie  = "oauth_state"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// InvitationValidity is how long a project invitation stays actionable.
// The expiry is stored on the invitation but never actively enforced.
const InvitationValidity = 7 * 24 * time.Hour
