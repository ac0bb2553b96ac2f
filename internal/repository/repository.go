package repository

import (
	"github.com/mlindgren/collab-todo-api/internal/models"
	"github.com/mlindgren/collab-todo-api/internal/query"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// UpsertByEmail creates the user or refreshes display name and
	// avatar on an existing record, keyed by email. Used on each
	// successful external sign-in.
	UpsertByEmail(user *models.User) (*models.User, error)

	// FindByID finds a user by ID
	FindByID(id string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)
}

// TodoRepository defines the interface for todo data access
type TodoRepository interface {
	// Create creates a new todo
	Create(todo *models.Todo) error

	// FindByID finds a todo by ID with optional preloading
	FindByID(id string, preload ...string) (*models.Todo, error)

	// List runs a composed query. page/pageSize of 0 return the full
	// result set (the watch layer always materializes snapshots whole).
	List(q query.TodoQuery, page, pageSize int) ([]models.Todo, int64, error)

	// Counts returns total and completed counts for a composed query,
	// ignoring the completed filter's complement (it counts within the
	// constrained set).
	Counts(q query.TodoQuery) (total, completed int64, err error)

	// Update updates a todo
	Update(todo *models.Todo) error

	// Delete soft deletes a todo
	Delete(id string) error
}

// ProjectRepository defines the interface for project and membership data access
type ProjectRepository interface {
	// CreateWithOwner creates a project and its owner membership
	// atomically, with the flat member id set seeded to the owner.
	CreateWithOwner(project *models.Project, owner *models.ProjectMember) error

	// FindByID finds a project by ID with optional preloading
	FindByID(id string, preload ...string) (*models.Project, error)

	// ListByMember lists projects the user is a member of
	ListByMember(userID string) ([]models.Project, error)

	// Delete removes the project and its member rows. Todos and
	// invitations referencing the project are left in place.
	Delete(id string) error

	// AddMember adds a member row and appends to the flat id set
	AddMember(member *models.ProjectMember) error

	// RemoveMember removes a member row and shrinks the flat id set
	RemoveMember(projectID, userID string) error

	// FindMember finds a specific project member
	FindMember(projectID, userID string) (*models.ProjectMember, error)

	// ListMembers lists all members of a project
	ListMembers(projectID string) ([]models.ProjectMember, error)
}

// InvitationRepository defines the interface for invitation data access
type InvitationRepository interface {
	// Create creates a new invitation
	Create(inv *models.ProjectInvitation) error

	// FindByID finds an invitation by ID
	FindByID(id string) (*models.ProjectInvitation, error)

	// ListPendingByRecipient lists PENDING invitations addressed to a user
	ListPendingByRecipient(userID string) ([]models.ProjectInvitation, error)

	// UpdateStatus sets the invitation's status
	UpdateStatus(id string, status models.InvitationStatus) error

	// Accept marks the invitation ACCEPTED and grants the membership in
	// one transaction.
	Accept(inv *models.ProjectInvitation, member *models.ProjectMember) error
}
