package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mlindgren/collab-todo-api/internal/constants"
	"github.com/mlindgren/collab-todo-api/internal/models"
	"github.com/mlindgren/collab-todo-api/internal/repository"
	"github.com/mlindgren/collab-todo-api/internal/watch"
	"gorm.io/gorm"
)

var (
	ErrAuthRequired       = errors.New("authentication required")
	ErrProjectNotFound    = errors.New("project not found")
	ErrInvalidProjectName = errors.New("project name cannot be empty")
	ErrOwnerRequired      = errors.New("only the project owner can perform this action")
	ErrAlreadyMember      = errors.New("user is already a member of this project")
	ErrCannotRemoveOwner  = errors.New("cannot remove the project owner")
	ErrMemberNotFound     = errors.New("project member not found")
	ErrInvitationNotFound = errors.New("invitation not found")
)

// ProjectService provides the membership and invitation workflow.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	invRepo     repository.InvitationRepository
	userRepo    repository.UserRepository
	publisher   watch.Publisher
}

// NewProjectService creates a new ProjectService.
func NewProjectService(
	projectRepo repository.ProjectRepository,
	invRepo repository.InvitationRepository,
	userRepo repository.UserRepository,
	publisher watch.Publisher,
) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		invRepo:     invRepo,
		userRepo:    userRepo,
		publisher:   publisher,
	}
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	Name        string
	Description string
	OwnerID     string
}

// CreateProject creates a project with the caller as its sole OWNER
// member and the flat member id set seeded accordingly.
func (s *ProjectService) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	if input.OwnerID == "" {
		return nil, ErrAuthRequired
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrInvalidProjectName
	}

	project := &models.Project{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		OwnerID:     input.OwnerID,
	}

	owner := &models.ProjectMember{
		UserID:   input.OwnerID,
		Role:     models.RoleOwner,
		JoinedAt: time.Now(),
	}

	if err := s.projectRepo.CreateWithOwner(project, owner); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.publish(ctx, watch.Event{Collection: watch.CollectionProjects, ProjectID: project.ID, UserID: input.OwnerID})
	return project, nil
}

// ListProjectsForUser returns projects the user is a member of.
func (s *ProjectService) ListProjectsForUser(userID string) ([]models.Project, error) {
	projects, err := s.projectRepo.ListByMember(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProjectWithMembers returns a project and all of its members.
func (s *ProjectService) GetProjectWithMembers(projectID string) (*models.Project, []models.ProjectMember, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProjectNotFound
		}
		return nil, nil, fmt.Errorf("failed to find project: %w", err)
	}

	members, err := s.projectRepo.ListMembers(projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list project members: %w", err)
	}

	return project, members, nil
}

// InviteToProject invites a user, looked up by email, to a project. Only
// the owner may invite. Existing members are rejected; a duplicate
// pending invitation to the same recipient is not checked for.
func (s *ProjectService) InviteToProject(ctx context.Context, projectID, actorID, email string) (*models.ProjectInvitation, error) {
	if actorID == "" {
		return nil, ErrAuthRequired
	}

	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if project.OwnerID != actorID {
		return nil, ErrOwnerRequired
	}

	invited, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if project.HasMember(invited.ID) {
		return nil, ErrAlreadyMember
	}

	now := time.Now()
	invitation := &models.ProjectInvitation{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		FromUserID:  actorID,
		ToUserID:    invited.ID,
		Status:      models.InvitationPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(constants.InvitationValidity),
	}

	if err := s.invRepo.Create(invitation); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	s.publish(ctx, watch.Event{Collection: watch.CollectionInvitations, ProjectID: project.ID, UserID: invited.ID})
	return invitation, nil
}

// ListInvitationsForUser returns the user's pending invitations.
func (s *ProjectService) ListInvitationsForUser(userID string) ([]models.ProjectInvitation, error) {
	invitations, err := s.invRepo.ListPendingByRecipient(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// HandleInvitation resolves a pending invitation. Accepting grants the
// membership together with the status transition; rejecting only
// records the status. Expiry is stored but not checked here.
func (s *ProjectService) HandleInvitation(ctx context.Context, invitationID, actorID string, accept bool) (*models.ProjectInvitation, error) {
	if actorID == "" {
		return nil, ErrAuthRequired
	}

	invitation, err := s.invRepo.FindByID(invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}

	// Responding to someone else's invitation reads as not found, to
	// avoid leaking its existence.
	if invitation.ToUserID != actorID || invitation.Status != models.InvitationPending {
		return nil, ErrInvitationNotFound
	}

	if !accept {
		if err := s.invRepo.UpdateStatus(invitation.ID, models.InvitationRejected); err != nil {
			return nil, fmt.Errorf("failed to reject invitation: %w", err)
		}
		invitation.Status = models.InvitationRejected
		s.publish(ctx, watch.Event{Collection: watch.CollectionInvitations, ProjectID: invitation.ProjectID, UserID: actorID})
		return invitation, nil
	}

	project, err := s.projectRepo.FindByID(invitation.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	// Duplicate pending invitations are allowed, so the recipient may
	// already hold membership from an earlier accept. Resolve the
	// invitation without re-granting.
	if project.HasMember(actorID) {
		if err := s.invRepo.UpdateStatus(invitation.ID, models.InvitationAccepted); err != nil {
			return nil, fmt.Errorf("failed to accept invitation: %w", err)
		}
		invitation.Status = models.InvitationAccepted
		s.publish(ctx, watch.Event{Collection: watch.CollectionInvitations, ProjectID: invitation.ProjectID, UserID: actorID})
		return invitation, nil
	}

	member := &models.ProjectMember{
		ProjectID: invitation.ProjectID,
		UserID:    actorID,
		Role:      models.RoleMember,
		JoinedAt:  time.Now(),
	}

	if err := s.invRepo.Accept(invitation, member); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	invitation.Status = models.InvitationAccepted

	s.publish(ctx, watch.Event{Collection: watch.CollectionInvitations, ProjectID: invitation.ProjectID, UserID: actorID})
	s.publish(ctx, watch.Event{Collection: watch.CollectionProjects, ProjectID: invitation.ProjectID, UserID: actorID})
	return invitation, nil
}

// RemoveMember removes a non-owner member from a project. Only the
// owner may remove members, and the owner can never be removed.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, actorID, targetID string) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	if project.OwnerID != actorID {
		return ErrOwnerRequired
	}
	if targetID == project.OwnerID {
		return ErrCannotRemoveOwner
	}

	if _, err := s.projectRepo.FindMember(projectID, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find project member: %w", err)
	}

	if err := s.projectRepo.RemoveMember(projectID, targetID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.publish(ctx, watch.Event{Collection: watch.CollectionProjects, ProjectID: projectID, UserID: targetID})
	return nil
}

// DeleteProject removes the project record. Its todos are not cascaded
// or reassigned.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID, actorID string) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	if project.OwnerID != actorID {
		return ErrOwnerRequired
	}

	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.publish(ctx, watch.Event{Collection: watch.CollectionProjects, ProjectID: projectID, UserID: actorID})
	return nil
}

func (s *ProjectService) publish(ctx context.Context, ev watch.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Printf("project service: failed to publish %s event: %v", ev.Collection, err)
	}
}
