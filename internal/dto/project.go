package dto

import (
	"time"

	"github.com/mlindgren/collab-todo-api/internal/models"
)

// ProjectMemberDTO represents a member in a project
type ProjectMemberDTO struct {
	UserID   string             `json:"user_id"`
	Role     models.ProjectRole `json:"role"`
	JoinedAt time.Time          `json:"joined_at"`
	User     *UserDTO           `json:"user,omitempty"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	OwnerID     string             `json:"owner_id"`
	MembersIDs  []string           `json:"members_ids"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Members     []ProjectMemberDTO `json:"members,omitempty"`
}

// InvitationDTO represents a project invitation in API responses
type InvitationDTO struct {
	ID          string                  `json:"id"`
	ProjectID   string                  `json:"project_id"`
	ProjectName string                  `json:"project_name"`
	FromUserID  string                  `json:"from_user_id"`
	ToUserID    string                  `json:"to_user_id"`
	Status      models.InvitationStatus `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	ExpiresAt   time.Time               `json:"expires_at"`
}

// ToProjectMemberDTO converts a member to DTO
func ToProjectMemberDTO(member models.ProjectMember) ProjectMemberDTO {
	dto := ProjectMemberDTO{
		UserID:   member.UserID,
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
	if member.User.ID != "" {
		user := ToUserDTO(member.User)
		dto.User = &user
	}
	return dto
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		OwnerID:     project.OwnerID,
		MembersIDs:  project.MembersIDs,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}

	if dto.MembersIDs == nil {
		dto.MembersIDs = []string{}
	}

	if len(project.Members) > 0 {
		dto.Members = make([]ProjectMemberDTO, len(project.Members))
		for i, member := range project.Members {
			dto.Members[i] = ToProjectMemberDTO(member)
		}
	}

	return dto
}

// ToProjectDTOs converts a snapshot of projects
func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	dtos := make([]ProjectDTO, len(projects))
	for i, project := range projects {
		dtos[i] = ToProjectDTO(project)
	}
	return dtos
}

// ToInvitationDTO converts a ProjectInvitation model to InvitationDTO
func ToInvitationDTO(inv models.ProjectInvitation) InvitationDTO {
	return InvitationDTO{
		ID:          inv.ID,
		ProjectID:   inv.ProjectID,
		ProjectName: inv.ProjectName,
		FromUserID:  inv.FromUserID,
		ToUserID:    inv.ToUserID,
		Status:      inv.Status,
		CreatedAt:   inv.CreatedAt,
		ExpiresAt:   inv.ExpiresAt,
	}
}

// ToInvitationDTOs converts a snapshot of invitations
func ToInvitationDTOs(invitations []models.ProjectInvitation) []InvitationDTO {
	dtos := make([]InvitationDTO, len(invitations))
	for i, inv := range invitations {
		dtos[i] = ToInvitationDTO(inv)
	}
	return dtos
}
