package repository

import (
	"github.com/mlindgren/collab-todo-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// CreateWithOwner creates a project and its owner membership atomically
func (r *GormProjectRepository) CreateWithOwner(project *models.Project, owner *models.ProjectMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		project.MembersIDs = []string{owner.UserID}
		if err := tx.Create(project).Error; err != nil {
			return err
		}

		owner.ProjectID = project.ID
		return tx.Create(owner).Error
	})
}

// FindByID finds a project by ID with optional preloading
func (r *GormProjectRepository) FindByID(id string, preload ...string) (*models.Project, error) {
	var project models.Project
	q := r.db

	for _, p := range preload {
		q = q.Preload(p)
	}

	if err := q.First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}

	return &project, nil
}

// ListByMember lists projects the user is a member of
func (r *GormProjectRepository) ListByMember(userID string) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ?", userID).
		Preload("Members").
		Preload("Members.User").
		Order("projects.created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// Delete removes the project and its member rows. Todos keep their
// project reference; the source system never cascaded them.
func (r *GormProjectRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Project{}, "id = ?", id).Error
	})
}

// AddMember adds a member row and appends to the flat id set
func (r *GormProjectRepository) AddMember(member *models.ProjectMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return grantMembership(tx, member)
	})
}

// RemoveMember removes a member row and shrinks the flat id set
func (r *GormProjectRepository) RemoveMember(projectID, userID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).
			Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}

		var project models.Project
		if err := tx.First(&project, "id = ?", projectID).Error; err != nil {
			return err
		}

		ids := make([]string, 0, len(project.MembersIDs))
		for _, id := range project.MembersIDs {
			if id != userID {
				ids = append(ids, id)
			}
		}
		project.MembersIDs = ids

		return tx.Save(&project).Error
	})
}

// FindMember finds a specific project member
func (r *GormProjectRepository) FindMember(projectID, userID string) (*models.ProjectMember, error) {
	var member models.ProjectMember
	if err := r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists all members of a project
func (r *GormProjectRepository) ListMembers(projectID string) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	if err := r.db.Preload("User").
		Where("project_id = ?", projectID).
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// grantMembership inserts the member row and keeps the project's flat
// id set in sync. Shared with the invitation-acceptance transaction.
func grantMembership(tx *gorm.DB, member *models.ProjectMember) error {
	if err := tx.Create(member).Error; err != nil {
		return err
	}

	var project models.Project
	if err := tx.First(&project, "id = ?", member.ProjectID).Error; err != nil {
		return err
	}

	if !project.HasMember(member.UserID) {
		project.MembersIDs = append(project.MembersIDs, member.UserID)
	}

	return tx.Save(&project).Error
}
