package repository

import (
	"github.com/mlindgren/collab-todo-api/internal/models"
	"gorm.io/gorm"
)

// GormInvitationRepository is a GORM implementation of InvitationRepository
type GormInvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new InvitationRepository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &GormInvitationRepository{db: db}
}

// Create creates a new invitation
func (r *GormInvitationRepository) Create(inv *models.ProjectInvitation) error {
	return r.db.Create(inv).Error
}

// FindByID finds an invitation by ID
func (r *GormInvitationRepository) FindByID(id string) (*models.ProjectInvitation, error) {
	var inv models.ProjectInvitation
	if err := r.db.First(&inv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListPendingByRecipient lists PENDING invitations addressed to a user
func (r *GormInvitationRepository) ListPendingByRecipient(userID string) ([]models.ProjectInvitation, error) {
	var invitations []models.ProjectInvitation
	if err := r.db.
		Where("to_user_id = ? AND status = ?", userID, models.InvitationPending).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

// UpdateStatus sets the invitation's status
func (r *GormInvitationRepository) UpdateStatus(id string, status models.InvitationStatus) error {
	return r.db.Model(&models.ProjectInvitation{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Accept marks the invitation ACCEPTED and grants the membership in one
// transaction, so a failed write cannot leave the invitation accepted
// without the membership or the reverse.
func (r *GormInvitationRepository) Accept(inv *models.ProjectInvitation, member *models.ProjectMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ProjectInvitation{}).
			Where("id = ?", inv.ID).
			Update("status", models.InvitationAccepted).Error; err != nil {
			return err
		}

		return grantMembership(tx, member)
	})
}
