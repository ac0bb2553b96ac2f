package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationRejected InvitationStatus = "REJECTED"
	InvitationExpired  InvitationStatus = "EXPIRED"
)

// ProjectInvitation is written once with status PENDING and transitions
// at most once when the recipient responds. ProjectName is denormalized
// for display. ExpiresAt is stored but not enforced.
type ProjectInvitation struct {
	ID          string           `gorm:"type:varchar(36);primarykey" json:"id"`
	ProjectID   string           `gorm:"type:varchar(36);not null;index" json:"project_id"`
	ProjectName string           `gorm:"type:varchar(255);not null" json:"project_name"`
	FromUserID  string           `gorm:"type:varchar(36);not null" json:"from_user_id"`
	ToUserID    string           `gorm:"type:varchar(36);not null;index" json:"to_user_id"`
	Status      InvitationStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	ExpiresAt   time.Time        `json:"expires_at"`

	// Relations
	FromUser User `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUser   User `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`
}

func (i *ProjectInvitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
