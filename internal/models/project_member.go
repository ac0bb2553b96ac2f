package models

import "time"

type ProjectRole string

const (
	RoleOwner  ProjectRole = "OWNER"
	RoleMember ProjectRole = "MEMBER"
)

type ProjectMember struct {
	ProjectID string      `gorm:"type:varchar(36);primarykey" json:"project_id"`
	UserID    string      `gorm:"type:varchar(36);primarykey" json:"user_id"`
	Role      ProjectRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt  time.Time   `json:"joined_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
