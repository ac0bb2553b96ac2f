package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project groups todos shared between members. MembersIDs is the flat,
// canonical membership set used for queries; Members carries the
// denormalized role and join-time detail and must stay in sync with it.
type Project struct {
	ID          string         `gorm:"type:varchar(36);primarykey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	OwnerID     string         `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	MembersIDs  []string       `gorm:"serializer:json" json:"members_ids"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
	Todos   []Todo          `gorm:"foreignKey:ProjectID" json:"-"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// AfterFind defaults the member id set to empty for records written
// before the flat set existed.
func (p *Project) AfterFind(tx *gorm.DB) error {
	if p.MembersIDs == nil {
		p.MembersIDs = []string{}
	}
	return nil
}

// HasMember reports whether userID is in the flat membership set.
func (p *Project) HasMember(userID string) bool {
	for _, id := range p.MembersIDs {
		if id == userID {
			return true
		}
	}
	return false
}
