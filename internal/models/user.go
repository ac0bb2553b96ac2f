package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string         `gorm:"type:varchar(36);primarykey" json:"id"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	DisplayName  string         `gorm:"type:varchar(255)" json:"display_name,omitempty"`
	AvatarURL    string         `gorm:"type:varchar(512)" json:"avatar_url,omitempty"`
	PasswordHash string         `gorm:"type:varchar(255)" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Todos       []Todo          `gorm:"foreignKey:UserID" json:"-"`
	Memberships []ProjectMember `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
