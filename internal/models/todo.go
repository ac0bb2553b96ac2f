package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Todo belongs to exactly one scope: a project when ProjectID is set,
// otherwise the creating user's personal space.
type Todo struct {
	ID          string         `gorm:"type:varchar(36);primarykey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Completed   bool           `gorm:"not null;default:false" json:"completed"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	Priority    Priority       `gorm:"type:varchar(10)" json:"priority,omitempty"`
	Tags        []string       `gorm:"serializer:json" json:"tags"`
	Category    string         `gorm:"type:varchar(50)" json:"category,omitempty"`
	UserID      string         `gorm:"type:varchar(36);not null;index" json:"user_id"`
	ProjectID   *string        `gorm:"type:varchar(36);index" json:"project_id,omitempty"`
	AssignedTo  *string        `gorm:"type:varchar(36);index" json:"assigned_to,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	User     User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Assignee *User   `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	Project  Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

func (t *Todo) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AfterFind defaults the tag set to empty for records written without one.
func (t *Todo) AfterFind(tx *gorm.DB) error {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return nil
}
