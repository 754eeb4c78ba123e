package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on-hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

var ProjectStatuses = []string{
	string(ProjectStatusPlanning),
	string(ProjectStatusActive),
	string(ProjectStatusOnHold),
	string(ProjectStatusCompleted),
	string(ProjectStatusCancelled),
}

// Priority is shared by projects and tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var Priorities = []string{
	string(PriorityLow),
	string(PriorityMedium),
	string(PriorityHigh),
	string(PriorityUrgent),
}

// Project represents a unit of client work.
// Implements the Ownable interface for ownership-based authorization.
type Project struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// UserID is the owner of this project (for multi-tenant isolation)
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// Client relationship
	ClientID uint    `gorm:"index;not null" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	Title       string        `gorm:"size:255;not null" json:"title"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	Status      ProjectStatus `gorm:"size:20;default:'planning'" json:"status"`
	Priority    Priority      `gorm:"size:20;default:'medium'" json:"priority"`

	StartDate     *time.Time `json:"start_date,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`

	// Progress is 0-100; forced to 100 when status becomes completed.
	Progress   int  `gorm:"default:0" json:"progress"`
	IsArchived bool `gorm:"default:false;index" json:"is_archived"`
}

// GetUserID implements the Ownable interface for authorization.
func (p *Project) GetUserID() uint {
	return p.UserID
}

// IsTerminal returns true once the project can no longer become overdue.
func (p *Project) IsTerminal() bool {
	return p.Status == ProjectStatusCompleted || p.Status == ProjectStatusCancelled
}

// IsOverdue reports whether the project is past its due date and not completed.
func (p *Project) IsOverdue(now time.Time) bool {
	if p.Status == ProjectStatusCompleted || p.DueDate == nil {
		return false
	}
	return p.DueDate.Before(now)
}

// DaysUntilDue returns the number of whole days until the due date,
// rounded up. Negative when overdue, 0 when there is no due date.
func (p *Project) DaysUntilDue(now time.Time) int {
	return daysUntil(p.DueDate, now)
}

func daysUntil(due *time.Time, now time.Time) int {
	if due == nil {
		return 0
	}
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}
