package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

var TaskStatuses = []string{
	string(TaskStatusTodo),
	string(TaskStatusInProgress),
	string(TaskStatusReview),
	string(TaskStatusCompleted),
	string(TaskStatusCancelled),
}

// Task represents a work item inside a project.
// Implements the Ownable interface for ownership-based authorization.
type Task struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// UserID is the owner of this task (for multi-tenant isolation)
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// Parent project
	ProjectID uint     `gorm:"index;not null" json:"project_id"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Status      TaskStatus `gorm:"size:20;default:'todo'" json:"status"`
	Priority    Priority   `gorm:"size:20;default:'medium'" json:"priority"`
	Assignee    string     `gorm:"size:255" json:"assignee,omitempty"`

	DueDate       *time.Time `json:"due_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`

	EstimatedHours float64 `gorm:"type:decimal(8,2);default:0" json:"estimated_hours"`
	ActualHours    float64 `gorm:"type:decimal(8,2);default:0" json:"actual_hours"`

	IsArchived bool `gorm:"default:false;index" json:"is_archived"`

	Checklist []ChecklistItem `gorm:"foreignKey:TaskID" json:"checklist,omitempty"`
	Comments  []TaskComment   `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (t *Task) GetUserID() uint {
	return t.UserID
}

// IsTerminal returns true once the task can no longer become overdue.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled
}

// IsOverdue reports whether the task is past its due date and not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Status == TaskStatusCompleted || t.DueDate == nil {
		return false
	}
	return t.DueDate.Before(now)
}

// DaysUntilDue returns the number of whole days until the due date, rounded up.
func (t *Task) DaysUntilDue(now time.Time) int {
	return daysUntil(t.DueDate, now)
}

// ChecklistProgress returns the completion percentage of the checklist,
// rounded to the nearest integer. An empty checklist counts as 0.
func (t *Task) ChecklistProgress() int {
	if len(t.Checklist) == 0 {
		return 0
	}
	done := 0
	for _, item := range t.Checklist {
		if item.Completed {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(t.Checklist))))
}

// ChecklistItem is an ordered entry on a task's checklist.
// CompletedAt mirrors the Completed flag: stamped when an item first
// completes, cleared whenever it is unchecked.
type ChecklistItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	TaskID uint  `gorm:"index;not null" json:"task_id"`
	Task   *Task `gorm:"foreignKey:TaskID" json:"-"`

	Item        string     `gorm:"size:500;not null" json:"item"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Position for ordering
	Position int `gorm:"default:0" json:"position"`
}

// TaskComment is an append-only note on a task.
type TaskComment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	TaskID uint  `gorm:"index;not null" json:"task_id"`
	Task   *Task `gorm:"foreignKey:TaskID" json:"-"`

	Text   string `gorm:"type:text;not null" json:"text"`
	Author string `gorm:"size:255" json:"author"`
}
