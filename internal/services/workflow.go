package services

import (
	"time"

	"github.com/creatorflow/creatorflow/internal/models"
)

// Status-to-derived-state coupling for projects and tasks. These are the
// explicit mutation functions the write path calls before persisting, so the
// stamping rules stay visible and testable instead of hiding in save hooks.

// ApplyProjectStatus updates a project's status and its coupled fields.
// Entering completed stamps CompletedDate (if unset) and forces progress to
// 100. Leaving completed clears CompletedDate; progress is preserved.
func ApplyProjectStatus(p *models.Project, status models.ProjectStatus, now time.Time) {
	prev := p.Status
	p.Status = status
	if status == models.ProjectStatusCompleted {
		if p.CompletedDate == nil {
			p.CompletedDate = &now
		}
		p.Progress = 100
		return
	}
	if prev == models.ProjectStatusCompleted && p.CompletedDate != nil {
		p.CompletedDate = nil
	}
}

// ApplyTaskStatus updates a task's status and its completion timestamp.
// Same coupling rule as projects, without the progress field.
func ApplyTaskStatus(t *models.Task, status models.TaskStatus, now time.Time) {
	prev := t.Status
	t.Status = status
	if status == models.TaskStatusCompleted {
		if t.CompletedDate == nil {
			t.CompletedDate = &now
		}
		return
	}
	if prev == models.TaskStatusCompleted && t.CompletedDate != nil {
		t.CompletedDate = nil
	}
}

// ApplyChecklistState sets an item's completed flag and mirrors CompletedAt.
// Re-completing an already-completed item keeps the original stamp, so
// repeated updates are idempotent. Unchecking always clears it.
func ApplyChecklistState(item *models.ChecklistItem, completed bool, now time.Time) {
	item.Completed = completed
	if completed {
		if item.CompletedAt == nil {
			item.CompletedAt = &now
		}
		return
	}
	item.CompletedAt = nil
}
