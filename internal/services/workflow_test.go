package services

import (
	"testing"
	"time"

	"github.com/creatorflow/creatorflow/internal/models"
)

func TestApplyProjectStatus_Complete(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	p := &models.Project{Status: models.ProjectStatusActive, Progress: 40}
	ApplyProjectStatus(p, models.ProjectStatusCompleted, now)

	if p.Status != models.ProjectStatusCompleted {
		t.Errorf("status = %s, want completed", p.Status)
	}
	if p.CompletedDate == nil || !p.CompletedDate.Equal(now) {
		t.Fatalf("CompletedDate = %v, want %v", p.CompletedDate, now)
	}
	if p.Progress != 100 {
		t.Errorf("Progress = %d, want 100", p.Progress)
	}

	// Completing again keeps the first stamp.
	ApplyProjectStatus(p, models.ProjectStatusCompleted, now.AddDate(0, 0, 5))
	if !p.CompletedDate.Equal(now) {
		t.Errorf("CompletedDate moved to %v, want %v", p.CompletedDate, now)
	}
}

func TestApplyProjectStatus_Reopen(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	p := &models.Project{Status: models.ProjectStatusActive, Progress: 40}
	ApplyProjectStatus(p, models.ProjectStatusCompleted, now)
	ApplyProjectStatus(p, models.ProjectStatusActive, now.AddDate(0, 0, 1))

	if p.Status != models.ProjectStatusActive {
		t.Errorf("status = %s, want active", p.Status)
	}
	if p.CompletedDate != nil {
		t.Errorf("CompletedDate = %v, want nil after reopening", p.CompletedDate)
	}
	// Progress stays where completion forced it; reopening does not rewind it.
	if p.Progress != 100 {
		t.Errorf("Progress = %d, want 100", p.Progress)
	}
}

func TestApplyProjectStatus_NonCompletedTransition(t *testing.T) {
	now := time.Now()
	p := &models.Project{Status: models.ProjectStatusPlanning, Progress: 10}
	ApplyProjectStatus(p, models.ProjectStatusOnHold, now)

	if p.Status != models.ProjectStatusOnHold {
		t.Errorf("status = %s, want on-hold", p.Status)
	}
	if p.CompletedDate != nil {
		t.Errorf("CompletedDate = %v, want nil", p.CompletedDate)
	}
	if p.Progress != 10 {
		t.Errorf("Progress = %d, want 10", p.Progress)
	}
}

func TestApplyTaskStatus(t *testing.T) {
	now := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)

	task := &models.Task{Status: models.TaskStatusInProgress}
	ApplyTaskStatus(task, models.TaskStatusCompleted, now)

	if task.Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", task.Status)
	}
	if task.CompletedDate == nil || !task.CompletedDate.Equal(now) {
		t.Fatalf("CompletedDate = %v, want %v", task.CompletedDate, now)
	}

	ApplyTaskStatus(task, models.TaskStatusReview, now.Add(time.Hour))
	if task.CompletedDate != nil {
		t.Errorf("CompletedDate = %v, want nil after leaving completed", task.CompletedDate)
	}
}

func TestApplyChecklistState(t *testing.T) {
	first := time.Date(2025, 5, 3, 12, 0, 0, 0, time.UTC)
	later := first.Add(2 * time.Hour)

	item := &models.ChecklistItem{Item: "Write outline"}

	ApplyChecklistState(item, true, first)
	if !item.Completed {
		t.Error("item not completed")
	}
	if item.CompletedAt == nil || !item.CompletedAt.Equal(first) {
		t.Fatalf("CompletedAt = %v, want %v", item.CompletedAt, first)
	}

	// Completing again is idempotent: the original stamp stays.
	ApplyChecklistState(item, true, later)
	if !item.CompletedAt.Equal(first) {
		t.Errorf("CompletedAt moved to %v, want %v", item.CompletedAt, first)
	}

	// Unchecking clears the stamp.
	ApplyChecklistState(item, false, later)
	if item.Completed {
		t.Error("item still completed")
	}
	if item.CompletedAt != nil {
		t.Errorf("CompletedAt = %v, want nil", item.CompletedAt)
	}
}
