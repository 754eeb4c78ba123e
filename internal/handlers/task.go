package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/creatorflow/creatorflow/auth"
	"github.com/creatorflow/creatorflow/httpx"
	"github.com/creatorflow/creatorflow/internal/models"
	"github.com/creatorflow/creatorflow/internal/services"
	"github.com/creatorflow/creatorflow/validation"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db *gorm.DB
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	return &TaskHandler{db: db}
}

// taskResponse adds the read-time derived fields to a task.
type taskResponse struct {
	models.Task
	IsOverdue         bool `json:"is_overdue"`
	DaysUntilDue      int  `json:"days_until_due"`
	ChecklistProgress int  `json:"checklist_progress"`
}

func newTaskResponse(t models.Task, now time.Time) taskResponse {
	return taskResponse{
		Task:              t,
		IsOverdue:         t.IsOverdue(now),
		DaysUntilDue:      t.DaysUntilDue(now),
		ChecklistProgress: t.ChecklistProgress(),
	}
}

type taskReq struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	ProjectID      *uint      `json:"project_id"`
	Status         *string    `json:"status"`
	Priority       *string    `json:"priority"`
	Assignee       *string    `json:"assignee"`
	DueDate        *time.Time `json:"due_date"`
	EstimatedHours *float64   `json:"estimated_hours"`
	ActualHours    *float64   `json:"actual_hours"`
	IsArchived     *bool      `json:"is_archived"`
}

// List: GET /tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	limit, offset := pagination(r)
	dbq := h.db.Where("user_id = ?", userID)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		dbq = dbq.Where("lower(title) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	if projectID := queryInt(r, "project_id"); projectID > 0 {
		dbq = dbq.Where("project_id = ?", projectID)
	}
	if r.URL.Query().Get("archived") != "true" {
		dbq = dbq.Where("is_archived = ?", false)
	}

	var total int64
	dbq.Model(&models.Task{}).Count(&total)

	var tasks []models.Task
	if err := dbq.Preload("Checklist").Order("created_at DESC").Limit(limit).Offset(offset).Find(&tasks).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_tasks", nil)
		return
	}

	now := time.Now()
	items := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, newTaskResponse(t, now))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req taskReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	task := models.Task{
		UserID:   userID,
		Status:   models.TaskStatusTodo,
		Priority: models.PriorityMedium,
	}

	v := make(validation.Violations)
	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	validation.Required("title", task.Title, v)
	if req.ProjectID == nil || *req.ProjectID == 0 {
		v["project_id"] = "required"
	}
	if req.Status != nil {
		validation.OneOf("status", *req.Status, models.TaskStatuses, v)
	}
	if req.Priority != nil {
		validation.OneOf("priority", *req.Priority, models.Priorities, v)
		task.Priority = models.Priority(*req.Priority)
	}
	if req.EstimatedHours != nil {
		validation.NonNegativeFloat("estimated_hours", *req.EstimatedHours, v)
		task.EstimatedHours = *req.EstimatedHours
	}
	if req.ActualHours != nil {
		validation.NonNegativeFloat("actual_hours", *req.ActualHours, v)
		task.ActualHours = *req.ActualHours
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	// The parent project must belong to the caller.
	var project models.Project
	if err := h.db.Where("id = ? AND user_id = ?", *req.ProjectID, userID).First(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "project_not_found", nil)
		return
	}
	task.ProjectID = project.ID

	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Assignee != nil {
		task.Assignee = *req.Assignee
	}
	task.DueDate = req.DueDate
	if req.Status != nil {
		services.ApplyTaskStatus(&task, models.TaskStatus(*req.Status), time.Now())
	}

	if err := h.db.Create(&task).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_task", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, newTaskResponse(task, time.Now()))
}

// Get: GET /tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var task models.Task
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).
		Preload("Project.Client").
		Preload("Checklist", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		First(&task).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &task) {
		return
	}

	httpx.JSON(w, http.StatusOK, newTaskResponse(task, time.Now()))
}

// Update: PUT /tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var task models.Task
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&task).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &task) {
		return
	}

	var req taskReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
		validation.Required("title", task.Title, v)
	}
	if req.Status != nil {
		validation.OneOf("status", *req.Status, models.TaskStatuses, v)
	}
	if req.Priority != nil {
		validation.OneOf("priority", *req.Priority, models.Priorities, v)
	}
	if req.EstimatedHours != nil {
		validation.NonNegativeFloat("estimated_hours", *req.EstimatedHours, v)
	}
	if req.ActualHours != nil {
		validation.NonNegativeFloat("actual_hours", *req.ActualHours, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	if req.ProjectID != nil && *req.ProjectID != task.ProjectID {
		var project models.Project
		if err := h.db.Where("id = ? AND user_id = ?", *req.ProjectID, userID).First(&project).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "project_not_found", nil)
			return
		}
		task.ProjectID = project.ID
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = models.Priority(*req.Priority)
	}
	if req.Assignee != nil {
		task.Assignee = *req.Assignee
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.EstimatedHours != nil {
		task.EstimatedHours = *req.EstimatedHours
	}
	if req.ActualHours != nil {
		task.ActualHours = *req.ActualHours
	}
	if req.IsArchived != nil {
		task.IsArchived = *req.IsArchived
	}
	if req.Status != nil && models.TaskStatus(*req.Status) != task.Status {
		services.ApplyTaskStatus(&task, models.TaskStatus(*req.Status), time.Now())
	}

	if err := h.db.Save(&task).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_task", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, newTaskResponse(task, time.Now()))
}

// Delete: DELETE /tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var task models.Task
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&task).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &task) {
		return
	}

	if err := h.db.Delete(&task).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_task", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type checklistItemReq struct {
	ID        uint   `json:"id"`
	Item      string `json:"item"`
	Completed bool   `json:"completed"`
	Position  int    `json:"position"`
}

// GetChecklist: GET /tasks/{id}/checklist
func (h *TaskHandler) GetChecklist(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var task models.Task
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).
		Preload("Checklist", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&task).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &task) {
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":    task.Checklist,
		"progress": task.ChecklistProgress(),
	})
}

// UpdateChecklist: PUT /tasks/{id}/checklist
// Replaces the checklist. Items carrying an existing id keep their original
// CompletedAt stamp while they stay completed; unchecked items lose it.
func (h *TaskHandler) UpdateChecklist(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var task models.Task
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).Preload("Checklist").First(&task).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &task) {
		return
	}

	var req struct {
		Items []checklistItemReq `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	for _, it := range req.Items {
		validation.Required("item", it.Item, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	existing := make(map[uint]models.ChecklistItem, len(task.Checklist))
	for _, item := range task.Checklist {
		existing[item.ID] = item
	}

	now := time.Now()
	next := make([]models.ChecklistItem, 0, len(req.Items))
	keep := make(map[uint]bool, len(req.Items))
	for i, it := range req.Items {
		item := models.ChecklistItem{TaskID: task.ID}
		if prev, ok := existing[it.ID]; ok {
			item = prev
			keep[it.ID] = true
		}
		item.Item = it.Item
		item.Position = i
		if it.Position != 0 {
			item.Position = it.Position
		}
		services.ApplyChecklistState(&item, it.Completed, now)
		next = append(next, item)
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range task.Checklist {
			if !keep[item.ID] {
				if err := tx.Unscoped().Delete(&models.ChecklistItem{}, item.ID).Error; err != nil {
					return err
				}
			}
		}
		for i := range next {
			if err := tx.Save(&next[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_checklist", nil)
		return
	}

	task.Checklist = next
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":    next,
		"progress": task.ChecklistProgress(),
	})
}

// AddComment: POST /tasks/{id}/comments
func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var task models.Task
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&task).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &task) {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("text", req.Text, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	author := ""
	var user models.User
	if err := h.db.First(&user, userID).Error; err == nil {
		author = user.Name
		if author == "" {
			author = user.Email
		}
	}

	comment := models.TaskComment{TaskID: task.ID, Text: req.Text, Author: author}
	if err := h.db.Create(&comment).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_add_comment", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, comment)
}
