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

type ProjectHandler struct {
	db *gorm.DB
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{db: db}
}

// projectResponse adds the read-time derived fields to a project.
type projectResponse struct {
	models.Project
	IsOverdue    bool `json:"is_overdue"`
	DaysUntilDue int  `json:"days_until_due"`
}

func newProjectResponse(p models.Project, now time.Time) projectResponse {
	return projectResponse{
		Project:      p,
		IsOverdue:    p.IsOverdue(now),
		DaysUntilDue: p.DaysUntilDue(now),
	}
}

type projectDetailResponse struct {
	projectResponse
	TasksCount          int64 `json:"tasks_count"`
	CompletedTasksCount int64 `json:"completed_tasks_count"`
}

type projectReq struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	ClientID    *uint      `json:"client_id"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
	Progress    *int       `json:"progress"`
	IsArchived  *bool      `json:"is_archived"`
}

// List: GET /projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	limit, offset := pagination(r)
	dbq := h.db.Where("user_id = ?", userID)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		dbq = dbq.Where("lower(title) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	if clientID := queryInt(r, "client_id"); clientID > 0 {
		dbq = dbq.Where("client_id = ?", clientID)
	}
	// Archived projects are hidden unless explicitly requested.
	if r.URL.Query().Get("archived") != "true" {
		dbq = dbq.Where("is_archived = ?", false)
	}

	var total int64
	dbq.Model(&models.Project{}).Count(&total)

	var projects []models.Project
	if err := dbq.Preload("Client").Order("created_at DESC").Limit(limit).Offset(offset).Find(&projects).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_projects", nil)
		return
	}

	now := time.Now()
	items := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		items = append(items, newProjectResponse(p, now))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req projectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	project := models.Project{
		UserID:   userID,
		Status:   models.ProjectStatusPlanning,
		Priority: models.PriorityMedium,
	}

	v := make(validation.Violations)
	if req.Title != nil {
		project.Title = strings.TrimSpace(*req.Title)
	}
	validation.Required("title", project.Title, v)
	if req.ClientID == nil || *req.ClientID == 0 {
		v["client_id"] = "required"
	}
	if req.Priority != nil {
		validation.OneOf("priority", *req.Priority, models.Priorities, v)
		project.Priority = models.Priority(*req.Priority)
	}
	if req.Status != nil {
		validation.OneOf("status", *req.Status, models.ProjectStatuses, v)
	}
	if req.Progress != nil {
		validation.RangeInt("progress", *req.Progress, 0, 100, v)
		project.Progress = *req.Progress
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	// The linked client must belong to the caller.
	var client models.Client
	if err := h.db.Where("id = ? AND user_id = ?", *req.ClientID, userID).First(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "client_not_found", nil)
		return
	}
	project.ClientID = client.ID

	if req.Description != nil {
		project.Description = *req.Description
	}
	project.StartDate = req.StartDate
	project.DueDate = req.DueDate
	if req.Status != nil {
		services.ApplyProjectStatus(&project, models.ProjectStatus(*req.Status), time.Now())
	}

	if err := h.db.Create(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_project", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, newProjectResponse(project, time.Now()))
}

// Get: GET /projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var project models.Project
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).Preload("Client").First(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &project) {
		return
	}

	// Task counts are query-time aggregations, not stored fields.
	var tasksCount, completedTasksCount int64
	h.db.Model(&models.Task{}).Where("project_id = ?", project.ID).Count(&tasksCount)
	h.db.Model(&models.Task{}).Where("project_id = ? AND status = ?", project.ID, models.TaskStatusCompleted).Count(&completedTasksCount)

	httpx.JSON(w, http.StatusOK, projectDetailResponse{
		projectResponse:     newProjectResponse(project, time.Now()),
		TasksCount:          tasksCount,
		CompletedTasksCount: completedTasksCount,
	})
}

// Update: PUT /projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var project models.Project
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &project) {
		return
	}

	var req projectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	if req.Title != nil {
		project.Title = strings.TrimSpace(*req.Title)
		validation.Required("title", project.Title, v)
	}
	if req.Priority != nil {
		validation.OneOf("priority", *req.Priority, models.Priorities, v)
	}
	if req.Status != nil {
		validation.OneOf("status", *req.Status, models.ProjectStatuses, v)
	}
	if req.Progress != nil {
		validation.RangeInt("progress", *req.Progress, 0, 100, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	if req.ClientID != nil && *req.ClientID != project.ClientID {
		var client models.Client
		if err := h.db.Where("id = ? AND user_id = ?", *req.ClientID, userID).First(&client).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "client_not_found", nil)
			return
		}
		project.ClientID = client.ID
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Priority != nil {
		project.Priority = models.Priority(*req.Priority)
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate
	}
	if req.DueDate != nil {
		project.DueDate = req.DueDate
	}
	if req.Progress != nil {
		project.Progress = *req.Progress
	}
	if req.IsArchived != nil {
		project.IsArchived = *req.IsArchived
	}
	if req.Status != nil && models.ProjectStatus(*req.Status) != project.Status {
		services.ApplyProjectStatus(&project, models.ProjectStatus(*req.Status), time.Now())
	}

	if err := h.db.Save(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_project", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, newProjectResponse(project, time.Now()))
}

// Delete: DELETE /projects/{id}
// Rejected while the project still has any task.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var project models.Project
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &project) {
		return
	}

	var tasks int64
	h.db.Model(&models.Task{}).Where("project_id = ?", project.ID).Count(&tasks)
	if tasks > 0 {
		httpx.JSONError(w, http.StatusConflict, "project_has_tasks", nil)
		return
	}

	if err := h.db.Delete(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_project", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
