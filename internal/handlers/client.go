package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/creatorflow/creatorflow/auth"
	"github.com/creatorflow/creatorflow/httpx"
	"github.com/creatorflow/creatorflow/internal/models"
	"github.com/creatorflow/creatorflow/validation"
	"gorm.io/gorm"
)

type ClientHandler struct {
	db *gorm.DB
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{db: db}
}

type clientResponse struct {
	models.Client
	ProjectsCount int64 `json:"projects_count"`
}

type clientReq struct {
	Name             *string  `json:"name"`
	Email            *string  `json:"email"`
	Phone            *string  `json:"phone"`
	Company          *string  `json:"company"`
	Website          *string  `json:"website"`
	Address          *string  `json:"address"`
	Notes            *string  `json:"notes"`
	HourlyRate       *float64 `json:"hourly_rate"`
	Currency         *string  `json:"currency"`
	PaymentTermsDays *int     `json:"payment_terms_days"`
	Status           *string  `json:"status"`
}

func (req *clientReq) apply(c *models.Client, v validation.Violations) {
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		c.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
	if req.Company != nil {
		c.Company = *req.Company
	}
	if req.Website != nil {
		c.Website = *req.Website
	}
	if req.Address != nil {
		c.Address = *req.Address
	}
	if req.Notes != nil {
		c.Notes = *req.Notes
	}
	if req.HourlyRate != nil {
		validation.NonNegativeFloat("hourly_rate", *req.HourlyRate, v)
		c.HourlyRate = *req.HourlyRate
	}
	if req.Currency != nil {
		c.Currency = *req.Currency
	}
	if req.PaymentTermsDays != nil {
		validation.RangeInt("payment_terms_days", *req.PaymentTermsDays, 0, 365, v)
		c.PaymentTermsDays = *req.PaymentTermsDays
	}
	if req.Status != nil {
		validation.OneOf("status", *req.Status, models.ClientStatuses, v)
		c.Status = models.ClientStatus(*req.Status)
	}
	validation.Required("name", c.Name, v)
}

// List: GET /clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	limit, offset := pagination(r)
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	dbq := h.db.Where("user_id = ?", userID)
	if q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(company) LIKE ?", like, like)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}

	var total int64
	dbq.Model(&models.Client{}).Count(&total)

	var clients []models.Client
	if err := dbq.Order("name").Limit(limit).Offset(offset).Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_clients", nil)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"items": clients, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req clientReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	client := models.Client{
		UserID:           userID,
		Currency:         "USD",
		PaymentTermsDays: 30,
		Status:           models.ClientStatusProspect,
	}
	v := make(validation.Violations)
	req.apply(&client, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	if err := h.db.Create(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_client", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

// Get: GET /clients/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var client models.Client
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &client) {
		return
	}

	// Project count is a query-time back-reference, never a stored field.
	var projectsCount int64
	h.db.Model(&models.Project{}).Where("client_id = ? AND user_id = ?", client.ID, userID).Count(&projectsCount)

	httpx.JSON(w, http.StatusOK, clientResponse{Client: client, ProjectsCount: projectsCount})
}

// Update: PUT /clients/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var client models.Client
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &client) {
		return
	}

	var req clientReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	req.apply(&client, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	if err := h.db.Save(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_client", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

// Delete: DELETE /clients/{id}
// Rejected while the client has any project still in planning, active or
// on-hold.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var client models.Client
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &client) {
		return
	}

	var blocking int64
	h.db.Model(&models.Project{}).
		Where("client_id = ? AND user_id = ? AND status IN ?", client.ID, userID, models.BlockingProjectStatuses).
		Count(&blocking)
	if blocking > 0 {
		httpx.JSONError(w, http.StatusConflict, "client_has_active_projects", nil)
		return
	}

	if err := h.db.Delete(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_client", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
