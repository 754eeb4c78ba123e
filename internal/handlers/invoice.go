package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/creatorflow/creatorflow/auth"
	"github.com/creatorflow/creatorflow/httpx"
	"github.com/creatorflow/creatorflow/internal/models"
	"github.com/creatorflow/creatorflow/internal/services"
	"github.com/creatorflow/creatorflow/validation"
	"gorm.io/gorm"
)

type InvoiceHandler struct {
	db    *gorm.DB
	stats *services.DashboardService
}

func NewInvoiceHandler(db *gorm.DB, stats *services.DashboardService) *InvoiceHandler {
	return &InvoiceHandler{db: db, stats: stats}
}

// invoiceResponse adds the read-time derived fields to an invoice.
type invoiceResponse struct {
	models.Invoice
	IsOverdue    bool `json:"is_overdue"`
	DaysUntilDue int  `json:"days_until_due"`
}

func newInvoiceResponse(inv models.Invoice, now time.Time) invoiceResponse {
	return invoiceResponse{
		Invoice:      inv,
		IsOverdue:    inv.IsOverdue(now),
		DaysUntilDue: inv.DaysUntilDue(now),
	}
}

type invoiceItemReq struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Type        string  `json:"type"`
}

type invoiceReq struct {
	ClientID           *uint            `json:"client_id"`
	ProjectID          *uint            `json:"project_id"`
	IssueDate          *time.Time       `json:"issue_date"`
	DueDate            *time.Time       `json:"due_date"`
	Status             *string          `json:"status"`
	TaxRate            *float64         `json:"tax_rate"`
	DiscountRate       *float64         `json:"discount_rate"`
	Notes              *string          `json:"notes"`
	Items              []invoiceItemReq `json:"items"`
	RecurringEnabled   *bool            `json:"recurring_enabled"`
	RecurringFrequency *string          `json:"recurring_frequency"`
	RecurringNextDate  *time.Time       `json:"recurring_next_date"`
}

// statusOnly reports whether the request changes nothing but the status.
// This is the single escape hatch out of the paid edit-lock.
func (req *invoiceReq) statusOnly() bool {
	return req.Status != nil &&
		req.ClientID == nil && req.ProjectID == nil &&
		req.IssueDate == nil && req.DueDate == nil &&
		req.TaxRate == nil && req.DiscountRate == nil &&
		req.Notes == nil && req.Items == nil &&
		req.RecurringEnabled == nil && req.RecurringFrequency == nil && req.RecurringNextDate == nil
}

func (req *invoiceReq) validate(v validation.Violations) {
	if req.Status != nil {
		validation.OneOf("status", *req.Status, models.InvoiceStatuses, v)
	}
	if req.TaxRate != nil {
		validation.Percent("tax_rate", *req.TaxRate, v)
	}
	if req.DiscountRate != nil {
		validation.Percent("discount_rate", *req.DiscountRate, v)
	}
	for _, it := range req.Items {
		validation.Required("items.description", it.Description, v)
		validation.NonNegativeFloat("items.quantity", it.Quantity, v)
		validation.NonNegativeFloat("items.rate", it.Rate, v)
	}
}

func buildItems(reqs []invoiceItemReq) []models.InvoiceItem {
	items := make([]models.InvoiceItem, 0, len(reqs))
	for i, it := range reqs {
		typ := it.Type
		if typ == "" {
			typ = "service"
		}
		items = append(items, models.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			Type:        typ,
			Position:    i,
		})
	}
	return items
}

// List: GET /invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	limit, offset := pagination(r)
	dbq := h.db.Where("user_id = ?", userID)
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	if clientID := queryInt(r, "client_id"); clientID > 0 {
		dbq = dbq.Where("client_id = ?", clientID)
	}

	var total int64
	dbq.Model(&models.Invoice{}).Count(&total)

	var invoices []models.Invoice
	if err := dbq.Preload("Client").Preload("Items").Order("created_at DESC").Limit(limit).Offset(offset).Find(&invoices).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}

	now := time.Now()
	items := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, newInvoiceResponse(inv, now))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /invoices
// The server assigns the invoice number from the per-user-per-year sequence
// and recomputes all totals; supplied totals are ignored.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req invoiceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	if req.ClientID == nil || *req.ClientID == 0 {
		v["client_id"] = "required"
	}
	req.validate(v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	// The linked client (and project, when given) must belong to the caller.
	var client models.Client
	if err := h.db.Where("id = ? AND user_id = ?", *req.ClientID, userID).First(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "client_not_found", nil)
		return
	}
	var projectID *uint
	if req.ProjectID != nil && *req.ProjectID != 0 {
		var project models.Project
		if err := h.db.Where("id = ? AND user_id = ?", *req.ProjectID, userID).First(&project).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "project_not_found", nil)
			return
		}
		projectID = &project.ID
	}

	now := time.Now()
	inv := models.Invoice{
		UserID:    userID,
		ClientID:  client.ID,
		ProjectID: projectID,
		Status:    models.InvoiceStatusDraft,
		IssueDate: now,
		Items:     buildItems(req.Items),
	}
	if req.IssueDate != nil {
		inv.IssueDate = *req.IssueDate
	}
	// Default due date follows the client's payment terms.
	inv.DueDate = inv.IssueDate.AddDate(0, 0, client.PaymentTermsDays)
	if req.DueDate != nil {
		inv.DueDate = *req.DueDate
	}
	if req.TaxRate != nil {
		inv.TaxRate = *req.TaxRate
	}
	if req.DiscountRate != nil {
		inv.DiscountRate = *req.DiscountRate
	}
	if req.Notes != nil {
		inv.Notes = *req.Notes
	}
	if req.RecurringEnabled != nil {
		inv.RecurringEnabled = *req.RecurringEnabled
	}
	if req.RecurringFrequency != nil {
		inv.RecurringFrequency = *req.RecurringFrequency
	}
	inv.RecurringNextDate = req.RecurringNextDate
	if req.Status != nil {
		services.ApplyInvoiceStatus(&inv, models.InvoiceStatus(*req.Status), now)
	}

	services.ComputeInvoiceTotals(&inv)

	// Number allocation and insert share one transaction so the sequence
	// row cannot run ahead of a failed insert.
	err := h.db.Transaction(func(tx *gorm.DB) error {
		number, err := services.NextInvoiceNumber(tx, userID, inv.IssueDate.Year())
		if err != nil {
			return err
		}
		inv.Number = number
		return tx.Create(&inv).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, newInvoiceResponse(inv, now))
}

// Get: GET /invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var inv models.Invoice
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).
		Preload("Client").Preload("Project").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("EmailHistory").
		First(&inv).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &inv) {
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceResponse(inv, time.Now()))
}

// Update: PUT /invoices/{id}
// Paid invoices are locked: the only accepted change is a status-only update
// (the way out of paid). Totals are recomputed on every accepted write.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var inv models.Invoice
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).Preload("Items").First(&inv).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &inv) {
		return
	}

	var req invoiceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	req.validate(v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	now := time.Now()

	if inv.IsPaid() {
		if !req.statusOnly() {
			httpx.JSONError(w, http.StatusConflict, "invoice_paid_locked", nil)
			return
		}
		services.ApplyInvoiceStatus(&inv, models.InvoiceStatus(*req.Status), now)
		if err := h.db.Save(&inv).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_invoice", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, newInvoiceResponse(inv, now))
		return
	}

	if req.ClientID != nil && *req.ClientID != inv.ClientID {
		var client models.Client
		if err := h.db.Where("id = ? AND user_id = ?", *req.ClientID, userID).First(&client).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "client_not_found", nil)
			return
		}
		inv.ClientID = client.ID
	}
	if req.ProjectID != nil {
		if *req.ProjectID == 0 {
			inv.ProjectID = nil
		} else {
			var project models.Project
			if err := h.db.Where("id = ? AND user_id = ?", *req.ProjectID, userID).First(&project).Error; err != nil {
				httpx.JSONError(w, http.StatusNotFound, "project_not_found", nil)
				return
			}
			inv.ProjectID = &project.ID
		}
	}
	if req.IssueDate != nil {
		inv.IssueDate = *req.IssueDate
	}
	if req.DueDate != nil {
		inv.DueDate = *req.DueDate
	}
	if req.TaxRate != nil {
		inv.TaxRate = *req.TaxRate
	}
	if req.DiscountRate != nil {
		inv.DiscountRate = *req.DiscountRate
	}
	if req.Notes != nil {
		inv.Notes = *req.Notes
	}
	if req.RecurringEnabled != nil {
		inv.RecurringEnabled = *req.RecurringEnabled
	}
	if req.RecurringFrequency != nil {
		inv.RecurringFrequency = *req.RecurringFrequency
	}
	if req.RecurringNextDate != nil {
		inv.RecurringNextDate = req.RecurringNextDate
	}
	if req.Status != nil {
		services.ApplyInvoiceStatus(&inv, models.InvoiceStatus(*req.Status), now)
	}

	replaceItems := req.Items != nil
	if replaceItems {
		inv.Items = buildItems(req.Items)
		for i := range inv.Items {
			inv.Items[i].InvoiceID = inv.ID
		}
	}
	services.ComputeInvoiceTotals(&inv)

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if replaceItems {
			if err := tx.Unscoped().Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
				return err
			}
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&inv).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceResponse(inv, now))
}

// Send: POST /invoices/{id}/send
// Records the send as an email-history append and moves the invoice to sent.
// No mail leaves the system.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var inv models.Invoice
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).Preload("Client").First(&inv).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &inv) {
		return
	}

	clientEmail := ""
	if inv.Client != nil {
		clientEmail = inv.Client.Email
	}
	entry, err := services.SendInvoice(&inv, clientEmail, time.Now())
	if err != nil {
		httpx.JSONError(w, http.StatusConflict, "invoice_paid_locked", nil)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&inv).Error; err != nil {
			return err
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_send_invoice", nil)
		return
	}

	slog.Info("invoice send recorded", "invoice", inv.Number, "sent_to", entry.SentTo)
	inv.EmailHistory = append(inv.EmailHistory, entry)
	httpx.JSON(w, http.StatusOK, newInvoiceResponse(inv, time.Now()))
}

// MarkPaid: PUT /invoices/{id}/mark-paid
// Forces status to paid; PaidDate is stamped only on the first transition.
func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var inv models.Invoice
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&inv).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &inv) {
		return
	}

	services.MarkInvoicePaid(&inv, time.Now())
	if err := h.db.Save(&inv).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, newInvoiceResponse(inv, time.Now()))
}

// Delete: DELETE /invoices/{id}
// Paid invoices cannot be deleted.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}

	var inv models.Invoice
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&inv).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !ownedOr404(w, userID, &inv) {
		return
	}
	if inv.IsPaid() {
		httpx.JSONError(w, http.StatusConflict, "invoice_paid_locked", nil)
		return
	}

	if err := h.db.Delete(&inv).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Stats: GET /invoices/stats/overview
func (h *InvoiceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	stats, err := h.stats.InvoiceStats(userID, time.Now())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_stats", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
