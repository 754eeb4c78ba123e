package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/creatorflow/creatorflow/internal/models"
	"github.com/creatorflow/creatorflow/internal/services"
)

func TestInvoice_Create(t *testing.T) {
	db := setupTestDB(t)
	h := NewInvoiceHandler(db, services.NewDashboardService(db))
	user := seedUser(t, db, "owner@example.com", "Owner")
	client := seedClient(t, db, user.ID)
	if err := db.Model(&client).Update("payment_terms_days", 14).Error; err != nil {
		t.Fatalf("failed to set payment terms: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(t, http.MethodPost, "/invoices", user.ID, 0, map[string]any{
		"client_id":     client.ID,
		"tax_rate":      10,
		"discount_rate": 5,
		"items": []map[string]any{
			{"description": "Design", "quantity": 2, "rate": 50},
			{"description": "Review", "quantity": 1, "rate": 30},
		},
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var resp invoiceResponse
	decodeBody(t, rec, &resp)

	wantNumber := fmt.Sprintf("INV-%d-0001", time.Now().Year())
	if resp.Number != wantNumber {
		t.Errorf("number = %q, want %q", resp.Number, wantNumber)
	}
	if resp.Status != models.InvoiceStatusDraft {
		t.Errorf("status = %s, want draft", resp.Status)
	}
	if resp.Subtotal != 130 || resp.TaxAmount != 13 || resp.DiscountAmount != 6.5 || resp.Total != 136.5 {
		t.Errorf("totals = %v/%v/%v/%v, want 130/13/6.5/136.5",
			resp.Subtotal, resp.TaxAmount, resp.DiscountAmount, resp.Total)
	}
	// Due date follows the client's payment terms when not supplied.
	wantDue := resp.IssueDate.AddDate(0, 0, 14)
	if !resp.DueDate.Equal(wantDue) {
		t.Errorf("due_date = %v, want %v", resp.DueDate, wantDue)
	}

	// Numbers keep counting per user and year.
	rec = httptest.NewRecorder()
	h.Create(rec, newRequest(t, http.MethodPost, "/invoices", user.ID, 0, map[string]any{
		"client_id": client.ID,
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("second Create status = %d, want 201", rec.Code)
	}
	decodeBody(t, rec, &resp)
	wantNumber = fmt.Sprintf("INV-%d-0002", time.Now().Year())
	if resp.Number != wantNumber {
		t.Errorf("second number = %q, want %q", resp.Number, wantNumber)
	}
}

func TestInvoice_CreateValidation(t *testing.T) {
	db := setupTestDB(t)
	h := NewInvoiceHandler(db, services.NewDashboardService(db))
	user := seedUser(t, db, "owner@example.com", "Owner")
	client := seedClient(t, db, user.ID)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing client", map[string]any{}},
		{"tax rate over 100", map[string]any{"client_id": client.ID, "tax_rate": 150}},
		{"negative discount", map[string]any{"client_id": client.ID, "discount_rate": -1}},
		{"item without description", map[string]any{
			"client_id": client.ID,
			"items":     []map[string]any{{"quantity": 1, "rate": 10}},
		}},
		{"negative quantity", map[string]any{
			"client_id": client.ID,
			"items":     []map[string]any{{"description": "x", "quantity": -1, "rate": 10}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Create(rec, newRequest(t, http.MethodPost, "/invoices", user.ID, 0, tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestInvoice_UpdateRecomputesTotals(t *testing.T) {
	db := setupTestDB(t)
	h := NewInvoiceHandler(db, services.NewDashboardService(db))
	user := seedUser(t, db, "owner@example.com", "Owner")
	client := seedClient(t, db, user.ID)
	inv := seedInvoice(t, db, user.ID, client.ID, models.InvoiceStatusDraft, "INV-2025-0001")

	rec := httptest.NewRecorder()
	h.Update(rec, newRequest(t, http.MethodPut, "/invoices/1", user.ID, inv.ID, map[string]any{
		"tax_rate": 20,
		"items": []map[string]any{
			{"description": "Retainer", "quantity": 1, "rate": 500},
			{"description": "Expenses", "quantity": 1, "rate": 100},
		},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("Update status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp invoiceResponse
	decodeBody(t, rec, &resp)
	if resp.Subtotal != 600 || resp.TaxAmount != 120 || resp.Total != 720 {
		t.Errorf("totals = %v/%v/%v, want 600/120/720", resp.Subtotal, resp.TaxAmount, resp.Total)
	}

	// Replaced items fully displace the old rows and keep request order.
	var stored []models.InvoiceItem
	if err := db.Where("invoice_id = ?", inv.ID).Order("position").Find(&stored).Error; err != nil {
		t.Fatalf("failed to load items: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored items = %d, want 2", len(stored))
	}
	if stored[0].Description != "Retainer" || stored[0].Position != 0 {
		t.Errorf("items[0] = %q at %d, want Retainer at 0", stored[0].Description, stored[0].Position)
	}
	if stored[1].Description != "Expenses" || stored[1].Position != 1 {
		t.Errorf("items[1] = %q at %d, want Expenses at 1", stored[1].Description, stored[1].Position)
	}
}

func TestInvoice_PaidLock(t *testing.T) {
	db := setupTestDB(t)
	h := NewInvoiceHandler(db, services.NewDashboardService(db))
	user := seedUser(t, db, "owner@example.com", "Owner")
	client := seedClient(t, db, user.ID)
	inv := seedInvoice(t, db, user.ID, client.ID, models.InvoiceStatusPaid, "INV-2025-0001")
	paidAt := time.Now().AddDate(0, 0, -3)
	if err := db.Model(&inv).Update("paid_date", paidAt).Error; err != nil {
		t.Fatalf("failed to set paid date: %v", err)
	}

	// Any non-status field change is rejected.
	rec := httptest.NewRecorder()
	h.Update(rec, newRequest(t, http.MethodPut, "/invoices/1", user.ID, inv.ID, map[string]any{
		"notes": "try to sneak in a change",
	}))
	if rec.Code != http.StatusConflict {
		t.Fatalf("Update status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "invoice_paid_locked" {
		t.Errorf("error = %q, want invoice_paid_locked", code)
	}

	// So is a mixed payload even when it carries a status.
	rec = httptest.NewRecorder()
	h.Update(rec, newRequest(t, http.MethodPut, "/invoices/1", user.ID, inv.ID, map[string]any{
		"status": "sent",
		"notes":  "still locked",
	}))
	if rec.Code != http.StatusConflict {
		t.Errorf("mixed Update status = %d, want 409", rec.Code)
	}

	// A status-only change is the single way out; PaidDate survives it.
	rec = httptest.NewRecorder()
	h.Update(rec, newRequest(t, http.MethodPut, "/invoices/1", user.ID, inv.ID, map[string]any{
		"status": "sent",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status-only Update status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp invoiceResponse
	decodeBody(t, rec, &resp)
	if resp.Status != models.InvoiceStatusSent {
		t.Errorf("status = %s, want sent", resp.Status)
	}
	if resp.PaidDate == nil {
		t.Error("PaidDate lost when leaving paid")
	}

	// Unlocked again: regular edits are accepted now.
	rec = httptest.NewRecorder()
	h.Update(rec, newRequest(t, http.MethodPut, "/invoices/1", user.ID, inv.ID, map[string]any{
		"notes": "finally editable",
	}))
	if rec.Code != http.StatusOK {
		t.Errorf("unlocked Update status = %d, want 200", rec.Code)
	}
}

func TestInvoice_Send(t *testing.T) {
	db := setupTestDB(t)
	h := NewInvoiceHandler(db, services.NewDashboardService(db))
	user := seedUser(t, db, "owner@example.com", "Owner")
	client := seedClient(t, db, user.ID)
	inv := seedInvoice(t, db, user.ID, client.ID, models.InvoiceStatusDraft, "INV-2025-0001")

	rec := httptest.NewRecorder()
	h.Send(rec, newRequest(t, http.MethodPost, "/invoices/1/send", user.ID, inv.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Send status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp invoiceResponse
	decodeBody(t, rec, &resp)
	if resp.Status != models.InvoiceStatusSent {
		t.Errorf("status = %s, want sent", resp.Status)
	}

	// Each send appends to the history.
	rec = httptest.NewRecorder()
	h.Send(rec, newRequest(t, http.MethodPost, "/invoices/1/send", user.ID, inv.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("second Send status = %d, want 200", rec.Code)
	}

	var history []models.InvoiceEmail
	if err := db.Where("invoice_id = ?", inv.ID).Find(&history).Error; err != nil {
		t.Fatalf("failed to load email history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("email history entries = %d, want 2", len(history))
	}
	if history[0].SentTo != client.Email {
		t.Errorf("sent_to = %q, want %q", history[0].SentTo, client.Email)
	}
	if history[0].Subject != "Invoice INV-2025-0001" {
		t.Errorf("subject = %q", history[0].Subject)
	}
}

func TestInvoice_SendPaidRejected(t *testing.T) {
	db := setupTestDB(t)
	h := NewInvoiceHandler(db, services.NewDashboardService(db))
	user := seedUser(t, db, "owner@example.com", "Owner")
	client := seedClient(t, db, user.ID)
	inv := seedInvoice(t, db, user.ID, client.ID, models.InvoiceStatusPaid, "INV-2025-0001")

	rec := httptest.NewRecorder()
	h.Send(rec, newRequest(t, http.MethodPost, "/invoices/1/send", user.ID, inv.ID, nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("Send status = %d, want 409", rec.Code)
	}

	var count int64
	db.Model(&models.InvoiceEmail{}).Where("invoice_id = ?", inv.ID).Count(&count)
	if count != 0 {
		t.Errorf("email history entries = %d, want 0", count)
	}
}

func TestInvoice_MarkPaidIdempotentStamp(t *testing.T) {
	db := setupTestDB(t)
	h := NewInvoiceHandler(db, services.NewDashboardService(db))
	user := seedUser(t, db, "owner@example.com", "Owner")
	client := seedClient(t, db, user.ID)
	inv := seedInvoice(t, db, user.ID, client.ID, models.InvoiceStatusSent, "INV-2025-0001")

	rec := httptest.NewRecorder()
	h.MarkPaid(rec, newRequest(t, http.MethodPut, "/invoices/1/mark-paid", user.ID, inv.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("MarkPaid status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var first invoiceResponse
	decodeBody(t, rec, &first)
	if first.Status != models.InvoiceStatusPaid || first.PaidDate == nil {
		t.Fatalf("after MarkPaid: status = %s, paid_date = %v", first.Status, first.PaidDate)
	}

	rec = httptest.NewRecorder()
	h.MarkPaid(rec, newRequest(t, http.MethodPut, "/invoices/1/mark-paid", user.ID, inv.ID, nil))
	var second invoiceResponse
	decodeBody(t, rec, &second)
	if second.PaidDate == nil || !second.PaidDate.Equal(*first.PaidDate) {
		t.Errorf("PaidDate moved from %v to %v", first.PaidDate, second.PaidDate)
	}
}

func TestInvoice_DeletePaidRejected(t *testing.T) {
	db := setupTestDB(t)
	h := NewInvoiceHandler(db, services.NewDashboardService(db))
	user := seedUser(t, db, "owner@example.com", "Owner")
	client := seedClient(t, db, user.ID)
	paid := seedInvoice(t, db, user.ID, client.ID, models.InvoiceStatusPaid, "INV-2025-0001")
	draft := seedInvoice(t, db, user.ID, client.ID, models.InvoiceStatusDraft, "INV-2025-0002")

	rec := httptest.NewRecorder()
	h.Delete(rec, newRequest(t, http.MethodDelete, "/invoices/1", user.ID, paid.ID, nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("Delete paid status = %d, want 409", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, newRequest(t, http.MethodDelete, "/invoices/2", user.ID, draft.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Delete draft status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestInvoice_Stats(t *testing.T) {
	db := setupTestDB(t)
	h := NewInvoiceHandler(db, services.NewDashboardService(db))
	user := seedUser(t, db, "owner@example.com", "Owner")
	client := seedClient(t, db, user.ID)

	paid := seedInvoice(t, db, user.ID, client.ID, models.InvoiceStatusPaid, "INV-2025-0001")
	if err := db.Model(&paid).Update("total", 300).Error; err != nil {
		t.Fatalf("failed to set total: %v", err)
	}
	sent := seedInvoice(t, db, user.ID, client.ID, models.InvoiceStatusSent, "INV-2025-0002")
	if err := db.Model(&sent).Updates(map[string]any{"total": 120, "due_date": time.Now().AddDate(0, 0, -1)}).Error; err != nil {
		t.Fatalf("failed to update invoice: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Stats(rec, newRequest(t, http.MethodGet, "/invoices/stats/overview", user.ID, 0, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Stats status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var stats services.InvoiceStats
	decodeBody(t, rec, &stats)
	if stats.TotalInvoices != 2 || stats.PaidInvoices != 1 || stats.PendingInvoices != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", stats.TotalInvoices, stats.PaidInvoices, stats.PendingInvoices)
	}
	if stats.TotalRevenue != 300 || stats.PendingAmount != 120 {
		t.Errorf("amounts = %v/%v, want 300/120", stats.TotalRevenue, stats.PendingAmount)
	}
	if stats.OverdueInvoices != 1 {
		t.Errorf("overdue = %d, want 1", stats.OverdueInvoices)
	}
}
