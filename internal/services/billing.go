package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/creatorflow/creatorflow/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInvoicePaid is returned when a mutation is attempted on a paid
	// invoice. Only a status-only change away from paid is allowed.
	ErrInvoicePaid = errors.New("invoice_paid_locked")
)

// Round2 rounds a monetary amount to 2 decimals, half away from zero.
// Stored amounts and every intermediate total go through this so the
// persisted figures are stable. The epsilon absorbs binary artifacts like
// 1.005*100 == 100.4999... that would otherwise tip a half cent down.
func Round2(v float64) float64 {
	scaled := v * 100
	return math.Round(scaled+math.Copysign(1e-9, scaled)) / 100
}

// ComputeInvoiceTotals overwrites every derived amount on the invoice from
// its line items and rates:
//
//	amount   = quantity * rate
//	subtotal = sum(amount)
//	tax      = subtotal * taxRate / 100
//	discount = subtotal * discountRate / 100
//	total    = subtotal + tax - discount
//
// Called by the write path before every persist; client-supplied totals are
// never trusted.
func ComputeInvoiceTotals(inv *models.Invoice) {
	var subtotal float64
	for i := range inv.Items {
		inv.Items[i].Amount = Round2(inv.Items[i].Quantity * inv.Items[i].Rate)
		subtotal += inv.Items[i].Amount
	}
	inv.Subtotal = Round2(subtotal)
	inv.TaxAmount = Round2(inv.Subtotal * inv.TaxRate / 100)
	inv.DiscountAmount = Round2(inv.Subtotal * inv.DiscountRate / 100)
	inv.Total = Round2(inv.Subtotal + inv.TaxAmount - inv.DiscountAmount)
}

// NextInvoiceNumber allocates the next invoice number for a user and year.
// Format: INV-YYYY-NNNN (e.g., INV-2025-0001). The per-user-per-year counter
// row is incremented with an atomic upsert, so two concurrent creations get
// distinct numbers. Call inside the same transaction that inserts the invoice.
func NextInvoiceNumber(tx *gorm.DB, userID uint, year int) (string, error) {
	seq := models.InvoiceSequence{UserID: userID, Year: year, LastSeq: 1}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "year"}},
		DoUpdates: clause.Assignments(map[string]any{"last_seq": gorm.Expr("last_seq + 1")}),
	}).Create(&seq).Error
	if err != nil {
		return "", err
	}
	if err := tx.Where("user_id = ? AND year = ?", userID, year).First(&seq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%d-%04d", year, seq.LastSeq), nil
}

// SendInvoice transitions the invoice to sent and returns the email-history
// entry to append. No mail is delivered; sending is a logged state
// transition. Rejected while the invoice is paid.
func SendInvoice(inv *models.Invoice, clientEmail string, now time.Time) (models.InvoiceEmail, error) {
	if inv.IsPaid() {
		return models.InvoiceEmail{}, ErrInvoicePaid
	}
	inv.Status = models.InvoiceStatusSent
	return models.InvoiceEmail{
		InvoiceID: inv.ID,
		SentTo:    clientEmail,
		Subject:   fmt.Sprintf("Invoice %s", inv.Number),
		Status:    "sent",
		SentAt:    now,
	}, nil
}

// MarkInvoicePaid forces status to paid. PaidDate is stamped the first time
// only and never overwritten by later saves.
func MarkInvoicePaid(inv *models.Invoice, now time.Time) {
	inv.Status = models.InvoiceStatusPaid
	if inv.PaidDate == nil {
		inv.PaidDate = &now
	}
}

// ApplyInvoiceStatus changes the status, stamping PaidDate when the invoice
// first enters paid. Moving away from paid keeps the historical PaidDate.
func ApplyInvoiceStatus(inv *models.Invoice, status models.InvoiceStatus, now time.Time) {
	inv.Status = status
	if status == models.InvoiceStatusPaid && inv.PaidDate == nil {
		inv.PaidDate = &now
	}
}
