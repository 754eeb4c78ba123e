package models

import (
	"time"

	"gorm.io/gorm"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusViewed    InvoiceStatus = "viewed"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

var InvoiceStatuses = []string{
	string(InvoiceStatusDraft),
	string(InvoiceStatusSent),
	string(InvoiceStatusViewed),
	string(InvoiceStatusPaid),
	string(InvoiceStatusOverdue),
	string(InvoiceStatusCancelled),
}

// PendingInvoiceStatuses are the states where payment is still expected.
var PendingInvoiceStatuses = []InvoiceStatus{InvoiceStatusSent, InvoiceStatusViewed}

// Invoice represents a billing invoice.
// Implements the Ownable interface for ownership-based authorization.
type Invoice struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// UserID is the owner of this invoice (for multi-tenant isolation)
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// Invoice identification, format INV-YYYY-NNNN
	Number string `gorm:"size:50;uniqueIndex" json:"number"`

	// Client relationship (required) and optional project
	ClientID  uint     `gorm:"index;not null" json:"client_id"`
	Client    *Client  `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ProjectID *uint    `gorm:"index" json:"project_id,omitempty"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	// Invoice dates
	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   time.Time  `gorm:"not null" json:"due_date"`
	PaidDate  *time.Time `json:"paid_date,omitempty"`

	Status InvoiceStatus `gorm:"size:20;default:'draft'" json:"status"`

	// Rates are percentages in [0,100]
	TaxRate      float64 `gorm:"type:decimal(5,2);default:0" json:"tax_rate"`
	DiscountRate float64 `gorm:"type:decimal(5,2);default:0" json:"discount_rate"`

	// Stored derived amounts; recomputed by the billing service on every
	// persisted write, never trusted from a request.
	Subtotal       float64 `gorm:"type:decimal(12,2);default:0" json:"subtotal"`
	TaxAmount      float64 `gorm:"type:decimal(12,2);default:0" json:"tax_amount"`
	DiscountAmount float64 `gorm:"type:decimal(12,2);default:0" json:"discount_amount"`
	Total          float64 `gorm:"type:decimal(12,2);default:0" json:"total"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`

	// Recurring settings are stored but never executed; there is no
	// background generator.
	RecurringEnabled   bool       `gorm:"default:false" json:"recurring_enabled"`
	RecurringFrequency string     `gorm:"size:20" json:"recurring_frequency,omitempty"`
	RecurringNextDate  *time.Time `json:"recurring_next_date,omitempty"`

	Items        []InvoiceItem  `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	EmailHistory []InvoiceEmail `gorm:"foreignKey:InvoiceID" json:"email_history,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (i *Invoice) GetUserID() uint {
	return i.UserID
}

// IsPaid returns true if the invoice has been paid.
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// CanEdit returns true if invoice fields other than status may change.
// Paid invoices are locked.
func (i *Invoice) CanEdit() bool {
	return i.Status != InvoiceStatusPaid
}

// IsPending returns true while payment is still expected.
func (i *Invoice) IsPending() bool {
	return i.Status == InvoiceStatusSent || i.Status == InvoiceStatusViewed
}

// IsOverdue reports whether a pending invoice is past its due date.
// Overdue is derived at read time, never stamped by a timer.
func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.IsPending() && i.DueDate.Before(now)
}

// DaysUntilDue returns the number of whole days until the due date, rounded up.
func (i *Invoice) DaysUntilDue(now time.Time) int {
	due := i.DueDate
	return daysUntil(&due, now)
}

// InvoiceItem represents a line item on an invoice.
type InvoiceItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Parent invoice
	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	Description string  `gorm:"size:500;not null" json:"description"`
	Quantity    float64 `gorm:"type:decimal(10,3);not null;default:1" json:"quantity"`
	Rate        float64 `gorm:"type:decimal(10,2);not null" json:"rate"`
	// Amount is quantity*rate, recomputed on every persisted write.
	Amount float64 `gorm:"type:decimal(12,2);not null" json:"amount"`
	Type   string  `gorm:"size:20;default:'service'" json:"type"`

	// Position for ordering
	Position int `gorm:"default:0" json:"position"`
}

// InvoiceEmail is an append-only log entry of a send attempt. Sending is a
// logged state transition, not an actual delivery integration.
type InvoiceEmail struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	SentTo  string    `gorm:"size:255" json:"sent_to"`
	Subject string    `gorm:"size:255" json:"subject"`
	Status  string    `gorm:"size:20" json:"status"`
	SentAt  time.Time `json:"sent_at"`
}

// InvoiceSequence is the per-user-per-year counter backing invoice numbers.
// It is incremented atomically with an upsert so concurrent creations cannot
// mint the same number.
type InvoiceSequence struct {
	UserID  uint `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Year    int  `gorm:"primaryKey;autoIncrement:false" json:"year"`
	LastSeq int  `gorm:"not null;default:0" json:"last_seq"`
}
