package models

import (
	"time"

	"gorm.io/gorm"
)

// ClientStatus represents the relationship state with a client.
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
	ClientStatusProspect ClientStatus = "prospect"
)

// ClientStatuses lists the accepted values for validation.
var ClientStatuses = []string{
	string(ClientStatusActive),
	string(ClientStatusInactive),
	string(ClientStatusProspect),
}

// Client represents a customer a user bills and runs projects for.
// Implements the Ownable interface for ownership-based authorization.
type Client struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// UserID is the owner of this client (for multi-tenant isolation)
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Name    string `gorm:"size:255;not null" json:"name"`
	Email   string `gorm:"size:255" json:"email"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	Company string `gorm:"size:255" json:"company,omitempty"`
	Website string `gorm:"size:255" json:"website,omitempty"`
	Address string `gorm:"size:500" json:"address,omitempty"`
	Notes   string `gorm:"type:text" json:"notes,omitempty"`

	// Billing defaults applied to new projects and invoices
	HourlyRate       float64 `gorm:"type:decimal(10,2);default:0" json:"hourly_rate"`
	Currency         string  `gorm:"size:10;default:'USD'" json:"currency"`
	PaymentTermsDays int     `gorm:"default:30" json:"payment_terms_days"`

	Status ClientStatus `gorm:"size:20;default:'prospect'" json:"status"`
}

// GetUserID implements the Ownable interface for authorization.
func (c *Client) GetUserID() uint {
	return c.UserID
}

// BlockingProjectStatuses are the project states that prevent client deletion.
var BlockingProjectStatuses = []ProjectStatus{
	ProjectStatusPlanning,
	ProjectStatusActive,
	ProjectStatusOnHold,
}
