package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice statuses. Paid and cancelled are terminal.
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// Invoice is owned by the creating user. The invoice number is unique per
// user, enforced by a composite index so concurrent number allocation is
// caught at write time. Totals always satisfy
// total = subtotal + tax_amount = subtotal * (1 + tax_rate/100).
type Invoice struct {
	ID            uint     `gorm:"primaryKey"`
	UserID        uint     `gorm:"not null;uniqueIndex:idx_invoices_user_number"`
	User          User     `gorm:"foreignKey:UserID"`
	ClientID      uint     `gorm:"not null;index"`
	Client        Client   `gorm:"foreignKey:ClientID"`
	ProjectID     *uint    `gorm:"index"`
	Project       *Project `gorm:"foreignKey:ProjectID"`
	InvoiceNumber string   `gorm:"not null;uniqueIndex:idx_invoices_user_number"`
	Status        string   `gorm:"not null;default:'draft';index"`
	IssueDate     time.Time `gorm:"not null"`
	DueDate       time.Time `gorm:"not null;index"`
	PaidDate      *time.Time
	Subtotal      decimal.Decimal `gorm:"type:decimal(10,2)"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(5,2)"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(10,2)"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2)"`
	Currency      string          `gorm:"not null;default:'EUR'"`
	Notes         string
	Terms         string
	Items         []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InvoiceItem is one billable row. The item set is replaced as a whole on
// every invoice update, never patched incrementally.
type InvoiceItem struct {
	ID          uint            `gorm:"primaryKey"`
	InvoiceID   uint            `gorm:"not null;index"`
	Description string          `gorm:"not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(10,2)"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2)"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(10,2)"`
}
