package models

import (
	"time"

	"gorm.io/datatypes"
)

// Recurring invoice frequencies.
const (
	FrequencyWeekly    = "weekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)

// RecurringInvoice is a template from which invoices are materialized by the
// daily scheduler run. InvoiceData is a JSON snapshot of the invoice fields
// (tax rate, currency, notes, terms, items) stamped onto each generated
// invoice. NextDue is always derived from LastGenerated (or StartDate when
// never generated) plus one frequency period; only the scheduler mutates it.
type RecurringInvoice struct {
	ID            uint           `gorm:"primaryKey"`
	UserID        uint           `gorm:"not null;index:idx_recurring_user_active"`
	User          User           `gorm:"foreignKey:UserID"`
	ClientID      uint           `gorm:"not null;index"`
	Client        Client         `gorm:"foreignKey:ClientID"`
	ProjectID     *uint          `gorm:"index"`
	Project       *Project       `gorm:"foreignKey:ProjectID"`
	TemplateName  string         `gorm:"not null"`
	InvoiceData   datatypes.JSON `gorm:"not null"`
	Frequency     string         `gorm:"not null"`
	IsActive      bool           `gorm:"not null;default:true;index:idx_recurring_user_active;index:idx_recurring_due_active"`
	StartDate     time.Time      `gorm:"not null"`
	EndDate       *time.Time
	LastGenerated *time.Time
	NextDue       *time.Time `gorm:"index:idx_recurring_due_active"`
	AutoSend      bool       `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
