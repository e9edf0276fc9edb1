package models

import "time"

// AuditLog records financial mutations (invoice, expense, template writes)
// performed over HTTP. RequestID ties entries from one request together.
type AuditLog struct {
	ID        uint   `gorm:"primaryKey"`
	RequestID string `gorm:"index"`
	UserID    uint   `gorm:"index"`
	Method    string `gorm:"not null"`
	Path      string `gorm:"not null"`
	Status    int
	IPAddress string
	CreatedAt time.Time
}

// AllModels is the AutoMigrate ordering: referenced tables first.
func AllModels() []any {
	return []any{
		&User{}, &Client{}, &Project{}, &TimeEntry{},
		&Invoice{}, &InvoiceItem{},
		&RecurringInvoice{}, &Expense{},
		&Otp{}, &OtpAttempt{}, &AuditLog{},
	}
}
