package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeEntry is one logged block of work on a project. Rate is optional and
// zero when the entry inherits whatever rate applies at invoicing time.
type TimeEntry struct {
	ID          uint            `gorm:"primaryKey"`
	UserID      uint            `gorm:"not null;index"`
	User        User            `gorm:"foreignKey:UserID"`
	ProjectID   uint            `gorm:"not null;index"`
	Project     Project         `gorm:"foreignKey:ProjectID"`
	WorkDate    time.Time       `gorm:"not null;index"`
	Hours       decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Rate        decimal.Decimal `gorm:"type:decimal(10,2)"`
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
