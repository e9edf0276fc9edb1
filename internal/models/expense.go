package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense categories are free-form but the categorizer suggests from a
// known set (office, travel, marketing, software, equipment, training, ...).
type Expense struct {
	ID          uint     `gorm:"primaryKey"`
	UserID      uint     `gorm:"not null;index"`
	User        User     `gorm:"foreignKey:UserID"`
	ProjectID   *uint    `gorm:"index"`
	Project     *Project `gorm:"foreignKey:ProjectID"`
	Description string   `gorm:"not null"`
	Vendor      string   `gorm:"index"`
	Category    string   `gorm:"index"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2)"`
	ExpenseDate time.Time       `gorm:"not null;index"`
	IsBillable  bool            `gorm:"not null;default:false"`
	ReceiptPath string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
