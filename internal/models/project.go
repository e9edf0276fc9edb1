package models

import "time"

// Project groups invoices and expenses under a client engagement.
// Status: active, completed, archived.
type Project struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	ClientID  uint   `gorm:"not null;index"`
	Client    Client `gorm:"foreignKey:ClientID"`
	Name      string `gorm:"not null"`
	Status    string `gorm:"not null;default:'active'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
