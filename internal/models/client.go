package models

import "time"

// Client is a billable counterparty, owned by exactly one user.
type Client struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"not null;index"`
	User       User   `gorm:"foreignKey:UserID"`
	Name       string `gorm:"not null;index"`
	Email      string `gorm:"index"`
	Phone      string
	VATNumber  string `gorm:"index"`
	Address    string
	City       string
	PostalCode string
	Country    string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
