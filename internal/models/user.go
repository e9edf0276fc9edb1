package models

import "time"

// User is an account owner. Authentication is passwordless (e-mail OTP),
// so there is no password column; admin users are flagged instead.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null;uniqueIndex"`
	IsAdmin   bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
