package models

import "time"

// OTP purposes.
const (
	OtpTypeLogin        = "login"
	OtpTypeRegistration = "registration"
)

// Otp is a single-use e-mail verification code. The code itself is stored
// bcrypt-hashed; issuing a new code marks all previous unused codes for the
// same e-mail and type as used.
type Otp struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"not null;index:idx_otps_email_type"`
	CodeHash  string `gorm:"not null"`
	Type      string `gorm:"not null;index:idx_otps_email_type"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	IPAddress string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OtpAttempt records every send and verify attempt for auditing and the
// per-hour send cap.
type OtpAttempt struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"not null;index"`
	Type      string `gorm:"not null"`
	IPAddress string
	UserAgent string
	Success   bool   `gorm:"not null"`
	Reason    string `gorm:"not null"`
	CreatedAt time.Time
}
