package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/logger"
	"github.com/factuurlab/factuur/internal/mail"
	"github.com/factuurlab/factuur/internal/models"
)

const (
	otpTTL          = 10 * time.Minute
	maxSendsPerHour = 5
)

var (
	// ErrInvalidCode covers wrong, expired and already-used codes alike so
	// the response leaks nothing about which it was.
	ErrInvalidCode = errors.New("invalid or expired code")

	// ErrUnknownEmail is returned on login for an unregistered address.
	ErrUnknownEmail = errors.New("no account for this email")

	// ErrEmailTaken is returned on registration for a known address.
	ErrEmailTaken = errors.New("account already exists for this email")

	// ErrTooManyRequests is returned once the hourly send cap is reached.
	ErrTooManyRequests = errors.New("too many codes requested, try again later")
)

// OtpService implements passwordless e-mail authentication: 6-digit codes,
// stored bcrypt-hashed, valid 10 minutes, single use. Every send and verify
// is recorded as an OtpAttempt.
type OtpService struct {
	DB     *gorm.DB
	Mailer mail.Mailer
	Clock  billing.Clock
}

func NewOtpService(db *gorm.DB, mailer mail.Mailer, clock billing.Clock) *OtpService {
	return &OtpService{DB: db, Mailer: mailer, Clock: clock}
}

// SendLoginOtp issues a login code for an existing account.
func (s *OtpService) SendLoginOtp(email, ip, userAgent string) error {
	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUnknownEmail
	}
	return s.send(email, models.OtpTypeLogin, ip, userAgent)
}

// SendRegistrationOtp issues a verification code for a new address.
func (s *OtpService) SendRegistrationOtp(email, ip, userAgent string) error {
	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return s.send(email, models.OtpTypeRegistration, ip, userAgent)
}

func (s *OtpService) send(email, otpType, ip, userAgent string) error {
	log := logger.WithComponent("otp")
	now := s.Clock.Now()

	remaining, err := s.RemainingAttempts(email, otpType)
	if err != nil {
		return err
	}
	if remaining == 0 {
		s.recordAttempt(email, otpType, ip, userAgent, false, "rate_limited")
		return ErrTooManyRequests
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// A fresh code invalidates every earlier unused one.
		if err := tx.Model(&models.Otp{}).
			Where("email = ? AND type = ? AND used = ?", email, otpType, false).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(&models.Otp{
			Email:     email,
			CodeHash:  string(hash),
			Type:      otpType,
			ExpiresAt: now.Add(otpTTL),
			IPAddress: ip,
		}).Error
	})
	if err != nil {
		s.recordAttempt(email, otpType, ip, userAgent, false, "store_failed")
		return err
	}

	subject, body := mail.OtpMessage(code)
	if err := s.Mailer.Send(email, subject, body); err != nil {
		log.Error().Err(err).Str("email", email).Msg("otp mail failed")
		s.recordAttempt(email, otpType, ip, userAgent, false, "send_failed")
		return fmt.Errorf("send otp: %w", err)
	}

	log.Info().Str("email", email).Str("type", otpType).Msg("otp sent")
	s.recordAttempt(email, otpType, ip, userAgent, true, "sent")
	return nil
}

// VerifyLoginOtp checks the code and returns the account on success.
func (s *OtpService) VerifyLoginOtp(email, code, ip, userAgent string) (*models.User, error) {
	if err := s.verify(email, code, models.OtpTypeLogin, ip, userAgent); err != nil {
		return nil, err
	}
	var user models.User
	if err := s.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownEmail
		}
		return nil, err
	}
	return &user, nil
}

// VerifyRegistrationOtp checks the code; account creation is the caller's
// next step.
func (s *OtpService) VerifyRegistrationOtp(email, code, ip, userAgent string) error {
	return s.verify(email, code, models.OtpTypeRegistration, ip, userAgent)
}

func (s *OtpService) verify(email, code, otpType, ip, userAgent string) error {
	now := s.Clock.Now()
	var candidates []models.Otp
	err := s.DB.
		Where("email = ? AND type = ? AND used = ? AND expires_at > ?", email, otpType, false, now).
		Find(&candidates).Error
	if err != nil {
		return err
	}
	for _, otp := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)) == nil {
			if err := s.DB.Model(&otp).Update("used", true).Error; err != nil {
				return err
			}
			s.recordAttempt(email, otpType, ip, userAgent, true, "verified")
			return nil
		}
	}
	s.recordAttempt(email, otpType, ip, userAgent, false, "invalid")
	return ErrInvalidCode
}

// CleanupExpired removes codes past their expiry. Run from the daily jobs.
func (s *OtpService) CleanupExpired() (int64, error) {
	res := s.DB.Where("expires_at < ?", s.Clock.Now()).Delete(&models.Otp{})
	return res.RowsAffected, res.Error
}

// RemainingAttempts reports how many codes may still be sent this hour.
func (s *OtpService) RemainingAttempts(email, otpType string) (int, error) {
	var count int64
	err := s.DB.Model(&models.Otp{}).
		Where("email = ? AND type = ? AND created_at >= ?", email, otpType, s.Clock.Now().Add(-time.Hour)).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	remaining := maxSendsPerHour - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *OtpService) recordAttempt(email, otpType, ip, userAgent string, success bool, reason string) {
	attempt := models.OtpAttempt{
		Email: email, Type: otpType,
		IPAddress: ip, UserAgent: userAgent,
		Success: success, Reason: reason,
	}
	if err := s.DB.Create(&attempt).Error; err != nil {
		l := logger.WithComponent("otp")
		l.Error().Err(err).Msg("record otp attempt failed")
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
