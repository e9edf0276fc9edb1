package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/auth"
	"github.com/factuurlab/factuur/internal/httpx"
	"github.com/factuurlab/factuur/internal/middleware"
	"github.com/factuurlab/factuur/internal/models"
)

// AuthHandler implements passwordless login and registration over OTP codes.
type AuthHandler struct {
	DB       *gorm.DB
	Otps     *auth.OtpService
	Sessions *auth.Sessions
}

func NewAuthHandler(db *gorm.DB, otps *auth.OtpService, sessions *auth.Sessions) *AuthHandler {
	return &AuthHandler{DB: db, Otps: otps, Sessions: sessions}
}

type otpRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Code  string `json:"code"`
}

// RequestLoginOtp: POST /auth/request-otp
func (h *AuthHandler) RequestLoginOtp(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"email": "required"})
		return
	}
	err := h.Otps.SendLoginOtp(email, middleware.ClientIP(r), r.UserAgent())
	switch {
	case errors.Is(err, auth.ErrUnknownEmail):
		httpx.JSONError(w, http.StatusNotFound, "unknown_email", nil)
	case errors.Is(err, auth.ErrTooManyRequests):
		httpx.JSONError(w, http.StatusTooManyRequests, "too_many_requests", nil)
	case err != nil:
		httpx.JSONError(w, http.StatusInternalServerError, "otp_send_failed", nil)
	default:
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "sent"})
	}
}

// RequestRegistrationOtp: POST /auth/register
func (h *AuthHandler) RequestRegistrationOtp(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" || strings.TrimSpace(req.Name) == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"email": "required", "name": "required"})
		return
	}
	err := h.Otps.SendRegistrationOtp(email, middleware.ClientIP(r), r.UserAgent())
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		httpx.JSONError(w, http.StatusConflict, "email_taken", nil)
	case errors.Is(err, auth.ErrTooManyRequests):
		httpx.JSONError(w, http.StatusTooManyRequests, "too_many_requests", nil)
	case err != nil:
		httpx.JSONError(w, http.StatusInternalServerError, "otp_send_failed", nil)
	default:
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "sent"})
	}
}

// VerifyLoginOtp: POST /auth/verify-otp — creates the session on success.
func (h *AuthHandler) VerifyLoginOtp(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	user, err := h.Otps.VerifyLoginOtp(normalizeEmail(req.Email), req.Code, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_code", nil)
		return
	}
	h.Sessions.Create(w, user.ID)
	httpx.JSON(w, http.StatusOK, map[string]any{"id": user.ID, "email": user.Email, "name": user.Name})
}

// VerifyRegistrationOtp: POST /auth/verify-registration — creates the account
// and logs it in.
func (h *AuthHandler) VerifyRegistrationOtp(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	email := normalizeEmail(req.Email)
	if err := h.Otps.VerifyRegistrationOtp(email, req.Code, middleware.ClientIP(r), r.UserAgent()); err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_code", nil)
		return
	}
	user := models.User{Email: email, Name: strings.TrimSpace(req.Name)}
	if err := h.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			httpx.JSONError(w, http.StatusConflict, "email_taken", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "registration_failed", nil)
		return
	}
	h.Sessions.Create(w, user.ID)
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": user.ID, "email": user.Email, "name": user.Name})
}

// Logout: POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Clear(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me: GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": user.ID, "email": user.Email, "name": user.Name, "is_admin": user.IsAdmin})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
