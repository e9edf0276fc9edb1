// Package handlers implements the JSON HTTP API. Every handler is a struct
// over *gorm.DB plus the services it needs; ids travel as query parameters.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/auth"
	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/httpx"
)

// mustUserID reads the session user and writes 401 when absent. Routes are
// behind RequireAuth already; this is the second check handlers rely on for
// scoping queries.
func mustUserID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return 0, false
	}
	return id, true
}

// queryID parses the id query parameter, writing a 400 on bad input.
func queryID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(id), true
}

// writeBillingError maps domain error kinds onto HTTP statuses.
func writeBillingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrInvalidInput):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, billing.ErrUnsupportedFrequency):
		httpx.JSONError(w, http.StatusBadRequest, "unsupported_frequency", err.Error())
	case errors.Is(err, billing.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, billing.ErrUnauthorized):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, billing.ErrDuplicateNumber):
		httpx.JSONError(w, http.StatusConflict, "duplicate_invoice_number", nil)
	case errors.Is(err, billing.ErrAlreadyGenerated):
		httpx.JSONError(w, http.StatusConflict, "already_generated", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// firstOwned loads a row by id scoped to the user, writing 404 when missing.
func firstOwned[T any](w http.ResponseWriter, db *gorm.DB, id, userID uint, dst *T) bool {
	err := db.Where("id = ? AND user_id = ?", id, userID).First(dst).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		} else {
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		}
		return false
	}
	return true
}
