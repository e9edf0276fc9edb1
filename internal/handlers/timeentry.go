package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/httpx"
	"github.com/factuurlab/factuur/internal/models"
)

type TimeEntryHandler struct {
	DB *gorm.DB
}

func NewTimeEntryHandler(db *gorm.DB) *TimeEntryHandler {
	return &TimeEntryHandler{DB: db}
}

type timeEntryRequest struct {
	ProjectID   uint            `json:"project_id"`
	WorkDate    time.Time       `json:"work_date"`
	Hours       decimal.Decimal `json:"hours"`
	Rate        decimal.Decimal `json:"rate"`
	Description string          `json:"description"`
}

var (
	minHours = decimal.NewFromFloat(0.25)
	maxHours = decimal.NewFromInt(24)
)

func (req timeEntryRequest) validate() map[string]string {
	problems := map[string]string{}
	if req.ProjectID == 0 {
		problems["project_id"] = "required"
	}
	if req.WorkDate.IsZero() {
		problems["work_date"] = "required"
	}
	if req.Hours.LessThan(minHours) || req.Hours.GreaterThan(maxHours) {
		problems["hours"] = "must_be_between_0.25_and_24"
	}
	if req.Rate.IsNegative() {
		problems["rate"] = "must_not_be_negative"
	}
	if len(req.Description) > 255 {
		problems["description"] = "too_long"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// List: GET /time-entries?project_id=&limit=&page=
func (h *TimeEntryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	tx := h.DB.Model(&models.TimeEntry{}).Where("user_id = ?", userID)
	if v := q.Get("project_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil && id > 0 {
			tx = tx.Where("project_id = ?", id)
		}
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_time_entries", nil)
		return
	}
	limit := 20
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	offset := 0
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	var out []models.TimeEntry
	if err := tx.Preload("Project").Order("work_date desc, id desc").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_time_entries", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": total})
}

// Create: POST /time-entries
func (h *TimeEntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req timeEntryRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if problems := req.validate(); problems != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", problems)
		return
	}
	var count int64
	if err := h.DB.Model(&models.Project{}).Where("id = ? AND user_id = ?", req.ProjectID, userID).Count(&count).Error; err != nil || count == 0 {
		httpx.JSONError(w, http.StatusNotFound, "project_not_found", nil)
		return
	}
	te := models.TimeEntry{
		UserID:      userID,
		ProjectID:   req.ProjectID,
		WorkDate:    req.WorkDate,
		Hours:       req.Hours.Round(2),
		Rate:        req.Rate.Round(2),
		Description: strings.TrimSpace(req.Description),
	}
	if err := h.DB.Create(&te).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_time_entry", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, te)
}

// Delete: DELETE /time-entries?id=...
func (h *TimeEntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var te models.TimeEntry
	if !firstOwned(w, h.DB, id, userID, &te) {
		return
	}
	if err := h.DB.Delete(&te).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_time_entry", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
