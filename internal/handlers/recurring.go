package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/httpx"
	"github.com/factuurlab/factuur/internal/models"
)

// RecurringHandler manages recurring invoice templates. Generation itself is
// the scheduler's job; GenerateNow exists for manual catch-up.
type RecurringHandler struct {
	DB        *gorm.DB
	Scheduler *billing.Scheduler
	Clock     billing.Clock
}

func NewRecurringHandler(db *gorm.DB, sched *billing.Scheduler, clock billing.Clock) *RecurringHandler {
	return &RecurringHandler{DB: db, Scheduler: sched, Clock: clock}
}

type recurringRequest struct {
	ClientID     uint                 `json:"client_id"`
	ProjectID    *uint                `json:"project_id"`
	TemplateName string               `json:"template_name"`
	Frequency    string               `json:"frequency"`
	StartDate    time.Time            `json:"start_date"`
	EndDate      *time.Time           `json:"end_date"`
	AutoSend     bool                 `json:"auto_send"`
	IsActive     *bool                `json:"is_active"`
	InvoiceData  billing.TemplateData `json:"invoice_data"`
}

var frequencies = map[string]bool{
	models.FrequencyWeekly:    true,
	models.FrequencyMonthly:   true,
	models.FrequencyQuarterly: true,
	models.FrequencyYearly:    true,
}

func (req recurringRequest) validate() map[string]string {
	problems := map[string]string{}
	if req.ClientID == 0 {
		problems["client_id"] = "required"
	}
	if strings.TrimSpace(req.TemplateName) == "" {
		problems["template_name"] = "required"
	}
	if !frequencies[req.Frequency] {
		problems["frequency"] = "must_be_weekly_monthly_quarterly_or_yearly"
	}
	if req.StartDate.IsZero() {
		problems["start_date"] = "required"
	}
	if len(req.InvoiceData.Items) == 0 {
		problems["invoice_data.items"] = "required"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// List: GET /recurring
func (h *RecurringHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var out []models.RecurringInvoice
	if err := h.DB.Preload("Client").Where("user_id = ?", userID).Order("id desc").Find(&out).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_templates", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

// Create: POST /recurring
func (h *RecurringHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req recurringRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if problems := req.validate(); problems != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", problems)
		return
	}
	if _, err := billing.ComputeTotals(req.InvoiceData.Items, req.InvoiceData.TaxRate); err != nil {
		writeBillingError(w, err)
		return
	}
	var count int64
	if err := h.DB.Model(&models.Client{}).Where("id = ? AND user_id = ?", req.ClientID, userID).Count(&count).Error; err != nil || count == 0 {
		httpx.JSONError(w, http.StatusNotFound, "client_not_found", nil)
		return
	}
	snapshot, err := json.Marshal(req.InvoiceData)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_invoice_data", nil)
		return
	}
	tpl := models.RecurringInvoice{
		UserID:       userID,
		ClientID:     req.ClientID,
		ProjectID:    req.ProjectID,
		TemplateName: strings.TrimSpace(req.TemplateName),
		InvoiceData:  snapshot,
		Frequency:    req.Frequency,
		IsActive:     true,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		AutoSend:     req.AutoSend,
	}
	if next, err := h.Scheduler.NextDue(&tpl); err == nil {
		tpl.NextDue = &next
	}
	if err := h.DB.Create(&tpl).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_template", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, tpl)
}

// Update: PUT /recurring?id=...
func (h *RecurringHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var tpl models.RecurringInvoice
	if !firstOwned(w, h.DB, id, userID, &tpl) {
		return
	}
	var req recurringRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if problems := req.validate(); problems != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", problems)
		return
	}
	if _, err := billing.ComputeTotals(req.InvoiceData.Items, req.InvoiceData.TaxRate); err != nil {
		writeBillingError(w, err)
		return
	}
	snapshot, err := json.Marshal(req.InvoiceData)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_invoice_data", nil)
		return
	}
	tpl.ClientID = req.ClientID
	tpl.ProjectID = req.ProjectID
	tpl.TemplateName = strings.TrimSpace(req.TemplateName)
	tpl.InvoiceData = snapshot
	tpl.Frequency = req.Frequency
	tpl.StartDate = req.StartDate
	tpl.EndDate = req.EndDate
	tpl.AutoSend = req.AutoSend
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}
	if next, err := h.Scheduler.NextDue(&tpl); err == nil {
		tpl.NextDue = &next
	}
	if err := h.DB.Save(&tpl).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_template", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, tpl)
}

// Delete: DELETE /recurring?id=... — generated invoices stay.
func (h *RecurringHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var tpl models.RecurringInvoice
	if !firstOwned(w, h.DB, id, userID, &tpl) {
		return
	}
	if err := h.DB.Delete(&tpl).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_template", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GenerateNow: POST /recurring/generate?id=... runs one template immediately
// when it is due.
func (h *RecurringHandler) GenerateNow(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var tpl models.RecurringInvoice
	if !firstOwned(w, h.DB, id, userID, &tpl) {
		return
	}
	today := h.Clock.Now()
	due, err := h.Scheduler.IsDue(&tpl, today)
	if err != nil {
		writeBillingError(w, err)
		return
	}
	if !due {
		httpx.JSONError(w, http.StatusConflict, "not_due", nil)
		return
	}
	inv, err := h.Scheduler.Generate(&tpl, today)
	if err != nil {
		writeBillingError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}
