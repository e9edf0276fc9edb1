package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/expenses"
	"github.com/factuurlab/factuur/internal/httpx"
	"github.com/factuurlab/factuur/internal/models"
	"github.com/factuurlab/factuur/internal/ocr"
)

type ExpenseHandler struct {
	DB  *gorm.DB
	Svc *expenses.Service
}

func NewExpenseHandler(db *gorm.DB, svc *expenses.Service) *ExpenseHandler {
	return &ExpenseHandler{DB: db, Svc: svc}
}

type expenseRequest struct {
	ProjectID   *uint           `json:"project_id"`
	Description string          `json:"description"`
	Vendor      string          `json:"vendor"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate time.Time       `json:"expense_date"`
	IsBillable  bool            `json:"is_billable"`
	ReceiptPath string          `json:"receipt_path"`
}

func (req expenseRequest) validate() map[string]string {
	problems := map[string]string{}
	if strings.TrimSpace(req.Description) == "" {
		problems["description"] = "required"
	}
	if !req.Amount.IsPositive() {
		problems["amount"] = "must_be_positive"
	}
	if req.ExpenseDate.IsZero() {
		problems["expense_date"] = "required"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

func (req expenseRequest) apply(e *models.Expense) {
	e.ProjectID = req.ProjectID
	e.Description = strings.TrimSpace(req.Description)
	e.Vendor = strings.TrimSpace(req.Vendor)
	e.Category = req.Category
	e.Amount = req.Amount.Round(2)
	e.ExpenseDate = req.ExpenseDate
	e.IsBillable = req.IsBillable
	e.ReceiptPath = req.ReceiptPath
}

// List: GET /expenses?category=&project_id=&from=&to=&billable=&limit=&page=
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := expenses.Filters{Category: q.Get("category")}
	if v := q.Get("project_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil && id > 0 {
			f.ProjectID = uint(id)
		}
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.DateFrom = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			f.DateTo = t
		}
	}
	if v := q.Get("billable"); v != "" {
		b := v == "true" || v == "1"
		f.IsBillable = &b
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			limit := f.Limit
			if limit <= 0 {
				limit = 15
			}
			f.Offset = (n - 1) * limit
		}
	}
	items, total, err := h.Svc.List(userID, f)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_expenses", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total})
}

// Create: POST /expenses
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req expenseRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if problems := req.validate(); problems != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", problems)
		return
	}
	var e models.Expense
	req.apply(&e)
	if e.Category == "" {
		if cat, err := h.Svc.Categorize(userID, e.Vendor, e.Description); err == nil && cat != "" {
			e.Category = cat
		}
	}
	if err := h.Svc.Create(userID, &e); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_expense", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

// Update: PUT /expenses?id=...
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var e models.Expense
	if !firstOwned(w, h.DB, id, userID, &e) {
		return
	}
	var req expenseRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if problems := req.validate(); problems != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", problems)
		return
	}
	req.apply(&e)
	if err := h.Svc.Update(&e); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_expense", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

// Delete: DELETE /expenses?id=...
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var e models.Expense
	if !firstOwned(w, h.DB, id, userID, &e) {
		return
	}
	if err := h.Svc.Delete(&e); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_expense", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Stats: GET /expenses/stats
func (h *ExpenseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	stats, err := h.Svc.Stats(userID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	byCategory, err := h.Svc.ByCategory(userID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	monthly, err := h.Svc.Monthly(userID, 12)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"totals":      stats,
		"by_category": byCategory,
		"monthly":     monthly,
	})
}

// Categories: GET /expenses/categories
func (h *ExpenseHandler) Categories(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": expenses.Categories()})
}

// Categorize: POST /expenses/categorize — suggestion only, nothing is saved.
func (h *ExpenseHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req struct {
		Vendor      string `json:"vendor"`
		Description string `json:"description"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	cat, err := h.Svc.Categorize(userID, req.Vendor, req.Description)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"category": cat})
}

// ExtractReceipt: POST /expenses/extract-receipt with {"text": "..."} pulls
// vendor, amount and date from OCR'd receipt text.
func (h *ExpenseHandler) ExtractReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"text": "required"})
		return
	}
	ex := ocr.Extract(req.Text)
	resp := map[string]any{"vendor": ex.Vendor, "amount": ex.Amount, "date": ex.Date}
	if cat, err := h.Svc.Categorize(userID, ex.Vendor, ""); err == nil && cat != "" {
		resp["suggested_category"] = cat
	}
	httpx.JSON(w, http.StatusOK, resp)
}
