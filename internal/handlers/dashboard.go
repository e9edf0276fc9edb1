package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/expenses"
	"github.com/factuurlab/factuur/internal/forecast"
	"github.com/factuurlab/factuur/internal/httpx"
	"github.com/factuurlab/factuur/internal/models"
)

// DashboardHandler serves the aggregate figures the dashboard shows.
type DashboardHandler struct {
	DB       *gorm.DB
	Expenses *expenses.Service
	Forecast *forecast.Service
}

func NewDashboardHandler(db *gorm.DB, exp *expenses.Service, fc *forecast.Service) *DashboardHandler {
	return &DashboardHandler{DB: db, Expenses: exp, Forecast: fc}
}

// Stats: GET /dashboard — invoice counts by status, outstanding and paid
// totals, expense rollup.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var invoices []models.Invoice
	if err := h.DB.Where("user_id = ?", userID).Find(&invoices).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	byStatus := map[string]int{}
	outstanding := decimal.Zero
	revenue := decimal.Zero
	for _, inv := range invoices {
		byStatus[inv.Status]++
		switch inv.Status {
		case models.InvoiceStatusSent, models.InvoiceStatusOverdue:
			outstanding = outstanding.Add(inv.TotalAmount)
		case models.InvoiceStatusPaid:
			revenue = revenue.Add(inv.TotalAmount)
		}
	}
	expenseStats, err := h.Expenses.Stats(userID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoices_by_status": byStatus,
		"outstanding":        outstanding,
		"revenue":            revenue,
		"expenses":           expenseStats,
		"profit":             revenue.Sub(expenseStats.TotalAmount),
	})
}

// CashFlow: GET /dashboard/forecast — history plus the next-month projection.
func (h *DashboardHandler) CashFlow(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	report, err := h.Forecast.Build(userID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
