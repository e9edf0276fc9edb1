package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/httpx"
	"github.com/factuurlab/factuur/internal/mail"
	"github.com/factuurlab/factuur/internal/models"
	pdfgen "github.com/factuurlab/factuur/internal/pdf"
)

// InvoiceHandler routes invoice CRUD and lifecycle actions to the billing
// package.
type InvoiceHandler struct {
	DB        *gorm.DB
	Lifecycle *billing.Lifecycle
	Mailer    mail.Mailer
}

func NewInvoiceHandler(db *gorm.DB, lc *billing.Lifecycle, mailer mail.Mailer) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Lifecycle: lc, Mailer: mailer}
}

// List: GET /invoices?status=&client_id=&limit=&page=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	dbq := h.DB.Where("user_id = ?", userID)
	if status := r.URL.Query().Get("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	if v := r.URL.Query().Get("client_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil && id > 0 {
			dbq = dbq.Where("client_id = ?", id)
		}
	}
	var total int64
	dbq.Model(&models.Invoice{}).Count(&total)
	var invs []models.Invoice
	if err := dbq.Preload("Items").Preload("Client").Order("id desc").Limit(limit).Offset(offset).Find(&invs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invs, "total": total, "limit": limit, "offset": offset})
}

// Get: GET /invoices/show?id=...
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var inv models.Invoice
	err := h.DB.Preload("Items").Preload("Client").Preload("Project").
		Where("id = ? AND user_id = ?", id, userID).First(&inv).Error
	if err != nil {
		writeBillingError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Create: POST /invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var in billing.CreateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	inv, err := h.Lifecycle.Create(userID, in)
	if err != nil {
		writeBillingError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Update: PUT /invoices?id=...
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var inv models.Invoice
	if !firstOwned(w, h.DB, id, userID, &inv) {
		return
	}
	var in billing.UpdateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	updated, err := h.Lifecycle.Update(&inv, in)
	if err != nil {
		writeBillingError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Delete: DELETE /invoices?id=...
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var inv models.Invoice
	if !firstOwned(w, h.DB, id, userID, &inv) {
		return
	}
	if err := h.Lifecycle.Delete(&inv); err != nil {
		writeBillingError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// MarkPaid: POST /invoices/mark-paid?id=... with optional {"paid_date": "..."}
func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var inv models.Invoice
	if !firstOwned(w, h.DB, id, userID, &inv) {
		return
	}
	var req struct {
		PaidDate *time.Time `json:"paid_date"`
	}
	if r.ContentLength > 0 {
		if err := httpx.Decode(r, &req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	}
	updated, err := h.Lifecycle.MarkPaid(&inv, req.PaidDate)
	if err != nil {
		writeBillingError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Send: POST /invoices/send?id=... mails the invoice and moves it to sent.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var inv models.Invoice
	if !firstOwned(w, h.DB, id, userID, &inv) {
		return
	}
	if !billing.CanTransition(inv.Status, models.InvoiceStatusSent) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_transition", nil)
		return
	}
	var client models.Client
	if err := h.DB.First(&client, inv.ClientID).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_client", nil)
		return
	}
	if client.Email == "" {
		httpx.JSONError(w, http.StatusBadRequest, "client_has_no_email", nil)
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if r.ContentLength > 0 {
		if err := httpx.Decode(r, &req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	}
	note := req.Note
	if note == "" {
		note = "Please find your invoice below."
	}
	subject, body := mail.InvoiceMessage(&inv, note)
	if err := h.Mailer.Send(client.Email, subject, body); err != nil {
		httpx.JSONError(w, http.StatusBadGateway, "mail_send_failed", nil)
		return
	}
	if inv.Status != models.InvoiceStatusSent {
		if err := h.DB.Model(&inv).Update("status", models.InvoiceStatusSent).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_status", nil)
			return
		}
		inv.Status = models.InvoiceStatusSent
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": inv.Status})
}

// PDF: GET /invoices/pdf?id=...
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var inv models.Invoice
	err := h.DB.Preload("Items").Preload("Client").
		Where("id = ? AND user_id = ?", id, userID).First(&inv).Error
	if err != nil {
		writeBillingError(w, err)
		return
	}
	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_user", nil)
		return
	}

	items := make([]pdfgen.InvoiceItem, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, pdfgen.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	data, err := pdfgen.InvoicePDF(pdfgen.InvoiceData{
		Number:      inv.InvoiceNumber,
		IssueDate:   inv.IssueDate.Format("2006-01-02"),
		DueDate:     inv.DueDate.Format("2006-01-02"),
		Status:      inv.Status,
		Currency:    inv.Currency,
		Subtotal:    inv.Subtotal,
		TaxRate:     inv.TaxRate,
		TaxAmount:   inv.TaxAmount,
		TotalAmount: inv.TotalAmount,
		Notes:       inv.Notes,
		Terms:       inv.Terms,
		Items:       items,
		Client: pdfgen.ClientData{
			Name:    inv.Client.Name,
			Email:   inv.Client.Email,
			Address: inv.Client.Address,
			City:    strings.TrimSpace(inv.Client.PostalCode + " " + inv.Client.City),
			Country: inv.Client.Country,
		},
		Company: pdfgen.CompanyData{
			Name:  user.Name,
			Email: user.Email,
		},
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "pdf_generation_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="invoice-`+inv.InvoiceNumber+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
