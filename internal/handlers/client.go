package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/clients"
	"github.com/factuurlab/factuur/internal/httpx"
	"github.com/factuurlab/factuur/internal/models"
)

type ClientHandler struct {
	DB       *gorm.DB
	Detector *clients.DuplicateDetector
}

func NewClientHandler(db *gorm.DB, detector *clients.DuplicateDetector) *ClientHandler {
	return &ClientHandler{DB: db, Detector: detector}
}

type clientRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	VATNumber  string `json:"vat_number"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Notes      string `json:"notes"`
}

func (req clientRequest) apply(c *models.Client) {
	c.Name = strings.TrimSpace(req.Name)
	c.Email = normalizeEmail(req.Email)
	c.Phone = strings.TrimSpace(req.Phone)
	c.VATNumber = strings.TrimSpace(req.VATNumber)
	c.Address = req.Address
	c.City = req.City
	c.PostalCode = req.PostalCode
	c.Country = req.Country
	c.Notes = req.Notes
}

// List: GET /clients?q=
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	dbq := h.DB.Where("user_id = ?", userID)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(email) LIKE ?", like, like)
	}
	var out []models.Client
	if err := dbq.Order("name").Find(&out).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_clients", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

// Get: GET /clients/show?id=...
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var c models.Client
	if !firstOwned(w, h.DB, id, userID, &c) {
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Create: POST /clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req clientRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required"})
		return
	}
	c := models.Client{UserID: userID}
	req.apply(&c)
	if err := h.DB.Create(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_client", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

// Update: PUT /clients?id=...
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var c models.Client
	if !firstOwned(w, h.DB, id, userID, &c) {
		return
	}
	var req clientRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required"})
		return
	}
	req.apply(&c)
	if err := h.DB.Save(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_client", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Delete: DELETE /clients?id=... — refused while invoices reference the
// client.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var c models.Client
	if !firstOwned(w, h.DB, id, userID, &c) {
		return
	}
	var count int64
	if err := h.DB.Model(&models.Invoice{}).Where("client_id = ?", c.ID).Count(&count).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if count > 0 {
		httpx.JSONError(w, http.StatusConflict, "client_has_invoices", nil)
		return
	}
	if err := h.DB.Delete(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_client", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// CheckDuplicates: POST /clients/check-duplicates
func (h *ClientHandler) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var in clients.CandidateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	matches, err := h.Detector.FindDuplicates(userID, in)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	resp := map[string]any{
		"has_duplicates": len(matches) > 0,
		"matches":        matches,
	}
	if s := clients.SuggestMerge(matches); s != nil {
		resp["merge_suggestion"] = s
	}
	httpx.JSON(w, http.StatusOK, resp)
}
