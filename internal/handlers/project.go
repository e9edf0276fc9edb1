package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/httpx"
	"github.com/factuurlab/factuur/internal/models"
)

type ProjectHandler struct {
	DB *gorm.DB
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{DB: db}
}

type projectRequest struct {
	ClientID uint   `json:"client_id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
}

var projectStatuses = map[string]bool{"active": true, "completed": true, "archived": true}

// List: GET /projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var out []models.Project
	if err := h.DB.Preload("Client").Where("user_id = ?", userID).Order("id desc").Find(&out).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_projects", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

// Create: POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req projectRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.ClientID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required", "client_id": "required"})
		return
	}
	var count int64
	if err := h.DB.Model(&models.Client{}).Where("id = ? AND user_id = ?", req.ClientID, userID).Count(&count).Error; err != nil || count == 0 {
		httpx.JSONError(w, http.StatusNotFound, "client_not_found", nil)
		return
	}
	status := req.Status
	if status == "" {
		status = "active"
	}
	if !projectStatuses[status] {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_status", nil)
		return
	}
	p := models.Project{UserID: userID, ClientID: req.ClientID, Name: strings.TrimSpace(req.Name), Status: status}
	if err := h.DB.Create(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_project", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// Update: PUT /projects?id=...
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var p models.Project
	if !firstOwned(w, h.DB, id, userID, &p) {
		return
	}
	var req projectRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		p.Name = name
	}
	if req.Status != "" {
		if !projectStatuses[req.Status] {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_status", nil)
			return
		}
		p.Status = req.Status
	}
	if err := h.DB.Save(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_project", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Delete: DELETE /projects?id=...
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var p models.Project
	if !firstOwned(w, h.DB, id, userID, &p) {
		return
	}
	if err := h.DB.Delete(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_project", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
