package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pharmaerp/receivables/internal/interfaces/http/dto"
)

// SettingsHandler handles tenant allocation settings
type SettingsHandler struct {
	BaseHandler
	service SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(service SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// Get handles GET /settings
func (h *SettingsHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	st, err := h.service.Get(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// Update handles PUT /settings/:key
func (h *SettingsHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.UpdateSettingRequest
	if !h.bindJSON(c, &req) {
		return
	}
	st, err := h.service.Update(c.Request.Context(), tenantID, c.Param("key"), req.Value)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}
