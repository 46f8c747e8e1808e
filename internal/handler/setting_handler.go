package handler

import (
	"net/http"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/examgate/examgate-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// SettingHandler handles admin-facing application settings, including the
// grade scale.
type SettingHandler struct {
	settingService *service.SettingService
}

// NewSettingHandler creates a new SettingHandler.
func NewSettingHandler(settingService *service.SettingService) *SettingHandler {
	return &SettingHandler{settingService: settingService}
}

// GetSettings godoc
// GET /api/v1/staff/settings
func (h *SettingHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingService.GetAllSettings(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"settings": settings})
}

// UpdateSetting godoc
// PUT /api/v1/staff/settings/:key
// Grade band updates take effect for attempts finished afterwards; stored
// results keep the grade they were assigned.
func (h *SettingHandler) UpdateSetting(c *gin.Context) {
	key := c.Param("key")

	var req model.UpdateSettingRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.settingService.UpdateSetting(c.Request.Context(), key, req.Value); err != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation,
			map[string]string{"value": err.Error()})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"key": key, "value": req.Value})
}
