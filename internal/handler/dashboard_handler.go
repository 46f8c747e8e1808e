package handler

import (
	"net/http"

	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the staff dashboard aggregate.
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetDashboard godoc
// GET /api/v1/staff/dashboard
// Entity counts, attempt status totals, active rooms and recent results.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	data, err := h.dashboardService.GetDashboardData(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, data)
}
