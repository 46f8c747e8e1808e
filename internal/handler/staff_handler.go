package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/examgate/examgate-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// StaffHandler handles admin-only staff account management.
type StaffHandler struct {
	staffService *service.StaffService
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{staffService: staffService}
}

// ListStaff godoc
// GET /api/v1/staff/accounts
func (h *StaffHandler) ListStaff(c *gin.Context) {
	staff, err := h.staffService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"staff": staff})
}

// createStaffRequest is the payload for creating a staff account.
type createStaffRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Role     string `json:"role" binding:"required,oneof=TEACHER ADMIN"`
}

// CreateStaff godoc
// POST /api/v1/staff/accounts
func (h *StaffHandler) CreateStaff(c *gin.Context) {
	var req createStaffRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	staff := &model.Staff{
		Email: req.Email,
		Name:  req.Name,
		Role:  model.StaffRole(req.Role),
	}

	if err := h.staffService.Create(c.Request.Context(), staff, req.Password); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"staff": staff})
}

// changePasswordRequest is the payload for rotating a staff password.
type changePasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// ChangeStaffPassword godoc
// PUT /api/v1/staff/accounts/:id/password
func (h *StaffHandler) ChangeStaffPassword(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req changePasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.staffService.ChangePassword(c.Request.Context(), id, req.Password); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// DeleteStaff godoc
// DELETE /api/v1/staff/accounts/:id
// Admins cannot delete their own account.
func (h *StaffHandler) DeleteStaff(c *gin.Context) {
	actor := staffFromClaims(c)
	if actor == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if id == actor.ID {
		response.Fail(c, http.StatusConflict, response.ErrConflict)
		return
	}

	if err := h.staffService.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "staff deleted successfully"})
}
