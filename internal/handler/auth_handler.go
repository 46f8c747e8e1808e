package handler

import (
	"errors"
	"net/http"

	"github.com/examgate/examgate-backend/internal/middleware"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/examgate/examgate-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService    *service.AuthService
	studentService *service.StudentService
	staffService   *service.StaffService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	studentService *service.StudentService,
	staffService *service.StaffService,
) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		studentService: studentService,
		staffService:   staffService,
	}
}

// StudentLogin godoc
// POST /api/v1/auth/student/login
// Validates username + password, rejects if another device holds the
// session, returns JWT.
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req model.StudentLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(student.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if student.Status != model.StudentStatusActive {
		response.Fail(c, http.StatusForbidden, response.ErrStudentInactive)
		return
	}

	token, err := h.authService.GenerateStudentToken(c.Request.Context(), student.ID, student.ClassID)
	if err != nil {
		if errors.Is(err, service.ErrSessionAlreadyActive) {
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.StudentLoginResponse{
		Token:   token,
		Student: *student,
	})
}

// StaffLogin godoc
// POST /api/v1/auth/staff/login
// Validates email + password, returns JWT carrying the staff role.
func (h *AuthHandler) StaffLogin(c *gin.Context) {
	var req model.StaffLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	staff, err := h.staffService.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(staff.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateStaffToken(staff.ID, staff.Role)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.StaffLoginResponse{
		Token: token,
		Staff: *staff,
	})
}

// GetStudentProfile godoc
// GET /api/v1/auth/student/me
// Returns the profile of the currently authenticated student.
func (h *AuthHandler) GetStudentProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// GetStaffProfile godoc
// GET /api/v1/auth/staff/me
// Returns the profile of the currently authenticated teacher or admin.
func (h *AuthHandler) GetStaffProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	staff, err := h.staffService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"staff": staff})
}

// StudentLogout godoc
// POST /api/v1/auth/student/logout
// Clears the student's single-device session.
func (h *AuthHandler) StudentLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
