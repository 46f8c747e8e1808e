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
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// StudentManagementHandler handles staff-facing student account management.
type StudentManagementHandler struct {
	studentService *service.StudentService
	roomService    *service.RoomService
}

// NewStudentManagementHandler creates a new StudentManagementHandler.
func NewStudentManagementHandler(studentService *service.StudentService, roomService *service.RoomService) *StudentManagementHandler {
	return &StudentManagementHandler{
		studentService: studentService,
		roomService:    roomService,
	}
}

// ListStudents godoc
// GET /api/v1/staff/students?class_id=&page=&per_page=
func (h *StudentManagementHandler) ListStudents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	var classID *int
	if raw := c.Query("class_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		classID = &id
	}

	students, pagination, err := h.studentService.ListStudents(c.Request.Context(), classID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": students}, pagination)
}

// GetStudent godoc
// GET /api/v1/staff/students/:id
func (h *StudentManagementHandler) GetStudent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// GetStudentHistory godoc
// GET /api/v1/staff/students/:id/history
// A student's full result history across rooms, for counseling reviews.
func (h *StudentManagementHandler) GetStudentHistory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	history, err := h.roomService.StudentHistory(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"history": history})
}

// CreateStudent godoc
// POST /api/v1/staff/students
func (h *StudentManagementHandler) CreateStudent(c *gin.Context) {
	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student := &model.Student{
		Username: req.Username,
		Name:     req.Name,
		ClassID:  req.ClassID,
	}

	if err := h.studentService.Create(c.Request.Context(), student, req.Password); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"student": student})
}

// UpdateStudent godoc
// PUT /api/v1/staff/students/:id
// Updates profile fields; a non-empty password field also rotates the password.
func (h *StudentManagementHandler) UpdateStudent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	student.Username = req.Username
	student.Name = req.Name
	student.ClassID = req.ClassID

	if err := h.studentService.Update(c.Request.Context(), student, req.Password); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// execStudentCommand runs a student command and writes a uniform response.
func (h *StudentManagementHandler) execStudentCommand(c *gin.Context, cmd model.StudentCommand) {
	if err := h.studentService.Exec(c.Request.Context(), cmd); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// SuspendStudent godoc
// POST /api/v1/staff/students/:id/suspend
// A suspended student cannot log in or start new attempts; in-progress
// attempts are unaffected.
func (h *StudentManagementHandler) SuspendStudent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	h.execStudentCommand(c, model.SuspendStudent{StudentID: id})
}

// UnsuspendStudent godoc
// POST /api/v1/staff/students/:id/unsuspend
func (h *StudentManagementHandler) UnsuspendStudent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	h.execStudentCommand(c, model.UnsuspendStudent{StudentID: id})
}

// ResetStudentSession godoc
// POST /api/v1/staff/students/:id/reset-session
// Clears the single-device login lock so the student can sign in again.
func (h *StudentManagementHandler) ResetStudentSession(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	h.execStudentCommand(c, model.ResetStudentSession{StudentID: id})
}

// DeleteStudent godoc
// DELETE /api/v1/staff/students/:id
// Fails with a conflict while attempts still reference the student.
func (h *StudentManagementHandler) DeleteStudent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.studentService.Delete(c.Request.Context(), id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "student deleted successfully"})
}
