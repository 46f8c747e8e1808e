package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/examgate/examgate-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
)

// ClassHandler handles staff-facing class management (CRUD).
type ClassHandler struct {
	classService *service.ClassService
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(classService *service.ClassService) *ClassHandler {
	return &ClassHandler{classService: classService}
}

// ListClasses godoc
// GET /api/v1/staff/classes
// Lists all classes without pagination.
func (h *ClassHandler) ListClasses(c *gin.Context) {
	classes, err := h.classService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"classes": classes})
}

// CreateClass godoc
// POST /api/v1/staff/classes
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req model.CreateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class := &model.Class{Name: req.Name}
	if err := h.classService.Create(c.Request.Context(), class); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"class": class})
}

// UpdateClass godoc
// PUT /api/v1/staff/classes/:id
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.CreateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class := &model.Class{ID: id, Name: req.Name}
	if err := h.classService.Update(c.Request.Context(), class); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// DeleteClass godoc
// DELETE /api/v1/staff/classes/:id
// Fails with a conflict while students are still attached.
func (h *ClassHandler) DeleteClass(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.classService.Delete(c.Request.Context(), id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "class deleted successfully"})
}
