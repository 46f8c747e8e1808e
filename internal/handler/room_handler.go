package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examgate/examgate-backend/internal/middleware"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/examgate/examgate-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// staffFromClaims builds the acting staff identity from the verified JWT.
// Ownership checks only need the ID and role.
func staffFromClaims(c *gin.Context) *model.Staff {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return nil
	}
	return &model.Staff{ID: claims.UserID, Role: claims.Role}
}

// failStaff translates staff-facing service sentinels into API error codes.
func failStaff(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotRoomOwner)
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrInvalidState):
		response.Fail(c, http.StatusConflict, response.ErrInvalidState)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// RoomHandler handles staff-facing exam room management and reporting.
type RoomHandler struct {
	roomService    *service.RoomService
	attemptService *service.AttemptService
	staffService   *service.StaffService
}

// NewRoomHandler creates a new RoomHandler.
func NewRoomHandler(roomService *service.RoomService, attemptService *service.AttemptService, staffService *service.StaffService) *RoomHandler {
	return &RoomHandler{
		roomService:    roomService,
		attemptService: attemptService,
		staffService:   staffService,
	}
}

// ListRooms godoc
// GET /api/v1/staff/rooms
// Lists the rooms owned by the requesting teacher.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	rooms, err := h.roomService.ListOwned(c.Request.Context(), staff.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom godoc
// GET /api/v1/staff/rooms/:room_id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	room, err := h.roomService.GetOwned(c.Request.Context(), staff, roomID)
	if err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// CreateRoom godoc
// POST /api/v1/staff/rooms
// Creates a room over an owned question bank. Rooms are born inactive.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateExamRoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), staff, &req)
	if err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"room": room})
}

// UpdateRoom godoc
// PUT /api/v1/staff/rooms/:room_id
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateExamRoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room, err := h.roomService.Update(c.Request.Context(), staff, roomID, &req)
	if err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// SetRoomActive godoc
// POST /api/v1/staff/rooms/:room_id/activate
// POST /api/v1/staff/rooms/:room_id/deactivate
func (h *RoomHandler) SetRoomActive(active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff := staffFromClaims(c)
		if staff == nil {
			response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		roomID, err := uuid.Parse(c.Param("room_id"))
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}

		if err := h.roomService.SetActive(c.Request.Context(), staff, roomID, active); err != nil {
			failStaff(c, err)
			return
		}

		response.Success(c, http.StatusOK, gin.H{"is_active": active})
	}
}

// DeleteRoom godoc
// DELETE /api/v1/staff/rooms/:room_id
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.roomService.Delete(c.Request.Context(), staff, roomID); err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "room deleted successfully"})
}

// GetRoomResults godoc
// GET /api/v1/staff/rooms/:room_id/results?page=&per_page=
// Paginated result sheet for a room, best score first.
func (h *RoomHandler) GetRoomResults(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "25"))

	results, pagination, err := h.roomService.Results(c.Request.Context(), staff, roomID, page, perPage)
	if err != nil {
		failStaff(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

// GetRoomSummary godoc
// GET /api/v1/staff/rooms/:room_id/summary
// Aggregate stats: attempt counts per status, average/highest/lowest.
func (h *RoomHandler) GetRoomSummary(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summary, err := h.roomService.Summary(c.Request.Context(), staff, roomID)
	if err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

// terminateRequest is the payload for force-ending attempts.
type terminateRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// TerminateAttempt godoc
// POST /api/v1/staff/attempts/:attempt_id/terminate
// Force-ends a single in-progress attempt.
func (h *RoomHandler) TerminateAttempt(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req terminateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	count, err := h.attemptService.ExecTerminate(c.Request.Context(), staff, model.TerminateOne{
		AttemptID: attemptID,
		Reason:    req.Reason,
	})
	if err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"terminated": count})
}

// TerminateRoomAttempts godoc
// POST /api/v1/staff/rooms/:room_id/terminate
// Force-ends every in-progress attempt in the room.
func (h *RoomHandler) TerminateRoomAttempts(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req terminateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	count, err := h.attemptService.ExecTerminate(c.Request.Context(), staff, model.TerminateAll{
		RoomID: roomID,
		Reason: req.Reason,
	})
	if err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"terminated": count})
}

// GetAttemptViolations godoc
// GET /api/v1/staff/attempts/:attempt_id/violations
// Full violation log for one attempt, oldest first.
func (h *RoomHandler) GetAttemptViolations(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	violations, err := h.attemptService.Violations(c.Request.Context(), attemptID)
	if err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"violations": violations})
}
