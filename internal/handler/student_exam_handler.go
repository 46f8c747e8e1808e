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
	"github.com/google/uuid"
)

// StudentExamHandler handles the student-facing attempt lifecycle: lobby,
// start, autosave, finish, violations and history.
type StudentExamHandler struct {
	attemptService *service.AttemptService
	roomService    *service.RoomService
}

// NewStudentExamHandler creates a new StudentExamHandler.
func NewStudentExamHandler(attemptService *service.AttemptService, roomService *service.RoomService) *StudentExamHandler {
	return &StudentExamHandler{
		attemptService: attemptService,
		roomService:    roomService,
	}
}

// failAttempt translates attempt lifecycle sentinels into API error codes.
func failAttempt(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoomInactive):
		response.Fail(c, http.StatusForbidden, response.ErrRoomInactive)
	case errors.Is(err, service.ErrStudentInactive):
		response.Fail(c, http.StatusForbidden, response.ErrStudentInactive)
	case errors.Is(err, service.ErrAccessDenied):
		response.Fail(c, http.StatusForbidden, response.ErrAccessDenied)
	case errors.Is(err, service.ErrDuplicateAttempt):
		response.Fail(c, http.StatusConflict, response.ErrDuplicateAttempt)
	case errors.Is(err, service.ErrAttemptLimitReached):
		response.Fail(c, http.StatusConflict, response.ErrAttemptLimitReached)
	case errors.Is(err, service.ErrInvalidState):
		response.Fail(c, http.StatusConflict, response.ErrInvalidState)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// GetLobby godoc
// GET /api/v1/student/rooms
// Lists active rooms the student may enter, with per-room attempt status.
func (h *StudentExamHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	rooms, err := h.attemptService.Lobby(c.Request.Context(), claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rooms": rooms})
}

// StartAttempt godoc
// POST /api/v1/student/rooms/:room_id/attempts
// Starts a new attempt or resumes an in-progress one. The question set is
// composed and frozen here; re-entry always returns the same set.
func (h *StudentExamHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	meta := model.ClientMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	payload, err := h.attemptService.Start(c.Request.Context(), roomID, claims.UserID, meta)
	if err != nil {
		failAttempt(c, err)
		return
	}

	status := http.StatusCreated
	if payload.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, payload)
}

// GetAttemptState godoc
// GET /api/v1/student/attempts/:attempt_id/state
// Returns autosaved answers and remaining time for page reload recovery.
func (h *StudentExamHandler) GetAttemptState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SaveAnswer godoc
// PUT /api/v1/student/attempts/:attempt_id/answers
// Autosaves a single answer. REST fallback for clients without WebSocket.
func (h *StudentExamHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.SaveAnswer(c.Request.Context(), attemptID, claims.UserID, &req); err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// FinishAttempt godoc
// POST /api/v1/student/attempts/:attempt_id/finish
// Submits the attempt for scoring and returns the final result.
func (h *StudentExamHandler) FinishAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.FinishAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.Finish(c.Request.Context(), attemptID, claims.UserID, &req)
	if err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// ReportViolation godoc
// POST /api/v1/student/attempts/:attempt_id/violations
// Records a proctoring event. When the termination threshold is crossed
// the attempt is force-closed and terminated=true is returned.
func (h *StudentExamHandler) ReportViolation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReportViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	alive, err := h.attemptService.ReportViolation(c.Request.Context(), attemptID, claims.UserID, &req)
	if err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"recorded": true, "terminated": !alive})
}

// GetHistory godoc
// GET /api/v1/student/history
// Lists the student's own past results, newest first.
func (h *StudentExamHandler) GetHistory(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	history, err := h.roomService.StudentHistory(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"history": history})
}

// GetResult godoc
// GET /api/v1/student/attempts/:attempt_id/result
// Returns the student's own result for a closed attempt.
func (h *StudentExamHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.roomService.ResultForAttempt(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}
