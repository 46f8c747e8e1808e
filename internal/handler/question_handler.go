package handler

import (
	"errors"
	"net/http"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/examgate/examgate-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// QuestionHandler handles staff-facing question bank and question management.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListBanks godoc
// GET /api/v1/staff/banks
func (h *QuestionHandler) ListBanks(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	banks, err := h.questionService.ListBanks(c.Request.Context(), staff.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"banks": banks})
}

// GetBank godoc
// GET /api/v1/staff/banks/:bank_id
func (h *QuestionHandler) GetBank(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	bankID, err := uuid.Parse(c.Param("bank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	bank, err := h.questionService.GetOwnedBank(c.Request.Context(), staff, bankID)
	if err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"bank": bank})
}

// CreateBank godoc
// POST /api/v1/staff/banks
func (h *QuestionHandler) CreateBank(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateQuestionBankRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	bank, err := h.questionService.CreateBank(c.Request.Context(), staff, &req)
	if err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"bank": bank})
}

// UpdateBank godoc
// PUT /api/v1/staff/banks/:bank_id
func (h *QuestionHandler) UpdateBank(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	bankID, err := uuid.Parse(c.Param("bank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateQuestionBankRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	bank, err := h.questionService.UpdateBank(c.Request.Context(), staff, bankID, &req)
	if err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"bank": bank})
}

// DeleteBank godoc
// DELETE /api/v1/staff/banks/:bank_id
// Fails with a conflict while exam rooms still reference the bank.
func (h *QuestionHandler) DeleteBank(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	bankID, err := uuid.Parse(c.Param("bank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.DeleteBank(c.Request.Context(), staff, bankID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			response.Fail(c, http.StatusConflict, response.ErrDependencyExists)
			return
		}
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "bank deleted successfully"})
}

// ListQuestions godoc
// GET /api/v1/staff/banks/:bank_id/questions
// Returns the bank's questions in order, answer keys included.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	bankID, err := uuid.Parse(c.Param("bank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questions, err := h.questionService.ListQuestions(c.Request.Context(), staff, bankID)
	if err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddQuestion godoc
// POST /api/v1/staff/banks/:bank_id/questions
func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	bankID, err := uuid.Parse(c.Param("bank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.AddQuestion(c.Request.Context(), staff, bankID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuestion) {
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation,
				map[string]string{"detail": err.Error()})
			return
		}
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ReplaceQuestions godoc
// PUT /api/v1/staff/banks/:bank_id/questions
// Bulk-replaces the bank's questions. Questions referenced by started
// attempts survive so those attempts stay scorable.
func (h *QuestionHandler) ReplaceQuestions(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	bankID, err := uuid.Parse(c.Param("bank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.questionService.ReplaceQuestions(c.Request.Context(), staff, bankID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuestion) {
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation,
				map[string]string{"detail": err.Error()})
			return
		}
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// DeleteQuestion godoc
// DELETE /api/v1/staff/banks/:bank_id/questions/:question_id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	bankID, err := uuid.Parse(c.Param("bank_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.DeleteQuestion(c.Request.Context(), staff, bankID, questionID); err != nil {
		failStaff(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "question deleted successfully"})
}
