package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/examgate/examgate-backend/internal/middleware"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/service"
	ws "github.com/examgate/examgate-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams an attempt over WebSocket: autosaves, violation
// reports and final submission on one connection.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	studentID := claims.UserID

	// Verify ownership and liveness before upgrading.
	if _, err := h.attemptService.State(c.Request.Context(), attemptID, studentID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no active attempt"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, attemptID, studentID, raw)
		case ws.ActionViolation:
			h.handleViolation(conn, wsLog, attemptID, studentID, raw)
		case ws.ActionSubmit:
			// A graded submission is terminal; close after responding.
			h.handleSubmit(conn, wsLog, attemptID, studentID, raw)
			return
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		}
	}
}

func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID, studentID int, raw []byte) {
	var msg ws.AutosaveRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed autosave")
		return
	}

	if msg.QID == "" || msg.Answer == "" {
		ws.WriteError(conn, "q_id and ans are required")
		return
	}

	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}

	req := model.SaveAnswerRequest{
		QuestionID:       questionID,
		Answer:           msg.Answer,
		TimeSpentSeconds: msg.TimeSpent,
	}
	if err := h.attemptService.SaveAnswer(context.Background(), attemptID, studentID, &req); err != nil {
		if errors.Is(err, service.ErrInvalidState) || errors.Is(err, service.ErrNotFound) {
			ws.WriteError(conn, "attempt is closed")
			return
		}
		wsLog.Error().Err(err).Msg("Autosave error")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.AutosaveResponse{Event: ws.EventSuccess, Status: "saved"})
}

func (h *WSHandler) handleViolation(conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID, studentID int, raw []byte) {
	var msg ws.ViolationRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed violation")
		return
	}

	req := model.ReportViolationRequest{Kind: msg.Kind, Detail: msg.Detail}
	alive, err := h.attemptService.ReportViolation(context.Background(), attemptID, studentID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidState) || errors.Is(err, service.ErrNotFound) {
			ws.WriteError(conn, "attempt is closed")
			return
		}
		wsLog.Error().Err(err).Msg("Violation report error")
		ws.WriteError(conn, "report failed")
		return
	}

	if !alive {
		wsLog.Info().Msg("Attempt terminated by violation limit")
		ws.WriteTyped(conn, ws.TerminatedResponse{
			Event:  ws.EventTerminated,
			Reason: "violation limit reached",
		})
		return
	}

	ws.WriteTyped(conn, ws.AutosaveResponse{Event: ws.EventSuccess, Status: "recorded"})
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID, studentID int, raw []byte) {
	var msg ws.SubmitRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed submit")
		return
	}

	req := model.FinishAttemptRequest{
		Answers:          msg.Answers,
		TimeSpentSeconds: msg.TimeSpent,
	}
	result, err := h.attemptService.Finish(context.Background(), attemptID, studentID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidState) {
			ws.WriteError(conn, "attempt is already closed")
			return
		}
		wsLog.Error().Err(err).Msg("Submit error")
		ws.WriteError(conn, "grading failed")
		return
	}

	wsLog.Info().
		Float64("percentage", result.Percentage).
		Str("grade", result.Grade).
		Msg("Attempt submitted and graded")

	ws.WriteTyped(conn, ws.GradedResponse{
		Event:      ws.EventGraded,
		Status:     "completed",
		Percentage: result.Percentage,
		Grade:      result.Grade,
	})
}
