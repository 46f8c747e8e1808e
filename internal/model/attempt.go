package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates exam attempt states. IN_PROGRESS transitions to
// COMPLETED or TERMINATED; both are terminal.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
	AttemptStatusTerminated AttemptStatus = "TERMINATED"
)

// ViolationKind tags a recorded proctoring-integrity event.
type ViolationKind string

const (
	ViolationFullscreenExit ViolationKind = "FULLSCREEN_EXIT"
	ViolationContextMenu    ViolationKind = "CONTEXT_MENU"
	ViolationClipboard      ViolationKind = "CLIPBOARD"
	ViolationDevtools       ViolationKind = "DEVTOOLS"
	ViolationTerminated     ViolationKind = "TERMINATED"
)

// Violation is one proctoring event recorded against an attempt. The list is
// append-only; duplicates from client retries are tolerated.
type Violation struct {
	ID         int           `json:"id"`
	AttemptID  uuid.UUID     `json:"attempt_id"`
	Kind       ViolationKind `json:"kind"`
	Detail     string        `json:"detail,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// ExamAttempt represents one student's timed pass at an exam room. It is the
// sole authority for attempt-limit enforcement and is never deleted by
// normal operation.
type ExamAttempt struct {
	ID               uuid.UUID     `json:"id"`
	ExamRoomID       uuid.UUID     `json:"exam_room_id"`
	StudentID        int           `json:"student_id"`
	Status           AttemptStatus `json:"status"`
	QuestionIDs      []uuid.UUID   `json:"question_ids"` // composed set, frozen at start
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       *time.Time    `json:"finished_at,omitempty"`
	TimeSpentSeconds *int          `json:"time_spent_seconds,omitempty"`
	IPAddress        string        `json:"ip_address,omitempty"`
	UserAgent        string        `json:"user_agent,omitempty"`
}

// ClientMeta captures audit metadata from the starting request.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// ExamAnswer is a student's submitted answer to one question within one
// attempt. Keyed by (attempt, question); upserts are idempotent.
type ExamAnswer struct {
	AttemptID        uuid.UUID `json:"attempt_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	Answer           string    `json:"answer"`
	IsCorrect        *bool     `json:"is_correct,omitempty"`
	PointsEarned     float64   `json:"points_earned"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ExamResult is the immutable scoring outcome of a completed or terminated
// attempt. Created once; read-heavy for history and reporting.
type ExamResult struct {
	AttemptID        uuid.UUID   `json:"attempt_id"`
	ExamRoomID       uuid.UUID   `json:"exam_room_id"`
	StudentID        int         `json:"student_id"`
	TotalQuestions   int         `json:"total_questions"`
	CorrectAnswers   int         `json:"correct_answers"`
	WrongAnswers     int         `json:"wrong_answers"`
	Unanswered       int         `json:"unanswered"`
	TotalPoints      float64     `json:"total_points"`
	EarnedPoints     float64     `json:"earned_points"`
	Percentage       float64     `json:"percentage"`
	Grade            string      `json:"grade"`
	TimeSpentSeconds int         `json:"time_spent_seconds"`
	Violations       []Violation `json:"violations,omitempty"` // snapshot at finish
	CreatedAt        time.Time   `json:"created_at"`
}

// AttemptPayload is returned to the client on start: the composed question
// set (answer keys stripped) plus everything the countdown needs.
type AttemptPayload struct {
	AttemptID uuid.UUID            `json:"attempt_id"`
	RoomID    uuid.UUID            `json:"room_id"`
	Title     string               `json:"title"`
	Duration  int                  `json:"duration_minutes"`
	StartedAt time.Time            `json:"started_at"`
	Resumed   bool                 `json:"resumed"`
	Questions []QuestionForStudent `json:"questions"`
}

// AttemptState is returned on page reload: autosaved answers plus remaining time.
type AttemptState struct {
	AttemptID        uuid.UUID         `json:"attempt_id"`
	AutosavedAnswers map[string]string `json:"autosaved_answers"`
	RemainingSeconds float64           `json:"remaining_seconds"`
}

// SaveAnswerRequest is the payload for answering a single question.
type SaveAnswerRequest struct {
	QuestionID       uuid.UUID `json:"question_id" binding:"required"`
	Answer           string    `json:"answer" binding:"required,max=10000"`
	TimeSpentSeconds int       `json:"time_spent_seconds" binding:"omitempty,min=0"`
}

// FinishAttemptRequest is the payload for submitting an attempt for scoring.
// Answers supplied here win over autosaved values for the same question.
type FinishAttemptRequest struct {
	Answers          map[string]string `json:"answers" binding:"omitempty"`
	TimeSpentSeconds int               `json:"time_spent_seconds" binding:"min=0"`
}

// ReportViolationRequest is the payload for recording a proctoring event.
type ReportViolationRequest struct {
	Kind   string `json:"kind" binding:"required,oneof=FULLSCREEN_EXIT CONTEXT_MENU CLIPBOARD DEVTOOLS"`
	Detail string `json:"detail" binding:"omitempty,max=1000"`
}
