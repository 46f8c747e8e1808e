package model

import (
	"time"

	"github.com/google/uuid"
)

// MonitorEventType tags a live monitoring event.
type MonitorEventType string

const (
	MonitorEventStarted    MonitorEventType = "ATTEMPT_STARTED"
	MonitorEventAnswered   MonitorEventType = "ANSWER_SAVED"
	MonitorEventViolation  MonitorEventType = "VIOLATION"
	MonitorEventCompleted  MonitorEventType = "ATTEMPT_COMPLETED"
	MonitorEventTerminated MonitorEventType = "ATTEMPT_TERMINATED"
)

// MonitorEvent is one item on a room's live monitoring feed, published to
// Redis pub/sub and relayed to teachers over SSE.
type MonitorEvent struct {
	Type        MonitorEventType `json:"type"`
	AttemptID   uuid.UUID        `json:"attempt_id"`
	StudentID   int              `json:"student_id"`
	StudentName string           `json:"student_name,omitempty"`
	Detail      string           `json:"detail,omitempty"`
	At          time.Time        `json:"at"`
}

// MonitorSnapshot is the initial state sent when a teacher opens the
// monitoring feed: every active attempt with its progress counters.
type MonitorSnapshot struct {
	RoomID   uuid.UUID        `json:"room_id"`
	Attempts []MonitorAttempt `json:"attempts"`
}

// MonitorAttempt is one active attempt's live progress line.
type MonitorAttempt struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	StudentID      int       `json:"student_id"`
	StudentName    string    `json:"student_name"`
	StartedAt      time.Time `json:"started_at"`
	AnsweredCount  int64     `json:"answered_count"`
	ViolationCount int64     `json:"violation_count"`
}
