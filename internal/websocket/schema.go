package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
	ActionViolation Action = "violation"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest is sent by the client to save a single answer.
type AutosaveRequest struct {
	Action    Action `json:"action"`
	QID       string `json:"q_id"`
	Answer    string `json:"ans"`
	TimeSpent int    `json:"time_spent"`
}

// ViolationRequest is sent by the client to report a proctoring event.
type ViolationRequest struct {
	Action Action `json:"action"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// SubmitRequest is sent by the client to finish and grade the attempt.
// Answers included here win over autosaved values.
type SubmitRequest struct {
	Action    Action            `json:"action"`
	Answers   map[string]string `json:"answers,omitempty"`
	TimeSpent int               `json:"time_spent"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSuccess    Event = "success"
	EventGraded     Event = "graded"
	EventPong       Event = "pong"
	EventTerminated Event = "terminated"
)

type AutosaveResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

type GradedResponse struct {
	Event      Event   `json:"event"`
	Status     string  `json:"status"`
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade"`
}

type TerminatedResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
