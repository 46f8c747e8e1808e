package model

import "github.com/google/uuid"

// StudentCommand is a tagged-variant command for staff-initiated student
// management. One constructor per action, switched exhaustively — there is
// no stringly-typed "action" dispatch.
type StudentCommand interface {
	isStudentCommand()
}

// SuspendStudent blocks the student from starting new attempts.
type SuspendStudent struct {
	StudentID int
}

// UnsuspendStudent restores a suspended student.
type UnsuspendStudent struct {
	StudentID int
}

// ResetStudentSession clears the student's single-device login session.
type ResetStudentSession struct {
	StudentID int
}

func (SuspendStudent) isStudentCommand()      {}
func (UnsuspendStudent) isStudentCommand()    {}
func (ResetStudentSession) isStudentCommand() {}

// TerminateCommand is a tagged-variant command for ending in-progress
// attempts, teacher- or system-initiated.
type TerminateCommand interface {
	isTerminateCommand()
}

// TerminateOne ends a single attempt.
type TerminateOne struct {
	AttemptID uuid.UUID
	Reason    string
}

// TerminateAll ends every in-progress attempt in a room.
type TerminateAll struct {
	RoomID uuid.UUID
	Reason string
}

func (TerminateOne) isTerminateCommand() {}
func (TerminateAll) isTerminateCommand() {}
