package service

import (
	"errors"

	"github.com/examgate/examgate-backend/internal/access"
)

// Sentinel errors returned by services. Handlers translate these into API
// error codes with errors.Is.
var (
	ErrRoomInactive        = errors.New("exam room is not open")
	ErrStudentInactive     = errors.New("student account is suspended")
	ErrAccessDenied        = errors.New("student is not allowed in this exam room")
	ErrDuplicateAttempt    = errors.New("exam already completed")
	ErrAttemptLimitReached = errors.New("attempt limit reached")
	ErrInvalidState        = errors.New("attempt is already closed")
	ErrNoQuestions         = errors.New("exam room has no questions")
	ErrNotOwner            = errors.New("not the owner of this resource")
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidQuestion     = errors.New("invalid question")
)

// denyError maps an access policy decision to the matching sentinel.
func denyError(reason access.DenyReason) error {
	switch reason {
	case access.DenyRoomInactive:
		return ErrRoomInactive
	case access.DenyStudentInactive:
		return ErrStudentInactive
	default:
		return ErrAccessDenied
	}
}
