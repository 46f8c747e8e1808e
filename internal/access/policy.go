// Package access decides whether a student may enter an exam room.
// It is pure: no storage, no clock, no side effects.
package access

import "github.com/examgate/examgate-backend/internal/model"

// DenyReason identifies why entry was refused.
type DenyReason string

const (
	DenyRoomInactive    DenyReason = "ROOM_INACTIVE"
	DenyStudentInactive DenyReason = "STUDENT_INACTIVE"
	DenyAccessDenied    DenyReason = "ACCESS_DENIED"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed bool
	Reason  DenyReason // set only when denied
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Reason: r} }

// Evaluate applies the room's access rules to the student, in order:
// room must be active, student must be active, then the room's access type
// decides against its allow-lists. Anything else is denied.
func Evaluate(student model.Student, room model.ExamRoom) Decision {
	if !room.IsActive {
		return deny(DenyRoomInactive)
	}
	if student.Status != model.StudentStatusActive {
		return deny(DenyStudentInactive)
	}

	switch room.AccessType {
	case model.AccessTypeAll:
		return allow()
	case model.AccessTypeClassRestricted:
		for _, id := range room.AllowedClassIDs {
			if id == student.ClassID {
				return allow()
			}
		}
	case model.AccessTypeStudentRestricted:
		for _, id := range room.AllowedStudents {
			if id == student.ID {
				return allow()
			}
		}
	}

	return deny(DenyAccessDenied)
}
