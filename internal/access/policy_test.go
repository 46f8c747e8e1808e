package access

import (
	"testing"

	"github.com/examgate/examgate-backend/internal/model"
)

func activeStudent(id, classID int) model.Student {
	return model.Student{ID: id, ClassID: classID, Status: model.StudentStatusActive}
}

func openRoom(accessType model.AccessType) model.ExamRoom {
	return model.ExamRoom{AccessType: accessType, IsActive: true}
}

func TestEvaluate(t *testing.T) {
	classRoom := openRoom(model.AccessTypeClassRestricted)
	classRoom.AllowedClassIDs = []int{10, 11}

	studentRoom := openRoom(model.AccessTypeStudentRestricted)
	studentRoom.AllowedStudents = []int{7}

	inactiveRoom := openRoom(model.AccessTypeAll)
	inactiveRoom.IsActive = false

	suspended := activeStudent(7, 10)
	suspended.Status = model.StudentStatusSuspended

	tests := []struct {
		name    string
		student model.Student
		room    model.ExamRoom
		allowed bool
		reason  DenyReason
	}{
		{"inactive room denies everyone", activeStudent(7, 10), inactiveRoom, false, DenyRoomInactive},
		{"suspended student denied", suspended, openRoom(model.AccessTypeAll), false, DenyStudentInactive},
		{"open room allows any active student", activeStudent(99, 42), openRoom(model.AccessTypeAll), true, ""},
		{"class restricted allows member class", activeStudent(7, 11), classRoom, true, ""},
		{"class restricted denies other class", activeStudent(7, 12), classRoom, false, DenyAccessDenied},
		{"student restricted allows listed student", activeStudent(7, 99), studentRoom, true, ""},
		{"student restricted denies unlisted student", activeStudent(8, 99), studentRoom, false, DenyAccessDenied},
		{"unknown access type denies", activeStudent(7, 10), openRoom(model.AccessType("BOGUS")), false, DenyAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.student, tt.room)
			if d.Allowed != tt.allowed {
				t.Fatalf("Allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if !tt.allowed && d.Reason != tt.reason {
				t.Fatalf("Reason = %q, want %q", d.Reason, tt.reason)
			}
		})
	}
}

func TestEvaluateRoomInactiveWinsOverSuspension(t *testing.T) {
	// Rule order matters: ROOM_INACTIVE is reported before STUDENT_INACTIVE.
	room := openRoom(model.AccessTypeAll)
	room.IsActive = false
	student := activeStudent(1, 1)
	student.Status = model.StudentStatusSuspended

	if d := Evaluate(student, room); d.Reason != DenyRoomInactive {
		t.Fatalf("Reason = %q, want %q", d.Reason, DenyRoomInactive)
	}
}
