package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessType controls which students may enter an exam room.
type AccessType string

const (
	AccessTypeAll               AccessType = "ALL"
	AccessTypeClassRestricted   AccessType = "CLASS_RESTRICTED"
	AccessTypeStudentRestricted AccessType = "STUDENT_RESTRICTED"
)

// AttemptType controls how many attempts a student may make.
type AttemptType string

const (
	AttemptTypeSingle    AttemptType = "SINGLE"
	AttemptTypeUnlimited AttemptType = "UNLIMITED"
	AttemptTypeLimited   AttemptType = "LIMITED"
)

// ExamRoom is a configured, schedulable instance of a question bank made
// available to students under access rules. Deactivating a room never
// deletes its historical attempts.
type ExamRoom struct {
	ID               uuid.UUID   `json:"id"`
	Title            string      `json:"title"`
	OwnerID          int         `json:"owner_id"`
	BankID           uuid.UUID   `json:"bank_id"`
	AccessType       AccessType  `json:"access_type"`
	AllowedClassIDs  []int       `json:"allowed_class_ids,omitempty"`
	AllowedStudents  []int       `json:"allowed_student_ids,omitempty"`
	AttemptType      AttemptType `json:"attempt_type"`
	MaxAttempts      int         `json:"max_attempts,omitempty"` // LIMITED only
	MaxQuestions     int         `json:"max_questions,omitempty"`
	DurationMinutes  int         `json:"duration_minutes"`
	RandomizeOrder   bool        `json:"randomize_order"`
	RandomizeAnswers bool        `json:"randomize_answers"`
	IsActive         bool        `json:"is_active"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// DurationSeconds returns the room duration as the maximum valid time_spent.
func (r ExamRoom) DurationSeconds() int {
	return r.DurationMinutes * 60
}

// CreateExamRoomRequest is the payload for creating a new exam room.
type CreateExamRoomRequest struct {
	Title            string    `json:"title" binding:"required,min=3,max=255"`
	BankID           uuid.UUID `json:"bank_id" binding:"required"`
	AccessType       string    `json:"access_type" binding:"required,oneof=ALL CLASS_RESTRICTED STUDENT_RESTRICTED"`
	AllowedClassIDs  []int     `json:"allowed_class_ids" binding:"omitempty"`
	AllowedStudents  []int     `json:"allowed_student_ids" binding:"omitempty"`
	AttemptType      string    `json:"attempt_type" binding:"required,oneof=SINGLE UNLIMITED LIMITED"`
	MaxAttempts      int       `json:"max_attempts" binding:"omitempty,min=1,max=100"`
	MaxQuestions     int       `json:"max_questions" binding:"omitempty,min=1"`
	DurationMinutes  int       `json:"duration_minutes" binding:"required,min=1,max=480"`
	RandomizeOrder   bool      `json:"randomize_order"`
	RandomizeAnswers bool      `json:"randomize_answers"`
}

// UpdateExamRoomRequest is the payload for updating an existing exam room.
type UpdateExamRoomRequest struct {
	Title            string `json:"title" binding:"omitempty,min=3,max=255"`
	AccessType       string `json:"access_type" binding:"omitempty,oneof=ALL CLASS_RESTRICTED STUDENT_RESTRICTED"`
	AllowedClassIDs  []int  `json:"allowed_class_ids" binding:"omitempty"`
	AllowedStudents  []int  `json:"allowed_student_ids" binding:"omitempty"`
	AttemptType      string `json:"attempt_type" binding:"omitempty,oneof=SINGLE UNLIMITED LIMITED"`
	MaxAttempts      *int   `json:"max_attempts" binding:"omitempty,min=1,max=100"`
	MaxQuestions     *int   `json:"max_questions" binding:"omitempty,min=0"`
	DurationMinutes  int    `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	RandomizeOrder   *bool  `json:"randomize_order" binding:"omitempty"`
	RandomizeAnswers *bool  `json:"randomize_answers" binding:"omitempty"`
	IsActive         *bool  `json:"is_active" binding:"omitempty"`
}
