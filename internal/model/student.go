package model

import "time"

// StudentStatus represents the student's account status.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "ACTIVE"
	StudentStatusSuspended StudentStatus = "SUSPENDED"
)

// Student represents a student user.
type Student struct {
	ID           int           `json:"id"`
	Username     string        `json:"username"`
	Name         string        `json:"name"`
	PasswordHash string        `json:"-"`
	ClassID      int           `json:"class_id"`
	Status       StudentStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}

// CreateStudentRequest is the payload for creating a new student account.
type CreateStudentRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	ClassID  int    `json:"class_id" binding:"required"`
}

// UpdateStudentRequest is the payload for updating an existing student.
type UpdateStudentRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"omitempty,min=6,max=128"`
	ClassID  int    `json:"class_id" binding:"required"`
}
