package model

import "time"

// StaffRole distinguishes teachers from administrators.
type StaffRole string

const (
	StaffRoleTeacher StaffRole = "TEACHER"
	StaffRoleAdmin   StaffRole = "ADMIN"
)

// Staff represents a teacher or administrator account.
type Staff struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         StaffRole `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StaffLoginRequest is the payload for teacher/admin authentication.
type StaffLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// StaffLoginResponse is returned after successful staff login.
type StaffLoginResponse struct {
	Token string `json:"token"`
	Staff Staff  `json:"staff"`
}
