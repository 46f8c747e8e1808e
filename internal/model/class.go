package model

import "time"

// Class groups students for room access restriction.
type Class struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateClassRequest is the payload for creating a new class.
type CreateClassRequest struct {
	Name string `json:"name" binding:"required,min=1,max=50"`
}
