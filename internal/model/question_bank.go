package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionBank is a reusable, teacher-owned collection of questions,
// independent of any specific exam room.
type QuestionBank struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       int       `json:"owner_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateQuestionBankRequest is the payload for creating a question bank.
type CreateQuestionBankRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=255"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

// UpdateQuestionBankRequest is the payload for updating a question bank.
type UpdateQuestionBankRequest struct {
	Title       string `json:"title" binding:"required,min=3,max=255"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}
