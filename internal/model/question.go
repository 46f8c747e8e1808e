package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionTypeMultiAnswer    QuestionType = "MULTI_ANSWER"
	QuestionTypeEssay          QuestionType = "ESSAY"
)

// AnswerOption is a single selectable option. Value is the stable identity
// used by answer keys and submissions; Text is what the client renders.
// Keys reference options by value, never by position, so shuffling the
// option list can never desynchronize scoring.
type AnswerOption struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Question represents a single bank question.
//
// CorrectKey holds the answer key: an option value for MULTIPLE_CHOICE and
// TRUE_FALSE, a JSON array of option values for MULTI_ANSWER, and empty for
// ESSAY (manually reviewed, never auto-credited).
type Question struct {
	ID           uuid.UUID      `json:"id"`
	BankID       uuid.UUID      `json:"bank_id"`
	QuestionText string         `json:"question_text"`
	QuestionType QuestionType   `json:"question_type"`
	Options      []AnswerOption `json:"options"`
	CorrectKey   string         `json:"correct_key"`
	Points       float64        `json:"points"`
	OrderNum     int            `json:"order_num"`
}

// QuestionForStudent is a question stripped of every field that would leak
// the correct answer to the client.
type QuestionForStudent struct {
	ID           uuid.UUID      `json:"id"`
	QuestionText string         `json:"question_text"`
	QuestionType QuestionType   `json:"question_type"`
	Options      []AnswerOption `json:"options"`
	OrderNum     int            `json:"order_num"`
}

// ForStudent returns the client-safe projection of the question.
func (q Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		QuestionType: q.QuestionType,
		Options:      q.Options,
		OrderNum:     q.OrderNum,
	}
}

// AddQuestionRequest is the payload for adding a question to a bank.
type AddQuestionRequest struct {
	QuestionText string         `json:"question_text" binding:"required,min=1,max=4000"`
	QuestionType string         `json:"question_type" binding:"required,oneof=MULTIPLE_CHOICE TRUE_FALSE MULTI_ANSWER ESSAY"`
	Options      []AnswerOption `json:"options" binding:"omitempty,dive"`
	CorrectKey   string         `json:"correct_key" binding:"omitempty,max=500"`
	Points       float64        `json:"points" binding:"omitempty,min=0"`
	OrderNum     int            `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a bank's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
