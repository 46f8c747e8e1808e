package model

import "github.com/google/uuid"

// RoomResultRow is one row of a teacher-facing room results listing:
// the scoring outcome joined with student identity.
type RoomResultRow struct {
	ExamResult
	Status      AttemptStatus `json:"status"`
	StudentName string        `json:"student_name"`
	Username    string        `json:"username"`
	ClassName   string        `json:"class_name"`
}

// StudentHistoryRow is one row of a student's own attempt history.
type StudentHistoryRow struct {
	ExamResult
	Status    AttemptStatus `json:"status"`
	RoomTitle string        `json:"room_title"`
}

// RoomSummary aggregates outcomes for one exam room.
type RoomSummary struct {
	RoomID            uuid.UUID `json:"room_id"`
	InProgress        int       `json:"in_progress"`
	Completed         int       `json:"completed"`
	Terminated        int       `json:"terminated"`
	AveragePercentage float64   `json:"average_percentage"`
	HighestPercentage float64   `json:"highest_percentage"`
	LowestPercentage  float64   `json:"lowest_percentage"`
}
