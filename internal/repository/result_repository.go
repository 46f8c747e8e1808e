package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResultRepository handles read access to immutable exam results. Writes
// happen inside the attempt ledger's terminal transitions; this side is
// read-heavy reporting.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

const resultColumns = `r.attempt_id, r.exam_room_id, r.student_id, r.total_questions, r.correct_answers,
	r.wrong_answers, r.unanswered, r.total_points, r.earned_points, r.percentage, r.grade,
	r.time_spent_seconds, r.violations, r.created_at`

func scanResultInto(res *model.ExamResult, violations *[]byte, dest ...any) []any {
	base := []any{&res.AttemptID, &res.ExamRoomID, &res.StudentID, &res.TotalQuestions,
		&res.CorrectAnswers, &res.WrongAnswers, &res.Unanswered, &res.TotalPoints,
		&res.EarnedPoints, &res.Percentage, &res.Grade, &res.TimeSpentSeconds,
		violations, &res.CreatedAt}
	return append(base, dest...)
}

func decodeViolations(res *model.ExamResult, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &res.Violations); err != nil {
		return fmt.Errorf("decode violations snapshot: %w", err)
	}
	return nil
}

// GetByAttempt retrieves the result for a single attempt.
func (r *ResultRepository) GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.ExamResult, error) {
	res := &model.ExamResult{}
	var violations []byte
	err := r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM exam_results r WHERE r.attempt_id = $1`, attemptID,
	).Scan(scanResultInto(res, &violations)...)
	if err != nil {
		return nil, err
	}
	if err := decodeViolations(res, violations); err != nil {
		return nil, err
	}
	return res, nil
}

// ListByRoom retrieves a room's results joined with student identity,
// best score first, paginated.
func (r *ResultRepository) ListByRoom(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]model.RoomResultRow, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_results WHERE exam_room_id = $1`, roomID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+`, a.status, s.name, s.username, c.name
		 FROM exam_results r
		 JOIN exam_attempts a ON a.id = r.attempt_id
		 JOIN students s ON s.id = r.student_id
		 JOIN classes c ON c.id = s.class_id
		 WHERE r.exam_room_id = $1
		 ORDER BY r.percentage DESC, r.created_at
		 LIMIT $2 OFFSET $3`, roomID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []model.RoomResultRow
	for rows.Next() {
		var row model.RoomResultRow
		var violations []byte
		if err := rows.Scan(scanResultInto(&row.ExamResult, &violations,
			&row.Status, &row.StudentName, &row.Username, &row.ClassName)...); err != nil {
			return nil, 0, err
		}
		if err := decodeViolations(&row.ExamResult, violations); err != nil {
			return nil, 0, err
		}
		results = append(results, row)
	}
	return results, total, rows.Err()
}

// ListByStudent retrieves a student's attempt history, newest first.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID int) ([]model.StudentHistoryRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+`, a.status, e.title
		 FROM exam_results r
		 JOIN exam_attempts a ON a.id = r.attempt_id
		 JOIN exam_rooms e ON e.id = r.exam_room_id
		 WHERE r.student_id = $1
		 ORDER BY r.created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []model.StudentHistoryRow
	for rows.Next() {
		var row model.StudentHistoryRow
		var violations []byte
		if err := rows.Scan(scanResultInto(&row.ExamResult, &violations,
			&row.Status, &row.RoomTitle)...); err != nil {
			return nil, err
		}
		if err := decodeViolations(&row.ExamResult, violations); err != nil {
			return nil, err
		}
		history = append(history, row)
	}
	return history, rows.Err()
}

// RoomSummary aggregates attempt and score statistics for one room.
func (r *ResultRepository) RoomSummary(ctx context.Context, roomID uuid.UUID) (*model.RoomSummary, error) {
	summary := &model.RoomSummary{RoomID: roomID}
	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE a.status = 'IN_PROGRESS'),
			COUNT(*) FILTER (WHERE a.status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE a.status = 'TERMINATED'),
			COALESCE(AVG(r.percentage) FILTER (WHERE a.status = 'COMPLETED'), 0),
			COALESCE(MAX(r.percentage) FILTER (WHERE a.status = 'COMPLETED'), 0),
			COALESCE(MIN(r.percentage) FILTER (WHERE a.status = 'COMPLETED'), 0)
		 FROM exam_attempts a
		 LEFT JOIN exam_results r ON r.attempt_id = a.id
		 WHERE a.exam_room_id = $1`, roomID,
	).Scan(&summary.InProgress, &summary.Completed, &summary.Terminated,
		&summary.AveragePercentage, &summary.HighestPercentage, &summary.LowestPercentage)
	if err != nil {
		return nil, err
	}
	return summary, nil
}
