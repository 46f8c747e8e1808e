package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger errors. Services translate these into API error codes.
var (
	// ErrAttemptBlocked is returned by Create when the attempt-limit guard
	// refused the insert (SINGLE room already completed, LIMITED quota used,
	// or a concurrent start won the active-attempt uniqueness race).
	ErrAttemptBlocked = errors.New("attempt blocked by limit or active-attempt guard")
	// ErrNotInProgress is returned by terminal transitions when the attempt
	// is no longer IN_PROGRESS. Both COMPLETED and TERMINATED are terminal.
	ErrNotInProgress = errors.New("attempt is not in progress")
)

// AttemptRepository is the durable ledger of exam attempts: the single
// source of truth for attempt-limit enforcement and state transitions.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, exam_room_id, student_id, status, question_ids, started_at, finished_at, time_spent_seconds, ip_address, user_agent`

func scanAttempt(row pgx.Row) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	var questionIDs []byte
	err := row.Scan(&a.ID, &a.ExamRoomID, &a.StudentID, &a.Status, &questionIDs,
		&a.StartedAt, &a.FinishedAt, &a.TimeSpentSeconds, &a.IPAddress, &a.UserAgent)
	if err != nil {
		return nil, err
	}
	if len(questionIDs) > 0 {
		if err := json.Unmarshal(questionIDs, &a.QuestionIDs); err != nil {
			return nil, fmt.Errorf("decode question_ids: %w", err)
		}
	}
	return a, nil
}

// Create inserts a new IN_PROGRESS attempt as a single atomic
// check-and-insert. The statement itself enforces the attempt-type limit
// (no separate find-then-create), and the partial unique index on
// (exam_room_id, student_id) WHERE status = 'IN_PROGRESS' resolves races
// between concurrent starts from duplicate tabs: exactly one insert wins.
// Returns ErrAttemptBlocked when no row was inserted.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt, room *model.ExamRoom) error {
	questionIDs, err := json.Marshal(a.QuestionIDs)
	if err != nil {
		return fmt.Errorf("encode question_ids: %w", err)
	}

	limitClause := "TRUE"
	args := []any{a.ExamRoomID, a.StudentID, questionIDs, a.IPAddress, a.UserAgent}
	switch room.AttemptType {
	case model.AttemptTypeSingle:
		limitClause = `NOT EXISTS (
			SELECT 1 FROM exam_attempts
			WHERE exam_room_id = $1 AND student_id = $2 AND status = 'COMPLETED')`
	case model.AttemptTypeLimited:
		args = append(args, room.MaxAttempts)
		limitClause = `(
			SELECT COUNT(*) FROM exam_attempts
			WHERE exam_room_id = $1 AND student_id = $2 AND status = 'COMPLETED') < $6`
	}

	query := fmt.Sprintf(`
		INSERT INTO exam_attempts (exam_room_id, student_id, status, question_ids, ip_address, user_agent)
		SELECT $1, $2, 'IN_PROGRESS', $3, $4, $5
		WHERE %s
		ON CONFLICT (exam_room_id, student_id) WHERE status = 'IN_PROGRESS' DO NOTHING
		RETURNING id, started_at`, limitClause)

	err = r.pool.QueryRow(ctx, query, args...).Scan(&a.ID, &a.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAttemptBlocked
	}
	if err != nil {
		return err
	}
	a.Status = model.AttemptStatusInProgress
	return nil
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts WHERE id = $1`, id))
}

// FindActive returns the student's IN_PROGRESS attempt for a room, if any.
func (r *AttemptRepository) FindActive(ctx context.Context, roomID uuid.UUID, studentID int) (*model.ExamAttempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE exam_room_id = $1 AND student_id = $2 AND status = 'IN_PROGRESS'`,
		roomID, studentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// HasCompleted reports whether the student has a COMPLETED attempt in the room.
func (r *AttemptRepository) HasCompleted(ctx context.Context, roomID uuid.UUID, studentID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM exam_attempts
			WHERE exam_room_id = $1 AND student_id = $2 AND status = 'COMPLETED')`,
		roomID, studentID).Scan(&exists)
	return exists, err
}

// ListInProgressByRoom returns every active attempt in a room.
func (r *AttemptRepository) ListInProgressByRoom(ctx context.Context, roomID uuid.UUID) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE exam_room_id = $1 AND status = 'IN_PROGRESS'
		 ORDER BY started_at`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// CountCompleted returns how many COMPLETED attempts the student has in
// the room. Terminated attempts do not consume quota.
func (r *AttemptRepository) CountCompleted(ctx context.Context, roomID uuid.UUID, studentID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts
		 WHERE exam_room_id = $1 AND student_id = $2 AND status = 'COMPLETED'`,
		roomID, studentID).Scan(&n)
	return n, err
}

// ListOverdue returns IN_PROGRESS attempts whose room duration elapsed
// more than grace ago. The sweeper auto-submits these with their
// autosaved answers.
func (r *AttemptRepository) ListOverdue(ctx context.Context, grace time.Duration) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.exam_room_id, a.student_id, a.status, a.question_ids, a.started_at,
		        a.finished_at, a.time_spent_seconds, a.ip_address, a.user_agent
		 FROM exam_attempts a
		 JOIN exam_rooms r ON r.id = a.exam_room_id
		 WHERE a.status = 'IN_PROGRESS'
		   AND a.started_at + (r.duration_minutes * INTERVAL '1 minute') + $1 < NOW()`,
		grace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// ListByStudent returns a student's attempts, newest first.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID int) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// Complete transitions IN_PROGRESS → COMPLETED and persists the scored
// answers and the result in the same transaction: either everything
// commits or the attempt stays IN_PROGRESS and the client retries the
// whole submission. Returns ErrNotInProgress if another path already
// closed the attempt (double submit, concurrent termination).
func (r *AttemptRepository) Complete(ctx context.Context, attemptID uuid.UUID, timeSpent int, answers []model.ExamAnswer, result *model.ExamResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := transition(ctx, tx, attemptID, model.AttemptStatusCompleted, timeSpent); err != nil {
		return err
	}
	if err := upsertAnswers(ctx, tx, answers); err != nil {
		return err
	}
	if err := insertResult(ctx, tx, result); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Terminate transitions IN_PROGRESS → TERMINATED, appends the termination
// reason to the violation log, and persists a partial result computed from
// whatever answers were submitted up to that point. The same
// status-transition guard as Complete resolves races with in-flight
// finish calls.
func (r *AttemptRepository) Terminate(ctx context.Context, attemptID uuid.UUID, reason string, timeSpent int, answers []model.ExamAnswer, result *model.ExamResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := transition(ctx, tx, attemptID, model.AttemptStatusTerminated, timeSpent); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO attempt_violations (attempt_id, kind, detail) VALUES ($1, $2, $3)`,
		attemptID, model.ViolationTerminated, reason); err != nil {
		return fmt.Errorf("append termination violation: %w", err)
	}

	if err := upsertAnswers(ctx, tx, answers); err != nil {
		return err
	}
	if result != nil {
		if err := insertResult(ctx, tx, result); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// transition applies the only legal state change, guarded at the storage
// layer: a non-IN_PROGRESS row matches nothing and the caller gets
// ErrNotInProgress.
func transition(ctx context.Context, tx pgx.Tx, attemptID uuid.UUID, to model.AttemptStatus, timeSpent int) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx,
		`UPDATE exam_attempts
		 SET status = $1, finished_at = NOW(), time_spent_seconds = $2
		 WHERE id = $3 AND status = 'IN_PROGRESS'
		 RETURNING id`,
		to, timeSpent, attemptID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotInProgress
	}
	return err
}

func upsertAnswers(ctx context.Context, tx pgx.Tx, answers []model.ExamAnswer) error {
	for _, ans := range answers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO exam_answers (attempt_id, question_id, answer, is_correct, points_earned, time_spent_seconds)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (attempt_id, question_id) DO UPDATE
			 SET answer = EXCLUDED.answer,
			     is_correct = EXCLUDED.is_correct,
			     points_earned = EXCLUDED.points_earned,
			     time_spent_seconds = EXCLUDED.time_spent_seconds,
			     updated_at = NOW()`,
			ans.AttemptID, ans.QuestionID, ans.Answer, ans.IsCorrect, ans.PointsEarned, ans.TimeSpentSeconds); err != nil {
			return fmt.Errorf("upsert answer %s: %w", ans.QuestionID, err)
		}
	}
	return nil
}

func insertResult(ctx context.Context, tx pgx.Tx, result *model.ExamResult) error {
	violations, err := json.Marshal(result.Violations)
	if err != nil {
		return fmt.Errorf("encode violations snapshot: %w", err)
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO exam_results (attempt_id, exam_room_id, student_id, total_questions,
			correct_answers, wrong_answers, unanswered, total_points, earned_points,
			percentage, grade, time_spent_seconds, violations)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING created_at`,
		result.AttemptID, result.ExamRoomID, result.StudentID, result.TotalQuestions,
		result.CorrectAnswers, result.WrongAnswers, result.Unanswered, result.TotalPoints,
		result.EarnedPoints, result.Percentage, result.Grade, result.TimeSpentSeconds,
		violations).Scan(&result.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// UpsertAnswer saves a single unscored answer outside any transaction.
// Used by the autosave path; idempotent and safe to replay out of order
// because the newest write for a (attempt, question) pair simply wins.
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, ans *model.ExamAnswer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_answers (attempt_id, question_id, answer, time_spent_seconds)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET answer = EXCLUDED.answer,
		     time_spent_seconds = EXCLUDED.time_spent_seconds,
		     updated_at = NOW()`,
		ans.AttemptID, ans.QuestionID, ans.Answer, ans.TimeSpentSeconds)
	return err
}

// ListAnswers returns the persisted answers for an attempt.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.ExamAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, question_id, answer, is_correct, points_earned, time_spent_seconds, updated_at
		 FROM exam_answers WHERE attempt_id = $1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.ExamAnswer
	for rows.Next() {
		var ans model.ExamAnswer
		if err := rows.Scan(&ans.AttemptID, &ans.QuestionID, &ans.Answer,
			&ans.IsCorrect, &ans.PointsEarned, &ans.TimeSpentSeconds, &ans.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, ans)
	}
	return answers, rows.Err()
}

// AppendViolation appends one proctoring event to the attempt's log.
func (r *AttemptRepository) AppendViolation(ctx context.Context, attemptID uuid.UUID, kind model.ViolationKind, detail string, recordedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_violations (attempt_id, kind, detail, recorded_at)
		 VALUES ($1, $2, $3, $4)`,
		attemptID, kind, detail, recordedAt)
	return err
}

// ListViolations returns the attempt's violation log in recorded order.
func (r *AttemptRepository) ListViolations(ctx context.Context, attemptID uuid.UUID) ([]model.Violation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, kind, detail, recorded_at
		 FROM attempt_violations
		 WHERE attempt_id = $1
		 ORDER BY recorded_at, id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []model.Violation
	for rows.Next() {
		var v model.Violation
		if err := rows.Scan(&v.ID, &v.AttemptID, &v.Kind, &v.Detail, &v.RecordedAt); err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

// CountViolations returns the attempt's violation count.
func (r *AttemptRepository) CountViolations(ctx context.Context, attemptID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempt_violations WHERE attempt_id = $1`, attemptID).Scan(&n)
	return n, err
}
