package repository

import (
	"context"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRoomRepository handles exam room data access. Access lists are
// stored as integer arrays on the row; the access policy itself lives in
// the access package and operates on the loaded model.
type ExamRoomRepository struct {
	pool *pgxpool.Pool
}

// NewExamRoomRepository creates a new ExamRoomRepository.
func NewExamRoomRepository(pool *pgxpool.Pool) *ExamRoomRepository {
	return &ExamRoomRepository{pool: pool}
}

const examRoomColumns = `id, title, owner_id, bank_id, access_type, allowed_class_ids, allowed_student_ids,
	attempt_type, max_attempts, max_questions, duration_minutes, randomize_order, randomize_answers,
	is_active, created_at, updated_at`

func scanExamRoom(row pgx.Row) (*model.ExamRoom, error) {
	room := &model.ExamRoom{}
	err := row.Scan(&room.ID, &room.Title, &room.OwnerID, &room.BankID, &room.AccessType,
		&room.AllowedClassIDs, &room.AllowedStudents, &room.AttemptType, &room.MaxAttempts,
		&room.MaxQuestions, &room.DurationMinutes, &room.RandomizeOrder, &room.RandomizeAnswers,
		&room.IsActive, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// GetByID retrieves an exam room by its ID.
func (r *ExamRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamRoom, error) {
	return scanExamRoom(r.pool.QueryRow(ctx,
		`SELECT `+examRoomColumns+` FROM exam_rooms WHERE id = $1`, id))
}

// ListByOwner retrieves all rooms owned by a staff member, newest first.
func (r *ExamRoomRepository) ListByOwner(ctx context.Context, ownerID int) ([]model.ExamRoom, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examRoomColumns+` FROM exam_rooms
		 WHERE owner_id = $1
		 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRooms(rows)
}

// ListActive retrieves every active room. The lobby filters this list
// through the access policy per student.
func (r *ExamRoomRepository) ListActive(ctx context.Context) ([]model.ExamRoom, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examRoomColumns+` FROM exam_rooms
		 WHERE is_active = TRUE
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRooms(rows)
}

func collectRooms(rows pgx.Rows) ([]model.ExamRoom, error) {
	var rooms []model.ExamRoom
	for rows.Next() {
		room, err := scanExamRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

// Create inserts a new exam room.
func (r *ExamRoomRepository) Create(ctx context.Context, room *model.ExamRoom) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_rooms (title, owner_id, bank_id, access_type, allowed_class_ids, allowed_student_ids,
			attempt_type, max_attempts, max_questions, duration_minutes, randomize_order, randomize_answers, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at, updated_at`,
		room.Title, room.OwnerID, room.BankID, room.AccessType, room.AllowedClassIDs, room.AllowedStudents,
		room.AttemptType, room.MaxAttempts, room.MaxQuestions, room.DurationMinutes,
		room.RandomizeOrder, room.RandomizeAnswers, room.IsActive,
	).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
}

// Update modifies an existing exam room.
func (r *ExamRoomRepository) Update(ctx context.Context, room *model.ExamRoom) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_rooms
		 SET title = $1, access_type = $2, allowed_class_ids = $3, allowed_student_ids = $4,
		     attempt_type = $5, max_attempts = $6, max_questions = $7, duration_minutes = $8,
		     randomize_order = $9, randomize_answers = $10, is_active = $11, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $12`,
		room.Title, room.AccessType, room.AllowedClassIDs, room.AllowedStudents,
		room.AttemptType, room.MaxAttempts, room.MaxQuestions, room.DurationMinutes,
		room.RandomizeOrder, room.RandomizeAnswers, room.IsActive, room.ID,
	)
	return err
}

// SetActive flips room availability without touching configuration.
func (r *ExamRoomRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_rooms SET is_active = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		active, id)
	return err
}

// Delete removes an exam room. Attempt history survives via ON DELETE
// restrictions at the schema level; callers deactivate instead when
// history exists.
func (r *ExamRoomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exam_rooms WHERE id = $1`, id)
	return err
}
