package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateUsername = errors.New("student with this username already exists")

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, class_id, status, created_at, updated_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Username, &s.Name, &s.PasswordHash, &s.ClassID, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByUsername retrieves a student by their unique username.
func (r *StudentRepository) GetByUsername(ctx context.Context, username string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, class_id, status, created_at, updated_at
		 FROM students WHERE username = $1`, username,
	).Scan(&s.ID, &s.Username, &s.Name, &s.PasswordHash, &s.ClassID, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListPaginated retrieves students with pagination and optional class filter.
func (r *StudentRepository) ListPaginated(ctx context.Context, classID *int, limit, offset int) ([]model.Student, int, error) {
	countQuery := `SELECT COUNT(*) FROM students`
	var countArgs []interface{}
	if classID != nil {
		countQuery += ` WHERE class_id = $1`
		countArgs = append(countArgs, *classID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, username, name, password_hash, class_id, status, created_at, updated_at FROM students`
	var args []interface{}
	argIdx := 1

	if classID != nil {
		query += ` WHERE class_id = $1`
		args = append(args, *classID)
		argIdx++
	}

	query += ` ORDER BY name LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.Username, &s.Name, &s.PasswordHash, &s.ClassID, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (username, name, password_hash, class_id, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		s.Username, s.Name, s.PasswordHash, s.ClassID, s.Status,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}

// Update modifies a student's basic info (excluding password).
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET username = $1, name = $2, class_id = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $4`,
		s.Username, s.Name, s.ClassID, s.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}

// UpdateStatus flips a student between ACTIVE and SUSPENDED.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id int, status model.StudentStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		status, id,
	)
	return err
}

// UpdatePassword updates a student's password hash.
func (r *StudentRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		passwordHash, id,
	)
	return err
}

// Delete removes a student by ID.
func (r *StudentRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	return err
}
