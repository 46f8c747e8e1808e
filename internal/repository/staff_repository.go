package repository

import (
	"context"
	"errors"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicateEmail = errors.New("staff with this email already exists")

// StaffRepository handles teacher and administrator account data access.
type StaffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository creates a new StaffRepository.
func NewStaffRepository(pool *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

// GetByID retrieves a staff account by ID.
func (r *StaffRepository) GetByID(ctx context.Context, id int) (*model.Staff, error) {
	s := &model.Staff{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at
		 FROM staff WHERE id = $1`, id,
	).Scan(&s.ID, &s.Email, &s.Name, &s.PasswordHash, &s.Role, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByEmail retrieves a staff account by email.
func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*model.Staff, error) {
	s := &model.Staff{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at
		 FROM staff WHERE email = $1`, email,
	).Scan(&s.ID, &s.Email, &s.Name, &s.PasswordHash, &s.Role, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List retrieves all staff accounts.
func (r *StaffRepository) List(ctx context.Context) ([]model.Staff, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at
		 FROM staff ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []model.Staff
	for rows.Next() {
		var s model.Staff
		if err := rows.Scan(&s.ID, &s.Email, &s.Name, &s.PasswordHash, &s.Role, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}

// Create inserts a new staff account.
func (r *StaffRepository) Create(ctx context.Context, s *model.Staff) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO staff (email, name, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		s.Email, s.Name, s.PasswordHash, s.Role,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// UpdatePassword updates a staff account's password hash.
func (r *StaffRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE staff SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		passwordHash, id,
	)
	return err
}

// Delete removes a staff account by ID.
func (r *StaffRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM staff WHERE id = $1`, id)
	return err
}
