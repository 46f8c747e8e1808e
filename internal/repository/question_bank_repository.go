package repository

import (
	"context"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionBankRepository handles question bank data access.
type QuestionBankRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionBankRepository creates a new QuestionBankRepository.
func NewQuestionBankRepository(pool *pgxpool.Pool) *QuestionBankRepository {
	return &QuestionBankRepository{pool: pool}
}

// GetByID retrieves a question bank by its ID.
func (r *QuestionBankRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.QuestionBank, error) {
	b := &model.QuestionBank{}
	err := r.pool.QueryRow(ctx,
		`SELECT b.id, b.owner_id, b.title, b.description,
		        (SELECT COUNT(*) FROM questions q WHERE q.bank_id = b.id),
		        b.created_at, b.updated_at
		 FROM question_banks b WHERE b.id = $1`, id,
	).Scan(&b.ID, &b.OwnerID, &b.Title, &b.Description, &b.QuestionCount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListByOwner retrieves all banks owned by a staff member, newest first.
func (r *QuestionBankRepository) ListByOwner(ctx context.Context, ownerID int) ([]model.QuestionBank, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT b.id, b.owner_id, b.title, b.description,
		        (SELECT COUNT(*) FROM questions q WHERE q.bank_id = b.id),
		        b.created_at, b.updated_at
		 FROM question_banks b
		 WHERE b.owner_id = $1
		 ORDER BY b.created_at DESC`, ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var banks []model.QuestionBank
	for rows.Next() {
		var b model.QuestionBank
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Description, &b.QuestionCount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}
	return banks, rows.Err()
}

// Create inserts a new question bank.
func (r *QuestionBankRepository) Create(ctx context.Context, b *model.QuestionBank) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO question_banks (owner_id, title, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		b.OwnerID, b.Title, b.Description,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// Update modifies an existing question bank.
func (r *QuestionBankRepository) Update(ctx context.Context, b *model.QuestionBank) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE question_banks SET title = $1, description = $2, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $3`,
		b.Title, b.Description, b.ID,
	)
	return err
}

// Delete removes a bank and, via cascade, its questions.
func (r *QuestionBankRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM question_banks WHERE id = $1`, id)
	return err
}
