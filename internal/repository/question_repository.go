package repository

import (
	"context"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByBank retrieves all questions in a bank, ordered by order_num.
func (r *QuestionRepository) ListByBank(ctx context.Context, bankID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, bank_id, question_text, question_type, options, correct_key, points, order_num
		 FROM questions WHERE bank_id = $1
		 ORDER BY order_num`, bankID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// GetByIDs retrieves the given questions in one round trip. Used when
// rehydrating the frozen question set of an attempt; the caller reorders
// to match the attempt's stored ID order.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, bank_id, question_text, question_type, options, correct_key, points, order_num
		 FROM questions WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.BankID, &q.QuestionText, &q.QuestionType, &q.Options, &q.CorrectKey, &q.Points, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (bank_id, question_text, question_type, options, correct_key, points, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		q.BankID, q.QuestionText, q.QuestionType, q.Options, q.CorrectKey, q.Points, q.OrderNum,
	).Scan(&q.ID)
}

// ReplaceAll swaps a bank's entire question list in one transaction.
// Attempts already started keep working: they reference questions by
// frozen ID and scoring reads the rows that existed at start time, so
// the delete is restricted to questions no referencing answer row needs.
func (r *QuestionRepository) ReplaceAll(ctx context.Context, bankID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM questions
		 WHERE bank_id = $1
		   AND NOT EXISTS (SELECT 1 FROM exam_answers a WHERE a.question_id = questions.id)`,
		bankID); err != nil {
		return err
	}

	for i := range questions {
		q := &questions[i]
		q.BankID = bankID
		if err := tx.QueryRow(ctx,
			`INSERT INTO questions (bank_id, question_text, question_type, options, correct_key, points, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			q.BankID, q.QuestionText, q.QuestionType, q.Options, q.CorrectKey, q.Points, q.OrderNum,
		).Scan(&q.ID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Update modifies an existing question.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET question_text = $1, question_type = $2, options = $3, correct_key = $4, points = $5, order_num = $6
		 WHERE id = $7`,
		q.QuestionText, q.QuestionType, q.Options, q.CorrectKey, q.Points, q.OrderNum, q.ID,
	)
	return err
}

// Delete removes a question by its ID.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}
