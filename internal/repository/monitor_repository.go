package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MonitorRepository provides aggregated per-attempt progress for the live
// room monitoring feed.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// GetAnsweredCounts returns, per active attempt in a room, how many
// questions have a persisted answer.
func (r *MonitorRepository) GetAnsweredCounts(ctx context.Context, roomID uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, COUNT(ans.question_id)
		 FROM exam_attempts a
		 LEFT JOIN exam_answers ans ON ans.attempt_id = a.id
		 WHERE a.exam_room_id = $1 AND a.status = 'IN_PROGRESS'
		 GROUP BY a.id`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var attemptID uuid.UUID
		var count int64
		if err := rows.Scan(&attemptID, &count); err != nil {
			return nil, err
		}
		counts[attemptID] = count
	}
	return counts, rows.Err()
}

// GetViolationCounts returns the violation count for each active attempt
// in a room.
func (r *MonitorRepository) GetViolationCounts(ctx context.Context, roomID uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, COUNT(v.id)
		 FROM exam_attempts a
		 JOIN attempt_violations v ON v.attempt_id = a.id
		 WHERE a.exam_room_id = $1 AND a.status = 'IN_PROGRESS'
		 GROUP BY a.id`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var attemptID uuid.UUID
		var count int64
		if err := rows.Scan(&attemptID, &count); err != nil {
			return nil, err
		}
		counts[attemptID] = count
	}
	return counts, rows.Err()
}
