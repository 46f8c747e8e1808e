package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardRepository handles staff dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummaryCounts retrieves the high-level metrics for the dashboard.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (totalStudents, totalRooms, totalBanks, totalQuestions int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM students),
			(SELECT COUNT(*) FROM exam_rooms),
			(SELECT COUNT(*) FROM question_banks),
			(SELECT COUNT(*) FROM questions)`,
	).Scan(&totalStudents, &totalRooms, &totalBanks, &totalQuestions)
	return
}

// GetAttemptStatusCounts retrieves the distribution of attempts by status.
func (r *DashboardRepository) GetAttemptStatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM exam_attempts GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DashboardActiveRoom is one open room with its live attempt count.
type DashboardActiveRoom struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Duration     int       `json:"duration_minutes"`
	ActiveCount  int       `json:"active_count"`
	LastActivity time.Time `json:"last_activity"`
}

// GetActiveRooms retrieves open rooms ordered by most recent attempt activity.
func (r *DashboardRepository) GetActiveRooms(ctx context.Context, limit int) ([]DashboardActiveRoom, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.title, e.duration_minutes,
		        COUNT(*) FILTER (WHERE a.status = 'IN_PROGRESS'),
		        COALESCE(MAX(a.started_at), e.updated_at)
		 FROM exam_rooms e
		 LEFT JOIN exam_attempts a ON a.exam_room_id = e.id
		 WHERE e.is_active = TRUE
		 GROUP BY e.id, e.title, e.duration_minutes, e.updated_at
		 ORDER BY 5 DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []DashboardActiveRoom
	for rows.Next() {
		var room DashboardActiveRoom
		if err := rows.Scan(&room.ID, &room.Title, &room.Duration, &room.ActiveCount, &room.LastActivity); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if rooms == nil {
		rooms = []DashboardActiveRoom{}
	}
	return rooms, rows.Err()
}

// DashboardRecentRoomResult represents a room's recent outcome statistics.
type DashboardRecentRoomResult struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	LastFinished     *time.Time `json:"last_finished"`
	ParticipantCount int        `json:"participant_count"`
	AveragePercent   *float64   `json:"average_percentage"`
}

// GetRecentRoomResults retrieves the last N rooms with finished attempts
// and their average percentage.
func (r *DashboardRepository) GetRecentRoomResults(ctx context.Context, limit int) ([]DashboardRecentRoomResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.title,
		        MAX(res.created_at),
		        COUNT(res.attempt_id),
		        AVG(res.percentage)
		 FROM exam_rooms e
		 JOIN exam_results res ON res.exam_room_id = e.id
		 GROUP BY e.id, e.title
		 ORDER BY MAX(res.created_at) DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DashboardRecentRoomResult
	for rows.Next() {
		var res DashboardRecentRoomResult
		if err := rows.Scan(&res.ID, &res.Title, &res.LastFinished, &res.ParticipantCount, &res.AveragePercent); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if results == nil {
		results = []DashboardRecentRoomResult{}
	}
	return results, rows.Err()
}
