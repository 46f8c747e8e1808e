package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ViolationWorker batches proctoring violation events from Redis into
// PostgreSQL. Events arrive in bursts (a whole class alt-tabbing during a
// fire drill), so single-row inserts are replaced with buffered bulk
// writes via COPY.
type ViolationWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger

	buffer    []violationPayload
	lastFlush time.Time
}

const (
	// violationBatchSize triggers a flush once this many events are buffered.
	violationBatchSize = 50
	// violationBatchTimeout flushes a partial buffer after this long.
	violationBatchTimeout = 2 * time.Second
	// violationPollTimeout bounds each BLPop so timed flushes still happen.
	violationPollTimeout = 1 * time.Second
)

// NewViolationWorker creates a new ViolationWorker.
func NewViolationWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		pool:      pool,
		rdb:       rdb,
		log:       log.With().Str("component", "violation_worker").Logger(),
		buffer:    make([]violationPayload, 0, violationBatchSize),
		lastFlush: time.Now(),
	}
}

type violationPayload struct {
	AttemptID string    `json:"attempt_id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	At        time.Time `json:"at"`
}

// Start begins the worker loop. Call in a goroutine.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.shutdown()
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.poll(ctx)
		}
	}
}

func (w *ViolationWorker) poll(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, violationPollTimeout, config.WorkerKey.PersistViolationsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		w.flushIfDue(ctx)
		return
	}

	if len(result) >= 2 {
		var payload violationPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			w.log.Error().Err(err).Msg("Unmarshal error")
		} else {
			if payload.At.IsZero() {
				payload.At = time.Now()
			}
			w.buffer = append(w.buffer, payload)
		}
	}

	if len(w.buffer) >= violationBatchSize {
		w.flushSafe(ctx)
		return
	}
	w.flushIfDue(ctx)
}

func (w *ViolationWorker) flushIfDue(ctx context.Context) {
	if len(w.buffer) > 0 && time.Since(w.lastFlush) >= violationBatchTimeout {
		w.flushSafe(ctx)
	}
}

// flushSafe writes the buffer to PostgreSQL. On failure the batch is
// requeued so nothing is lost across restarts.
func (w *ViolationWorker) flushSafe(ctx context.Context) {
	if len(w.buffer) == 0 {
		return
	}

	batch := w.buffer
	w.buffer = make([]violationPayload, 0, violationBatchSize)
	w.lastFlush = time.Now()

	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Error().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, falling back to row inserts")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ViolationWorker) bulkInsert(ctx context.Context, batch []violationPayload) error {
	rows := make([][]any, 0, len(batch))
	for _, p := range batch {
		attemptID, err := uuid.Parse(p.AttemptID)
		if err != nil {
			w.log.Error().Str("attempt_id", p.AttemptID).Msg("Skipping event with invalid attempt id")
			continue
		}
		rows = append(rows, []any{attemptID, p.Kind, p.Detail, p.At})
	}
	if len(rows) == 0 {
		return nil
	}

	_, err := w.pool.CopyFrom(ctx,
		pgx.Identifier{"attempt_violations"},
		[]string{"attempt_id", "kind", "detail", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// fallbackInsert retries the batch row by row; rows that still fail are
// requeued for the next cycle.
func (w *ViolationWorker) fallbackInsert(ctx context.Context, batch []violationPayload) {
	var failed []violationPayload
	for _, p := range batch {
		attemptID, err := uuid.Parse(p.AttemptID)
		if err != nil {
			continue
		}
		_, err = w.pool.Exec(ctx,
			`INSERT INTO attempt_violations (attempt_id, kind, detail, recorded_at)
			 VALUES ($1, $2, $3, $4)`,
			attemptID, p.Kind, p.Detail, p.At,
		)
		if err != nil {
			w.log.Error().Err(err).Str("attempt_id", p.AttemptID).Msg("Row insert failed")
			failed = append(failed, p)
		}
	}

	if len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

func (w *ViolationWorker) requeue(ctx context.Context, batch []violationPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range batch {
		raw, err := json.Marshal(p)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(batch)).Msg("Requeue failed, events lost")
	}
}

// shutdown drains the queue and flushes the buffer with a bounded context.
func (w *ViolationWorker) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistViolationsQueue).Result()
		if err != nil {
			break
		}
		var payload violationPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			continue
		}
		if payload.At.IsZero() {
			payload.At = time.Now()
		}
		w.buffer = append(w.buffer, payload)
		if len(w.buffer) >= violationBatchSize {
			w.flushSafe(ctx)
		}
	}

	w.flushSafe(ctx)
}
