package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AttemptCache mirrors hot attempt state in Redis so the exam-taking hot
// path (state polls, autosaves) stays off PostgreSQL. Every read has a
// PostgreSQL fallback in the service; the cache is an accelerator, not a
// source of truth.
type AttemptCache interface {
	SetStart(ctx context.Context, attemptID uuid.UUID, startedAt time.Time) error
	// GetStart reports found=false on a cache miss so the caller can fall
	// back to the ledger and self-heal.
	GetStart(ctx context.Context, attemptID uuid.UUID) (startedAt time.Time, found bool, err error)

	SetPayload(ctx context.Context, payload *model.AttemptPayload) error
	GetPayload(ctx context.Context, attemptID uuid.UUID) (*model.AttemptPayload, error)

	// SaveAnswer records an autosaved answer in the attempt's answer hash
	// and enqueues it for asynchronous persistence.
	SaveAnswer(ctx context.Context, attemptID, questionID uuid.UUID, answer string, timeSpent int) error
	Answers(ctx context.Context, attemptID uuid.UUID) (map[string]string, error)

	// EnqueueViolation queues a proctoring event for batched persistence
	// and returns the attempt's live violation count.
	EnqueueViolation(ctx context.Context, attemptID uuid.UUID, kind, detail string, at time.Time) (int64, error)

	// Clear drops every cached key for a closed attempt.
	Clear(ctx context.Context, attemptID uuid.UUID) error

	// Room question sets are cached with their answer keys; only the
	// server reads this key, clients get the stripped projection.
	SetRoomQuestions(ctx context.Context, roomID uuid.UUID, questions []model.Question) error
	GetRoomQuestions(ctx context.Context, roomID uuid.UUID) ([]model.Question, error)
	ClearRoomQuestions(ctx context.Context, roomID uuid.UUID) error

	PublishMonitorEvent(ctx context.Context, roomID uuid.UUID, event *model.MonitorEvent) error
}

// RedisAttemptCache is the production AttemptCache.
type RedisAttemptCache struct {
	rdb *redis.Client
}

// NewRedisAttemptCache creates a Redis-backed AttemptCache.
func NewRedisAttemptCache(rdb *redis.Client) *RedisAttemptCache {
	return &RedisAttemptCache{rdb: rdb}
}

func (c *RedisAttemptCache) SetStart(ctx context.Context, attemptID uuid.UUID, startedAt time.Time) error {
	return c.rdb.Set(ctx, config.CacheKey.AttemptStartKey(attemptID.String()), startedAt.Unix(), 0).Err()
}

func (c *RedisAttemptCache) GetStart(ctx context.Context, attemptID uuid.UUID) (time.Time, bool, error) {
	val, err := c.rdb.Get(ctx, config.CacheKey.AttemptStartKey(attemptID.String())).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid start time in cache: %w", err)
	}
	return time.Unix(unix, 0), true, nil
}

func (c *RedisAttemptCache) SetPayload(ctx context.Context, payload *model.AttemptPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, config.CacheKey.AttemptPayloadKey(payload.AttemptID.String()), data, 0).Err()
}

func (c *RedisAttemptCache) GetPayload(ctx context.Context, attemptID uuid.UUID) (*model.AttemptPayload, error) {
	data, err := c.rdb.Get(ctx, config.CacheKey.AttemptPayloadKey(attemptID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	payload := &model.AttemptPayload{}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, fmt.Errorf("decode cached payload: %w", err)
	}
	return payload, nil
}

// autosaveEntry is the persist queue wire format, shared with the
// autosave worker.
type autosaveEntry struct {
	AttemptID string `json:"attempt_id"`
	QID       string `json:"q_id"`
	Answer    string `json:"answer"`
	TimeSpent int    `json:"time_spent"`
}

func (c *RedisAttemptCache) SaveAnswer(ctx context.Context, attemptID, questionID uuid.UUID, answer string, timeSpent int) error {
	if err := c.rdb.HSet(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String()),
		questionID.String(), answer).Err(); err != nil {
		return err
	}

	entry, err := json.Marshal(autosaveEntry{
		AttemptID: attemptID.String(),
		QID:       questionID.String(),
		Answer:    answer,
		TimeSpent: timeSpent,
	})
	if err != nil {
		return err
	}
	return c.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, entry).Err()
}

// violationEntry is the persist queue wire format, shared with the
// violation worker.
type violationEntry struct {
	AttemptID string    `json:"attempt_id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	At        time.Time `json:"at"`
}

func (c *RedisAttemptCache) EnqueueViolation(ctx context.Context, attemptID uuid.UUID, kind, detail string, at time.Time) (int64, error) {
	entry, err := json.Marshal(violationEntry{
		AttemptID: attemptID.String(),
		Kind:      kind,
		Detail:    detail,
		At:        at,
	})
	if err != nil {
		return 0, err
	}

	pipe := c.rdb.Pipeline()
	pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, entry)
	countCmd := pipe.Incr(ctx, config.CacheKey.AttemptViolationsKey(attemptID.String()))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return countCmd.Val(), nil
}

func (c *RedisAttemptCache) Answers(ctx context.Context, attemptID uuid.UUID) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String())).Result()
}

func (c *RedisAttemptCache) Clear(ctx context.Context, attemptID uuid.UUID) error {
	id := attemptID.String()
	return c.rdb.Del(ctx,
		config.CacheKey.AttemptStartKey(id),
		config.CacheKey.AttemptPayloadKey(id),
		config.CacheKey.AttemptAnswersKey(id),
		config.CacheKey.AttemptViolationsKey(id),
	).Err()
}

func (c *RedisAttemptCache) SetRoomQuestions(ctx context.Context, roomID uuid.UUID, questions []model.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, config.CacheKey.RoomQuestionsKey(roomID.String()), data, 0).Err()
}

func (c *RedisAttemptCache) GetRoomQuestions(ctx context.Context, roomID uuid.UUID) ([]model.Question, error) {
	data, err := c.rdb.Get(ctx, config.CacheKey.RoomQuestionsKey(roomID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("decode cached questions: %w", err)
	}
	return questions, nil
}

func (c *RedisAttemptCache) ClearRoomQuestions(ctx context.Context, roomID uuid.UUID) error {
	return c.rdb.Del(ctx, config.CacheKey.RoomQuestionsKey(roomID.String())).Err()
}

func (c *RedisAttemptCache) PublishMonitorEvent(ctx context.Context, roomID uuid.UUID, event *model.MonitorEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, config.CacheKey.RoomMonitorChannel(roomID.String()), data).Err()
}
