package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SystemHandler exposes liveness and operational stats.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /healthz
// Reports dependency reachability. Returns 503 when PostgreSQL or Redis
// is down so load balancers drain the instance.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	pgOK, redisOK := true, true

	if err := h.pool.Ping(ctx); err != nil {
		pgOK = false
		status = http.StatusServiceUnavailable
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		redisOK = false
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"postgres": pgOK,
		"redis":    redisOK,
		"uptime":   time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Stats godoc
// GET /api/v1/staff/system/stats
// Runtime and worker queue depths for operational debugging.
func (h *SystemHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := gin.H{
		"uptime":     time.Since(h.startTime).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"heap_alloc": ms.HeapAlloc,
		"num_gc":     ms.NumGC,
		"go_version": runtime.Version(),
	}

	// Queue depths via pipelined LLEN; omitted when Redis is unreachable.
	pipe := h.rdb.Pipeline()
	answersCmd := pipe.LLen(ctx, config.WorkerKey.PersistAnswersQueue)
	violationsCmd := pipe.LLen(ctx, config.WorkerKey.PersistViolationsQueue)
	if _, err := pipe.Exec(ctx); err == nil {
		stats["queue_answers"] = answersCmd.Val()
		stats["queue_violations"] = violationsCmd.Val()
	} else {
		h.log.Warn().Err(err).Msg("Failed to read queue depths")
	}

	response.Success(c, http.StatusOK, stats)
}
