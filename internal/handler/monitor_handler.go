package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams a room's live proctoring feed to teachers over SSE.
// Individual events arrive via Redis pub/sub; full snapshots are pushed
// periodically so late joiners and missed events self-correct.
type MonitorHandler struct {
	rdb            *redis.Client
	roomService    *service.RoomService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	rdb *redis.Client,
	roomService *service.RoomService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		roomService:    roomService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorRoomSSE godoc
// GET /api/v1/staff/rooms/:room_id/monitor
func (h *MonitorHandler) MonitorRoomSSE(c *gin.Context) {
	staff := staffFromClaims(c)
	if staff == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Ownership check before any stream is opened.
	if _, err := h.roomService.GetOwned(c.Request.Context(), staff, roomID); err != nil {
		failStaff(c, err)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	h.sendSnapshot(c, reqCtx, roomID)

	channelName := config.CacheKey.RoomMonitorChannel(roomID.String())
	pubsub := h.rdb.Subscribe(reqCtx, channelName)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Skip snapshot refreshes until at least one event proves activity.
	active := false

	h.log.Info().Str("room_id", roomID.String()).Msg("Teacher attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("room_id", roomID.String()).Msg("Teacher disconnected from live monitor SSE")
			return

		case msg := <-ch:
			// Forward the published JSON as-is, no deserialization needed.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
			active = true

		case <-refreshTicker.C:
			if !active {
				continue
			}
			h.sendSnapshot(c, reqCtx, roomID)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot queries current progress with a bounded timeout and writes
// one snapshot SSE event.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, roomID uuid.UUID) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	snapshot, err := h.monitorService.Snapshot(ctx, roomID)
	if err != nil {
		h.log.Warn().Err(err).Str("room_id", roomID.String()).Msg("Failed to build monitor snapshot")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": snapshot,
	})
	c.Writer.Flush()
}
