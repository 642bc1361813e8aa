package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventMirror publishes room events to a redis channel so out-of-process
// consumers (dashboards, analytics) can watch games live. All publishes are
// best-effort: a nil client or a failed publish never affects gameplay.
type EventMirror struct {
	rdb     *redis.Client
	channel string
}

// NewEventMirror wraps an optional redis client. rdb may be nil.
func NewEventMirror(rdb *redis.Client) *EventMirror {
	return &EventMirror{rdb: rdb, channel: "room_events"}
}

// Publish mirrors one room event. Never blocks gameplay on redis.
func (m *EventMirror) Publish(roomID, eventType string, detail map[string]interface{}) {
	if m == nil || m.rdb == nil {
		return
	}

	payload := map[string]interface{}{
		"type":    eventType,
		"room_id": roomID,
		"at":      time.Now().Unix(),
	}
	for k, v := range detail {
		payload[k] = v
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[REDIS] Failed to marshal %s event for room %s: %v", eventType, roomID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.rdb.Publish(ctx, m.channel, data).Err(); err != nil {
		log.Printf("[REDIS] Failed to publish %s event for room %s: %v", eventType, roomID, err)
	}
}
