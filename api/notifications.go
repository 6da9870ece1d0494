package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/project-chat/log"
	"github.com/xiaoyuanzhu-com/project-chat/notifications"
)

var notifLogger = log.GetLogger("ApiNotifications")

const heartbeatInterval = 30 * time.Second

// NotificationStream handles GET /api/notifications/stream (SSE)
func (h *Handlers) NotificationStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering
	c.Status(http.StatusOK)

	// Subscribe to the visitor's thread
	events, unsubscribe := h.notif.Subscribe(threadID(c))
	defer unsubscribe()

	// Send initial connected event
	writeSSEEvent(c, notifications.Event{
		Type:      notifications.EventConnected,
		Timestamp: time.Now().UnixMilli(),
	})
	c.Writer.Flush()

	notifLogger.Debug().Str("thread", threadID(c)).Msg("client connected to notification stream")

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			writeSSEEvent(c, event)
			c.Writer.Flush()

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			notifLogger.Debug().Msg("client disconnected from notification stream")
			return

		case <-h.shutdown.Done():
			return
		}
	}
}

func writeSSEEvent(c *gin.Context, event notifications.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		notifLogger.Error().Err(err).Msg("failed to marshal event")
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
}
