package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures the page, API and metrics routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{})))
	}

	// Everything a browser touches carries the thread cookie
	visitor := r.Group("", h.ThreadMiddleware())

	// Page and form submission
	visitor.GET("/", h.GetPage)
	visitor.POST("/chat", h.SubmitChatForm)

	api := visitor.Group("/api")

	// Chat
	api.GET("/chat/messages", h.GetChatMessages)
	api.POST("/chat", h.PostChat)
	api.DELETE("/chat", h.DeleteChat)

	// Status
	api.GET("/status", h.GetStatus)
	api.POST("/status/revalidate", h.RevalidateStatus)

	// Notifications (SSE)
	api.GET("/notifications/stream", h.NotificationStream)

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "Not found")
			return
		}
		c.String(http.StatusNotFound, "Not found")
	})
}
