package api

import (
	"context"
	"time"

	"github.com/xiaoyuanzhu-com/project-chat/chat"
	"github.com/xiaoyuanzhu-com/project-chat/metrics"
	"github.com/xiaoyuanzhu-com/project-chat/notifications"
	"github.com/xiaoyuanzhu-com/project-chat/server"
	"github.com/xiaoyuanzhu-com/project-chat/status"
)

// StatusCache serves status snapshots and drops them by tag
type StatusCache interface {
	Get(ctx context.Context, threadID string) (status.Snapshot, error)
	InvalidateTag(tag string) int
}

// CookieConfig describes the thread cookie
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// Handlers holds references to server components
type Handlers struct {
	chat     *chat.Service
	status   StatusCache
	notif    *notifications.Service
	metrics  *metrics.Metrics
	cookie   CookieConfig
	shutdown context.Context
}

// NewHandlers creates a new Handlers instance from the server's components
func NewHandlers(srv *server.Server) *Handlers {
	cfg := srv.Config()
	return &Handlers{
		chat:    srv.Chat(),
		status:  srv.StatusCache(),
		notif:   srv.Notifications(),
		metrics: srv.Metrics(),
		cookie: CookieConfig{
			Name:   cfg.ThreadCookie,
			MaxAge: cfg.ThreadCookieMaxAge,
			Secure: !cfg.IsDevelopment(),
		},
		shutdown: srv.ShutdownContext(),
	}
}
