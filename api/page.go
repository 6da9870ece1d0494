package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/project-chat/log"
	"github.com/xiaoyuanzhu-com/project-chat/status"
	"github.com/xiaoyuanzhu-com/project-chat/web"
)

var pageLogger = log.GetLogger("ApiPage")

// StatusUnavailable replaces the status window when no snapshot can be had
const StatusUnavailable = "Project status is unavailable right now."

// parseQuery reads the status window state, defaulting unknown values
func parseQuery(view, project, order string) web.Query {
	return web.Query{
		View:    status.ParseView(view),
		Project: project,
		Order:   status.ParseSortOrder(order),
	}
}

// GetPage handles GET /: the chat window next to the status window
func (h *Handlers) GetPage(c *gin.Context) {
	ctx := c.Request.Context()
	thread := threadID(c)

	transcript, err := h.chat.Transcript(ctx, thread)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	q := parseQuery(c.Query("view"), c.Query("project"), c.Query("order"))
	page := web.Page{
		Transcript: transcript,
		Query:      q,
		Notice:     notices[c.Query("notice")],
	}

	snap, err := h.status.Get(ctx, thread)
	if err != nil {
		pageLogger.Warn().Err(err).Str("thread", thread).Msg("status unavailable for page")
		page.StatusError = StatusUnavailable
	}
	page.Panel = status.BuildPanel(snap, q.View, q.Project, q.Order)

	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, web.PageTemplate, page)
}
