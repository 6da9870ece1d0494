package api

import (
	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/project-chat/status"
)

// StatusResponse is the answer of GET /api/status
type StatusResponse struct {
	Snapshot status.Snapshot `json:"snapshot"`
	Panel    status.Panel    `json:"panel"`
}

// RevalidateResponse reports what a revalidation dropped
type RevalidateResponse struct {
	Tag         string `json:"tag"`
	Invalidated int    `json:"invalidated"`
}

// GetStatus handles GET /api/status
func (h *Handlers) GetStatus(c *gin.Context) {
	snap, err := h.status.Get(c.Request.Context(), threadID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	q := parseQuery(c.Query("view"), c.Query("project"), c.Query("order"))
	RespondData(c, StatusResponse{
		Snapshot: snap,
		Panel:    status.BuildPanel(snap, q.View, q.Project, q.Order),
	})
}

// RevalidateStatus handles POST /api/status/revalidate. The tag defaults to
// the one shared by every snapshot.
func (h *Handlers) RevalidateStatus(c *gin.Context) {
	tag := c.DefaultQuery("tag", status.Tag)
	if tag == "" {
		RespondValidationError(c, "Tag cannot be empty")
		return
	}

	n := h.status.InvalidateTag(tag)
	h.notif.NotifyStatusInvalidated(tag)

	RespondData(c, RevalidateResponse{Tag: tag, Invalidated: n})
}
