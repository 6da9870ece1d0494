package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xiaoyuanzhu-com/project-chat/chat"
	"github.com/xiaoyuanzhu-com/project-chat/log"
)

var chatLogger = log.GetLogger("ApiChat")

// ChatFormField is the name of the message input on the chat page
const ChatFormField = "chat-message"

// SendMessageRequest is the body of POST /api/chat
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse is the answer of a synchronous POST /api/chat
type SendMessageResponse struct {
	Reply    string       `json:"reply"`
	Messages []chat.Entry `json:"messages"`
}

// ResetResponse carries the thread that replaces a reset one
type ResetResponse struct {
	ThreadID string `json:"threadId"`
}

// GetChatMessages handles GET /api/chat/messages
func (h *Handlers) GetChatMessages(c *gin.Context) {
	transcript, err := h.chat.Transcript(c.Request.Context(), threadID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondData(c, transcript)
}

// PostChat handles POST /api/chat. With ?async=1 it answers 202 as soon as
// the message is stored and delivers the reply over the notification stream.
func (h *Handlers) PostChat(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body")
		return
	}

	thread := threadID(c)

	if isTruthy(c.Query("async")) {
		transcript, err := h.chat.SendAsync(c.Request.Context(), thread, req.Content)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		RespondAccepted(c, transcript)
		return
	}

	reply, err := h.chat.Send(c.Request.Context(), thread, req.Content)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondData(c, SendMessageResponse{
		Reply:    reply.Content,
		Messages: reply.Transcript.Messages,
	})
}

// DeleteChat handles DELETE /api/chat: the transcript is dropped and the
// visitor gets a new thread, so the assistant starts over as well.
func (h *Handlers) DeleteChat(c *gin.Context) {
	if err := h.chat.Reset(c.Request.Context(), threadID(c)); err != nil {
		respondServiceError(c, err)
		return
	}

	id := uuid.NewString()
	h.setThreadCookie(c, id)
	c.Set(log.ContextKeyThread, id)

	RespondData(c, ResetResponse{ThreadID: id})
}

// SubmitChatForm handles POST /chat from the page form and redirects back to
// the page with the status window state preserved.
func (h *Handlers) SubmitChatForm(c *gin.Context) {
	q := parseQuery(c.PostForm("view"), c.PostForm("project"), c.PostForm("order"))
	content := c.PostForm(ChatFormField)

	// Blank submissions are ignored
	if strings.TrimSpace(content) == "" {
		c.Redirect(http.StatusSeeOther, q.URL())
		return
	}

	if _, err := h.chat.Send(c.Request.Context(), threadID(c), content); err != nil {
		_ = c.Error(err)
		chatLogger.Warn().Err(err).Str("thread", threadID(c)).Msg("chat form submission failed")

		values := q.Values()
		values.Set("notice", noticeCode(err))
		c.Redirect(http.StatusSeeOther, "/?"+values.Encode())
		return
	}

	c.Redirect(http.StatusSeeOther, q.URL())
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	}
	return false
}

