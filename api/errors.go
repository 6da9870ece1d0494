package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/project-chat/assistant"
	"github.com/xiaoyuanzhu-com/project-chat/chat"
	"github.com/xiaoyuanzhu-com/project-chat/status"
)

// respondServiceError maps domain errors onto HTTP answers
func respondServiceError(c *gin.Context, err error) {
	_ = c.Error(err)

	var apiErr *assistant.APIError
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		RespondValidationError(c, "Message cannot be empty")
	case errors.Is(err, chat.ErrNoThread):
		RespondBadRequest(c, "Missing thread")
	case errors.Is(err, chat.ErrReplyPending):
		RespondConflict(c, "The assistant is still answering the previous message")
	case errors.Is(err, chat.ErrRateLimited):
		RespondTooManyRequests(c, "Too many messages, please slow down")
	case errors.Is(err, assistant.ErrUnavailable):
		RespondServiceUnavailable(c, "The assistant is unavailable")
	case errors.As(err, &apiErr), errors.Is(err, status.ErrInvalidSnapshot):
		RespondBadGateway(c, "The assistant returned an unexpected response")
	default:
		RespondInternalError(c, "Internal server error")
	}
}

// Notices shown on the page after a failed form submission, keyed by the
// notice query parameter.
var notices = map[string]string{
	"pending": "The assistant is still answering your previous message.",
	"limited": "You are sending messages too quickly. Please wait a moment.",
	"failed":  "The assistant could not answer. Please try again.",
}

func noticeCode(err error) string {
	switch {
	case errors.Is(err, chat.ErrReplyPending):
		return "pending"
	case errors.Is(err, chat.ErrRateLimited):
		return "limited"
	default:
		return "failed"
	}
}
