package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xiaoyuanzhu-com/project-chat/log"
)

// ThreadMiddleware makes sure every visitor carries a thread ID cookie. A
// missing or malformed cookie is replaced by a fresh random UUID; a valid
// one is left untouched.
func (h *Handlers) ThreadMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(h.cookie.Name)
		if err != nil || !validThreadID(id) {
			id = uuid.NewString()
			h.setThreadCookie(c, id)
		}

		c.Set(log.ContextKeyThread, id)
		c.Next()
	}
}

// validThreadID accepts canonical lowercase UUIDs only
func validThreadID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}

func (h *Handlers) setThreadCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, id, int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)
}

// threadID returns the visitor's thread set by ThreadMiddleware
func threadID(c *gin.Context) string {
	return c.GetString(log.ContextKeyThread)
}
