package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "HOST", "ENV", "DATA_DIR", "ASSISTANT_API_URL", "ASSISTANT_TIMEOUT",
		"STATUS_CACHE_TTL", "THREAD_COOKIE", "ALLOWED_ORIGINS", "CHAT_RATE_PER_MIN",
	} {
		t.Setenv(key, "")
	}

	c := Load()

	assert.Equal(t, 3000, c.Port)
	assert.Equal(t, "0.0.0.0:3000", c.Addr())
	assert.True(t, c.IsDevelopment())
	assert.Equal(t, "http://127.0.0.1:8000", c.AssistantURL)
	assert.Equal(t, 2*time.Minute, c.AssistantTimeout)
	assert.Equal(t, 30*time.Second, c.StatusCacheTTL)
	assert.Equal(t, "threadID", c.ThreadCookie)
	assert.Equal(t, []string{"http://localhost:3000"}, c.AllowedOrigins)
	assert.Equal(t, "data/project-chat.sqlite", c.DatabasePath)
	assert.Empty(t, c.Warnings)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ENV", "production")
	t.Setenv("ASSISTANT_API_URL", "http://assistant:9000/")
	t.Setenv("STATUS_CACHE_TTL", "5m")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	c := Load()

	assert.Equal(t, 8080, c.Port)
	assert.False(t, c.IsDevelopment())
	assert.Equal(t, "http://assistant:9000", c.AssistantURL)
	assert.Equal(t, 5*time.Minute, c.StatusCacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.AllowedOrigins)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("ASSISTANT_TIMEOUT", "soon")

	c := Load()

	assert.Equal(t, 3000, c.Port)
	assert.Equal(t, 2*time.Minute, c.AssistantTimeout)
	assert.Len(t, c.Warnings, 2)
}
