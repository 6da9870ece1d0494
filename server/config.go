package server

import (
	"time"

	"github.com/xiaoyuanzhu-com/project-chat/assistant"
	"github.com/xiaoyuanzhu-com/project-chat/chat"
	"github.com/xiaoyuanzhu-com/project-chat/config"
	"github.com/xiaoyuanzhu-com/project-chat/db"
)

// Config holds server configuration
type Config struct {
	// Server infrastructure (immutable, requires restart)
	Port int
	Host string
	Env  string // "development" or "production"

	DatabasePath string

	// Remote assistant service
	AssistantURL     string
	AssistantAPIKey  string
	AssistantTimeout time.Duration

	// Status panel
	StatusCacheTTL time.Duration
	StatusFile     string

	// Thread cookie
	ThreadCookie       string
	ThreadCookieMaxAge time.Duration

	// Chat limits
	ChatRatePerMinute int
	ChatRateBurst     int

	AllowedOrigins []string

	// Debug settings
	DBLogQueries bool
}

// ConfigFrom copies the settings the server needs out of the app config
func ConfigFrom(c *config.Config) *Config {
	return &Config{
		Port:               c.Port,
		Host:               c.Host,
		Env:                c.Env,
		DatabasePath:       c.DatabasePath,
		AssistantURL:       c.AssistantURL,
		AssistantAPIKey:    c.AssistantAPIKey,
		AssistantTimeout:   c.AssistantTimeout,
		StatusCacheTTL:     c.StatusCacheTTL,
		StatusFile:         c.StatusFile,
		ThreadCookie:       c.ThreadCookie,
		ThreadCookieMaxAge: c.ThreadCookieMaxAge,
		ChatRatePerMinute:  c.ChatRatePerMinute,
		ChatRateBurst:      c.ChatRateBurst,
		AllowedOrigins:     c.AllowedOrigins,
		DBLogQueries:       c.DBLogQueries,
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// ToDBConfig converts server config to database config
func (c *Config) ToDBConfig() db.Config {
	return db.Config{
		Path:            c.DatabasePath,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 0, // Never expire
		LogQueries:      c.DBLogQueries,
	}
}

// ToAssistantConfig converts server config to assistant client config
func (c *Config) ToAssistantConfig() assistant.Config {
	return assistant.Config{
		BaseURL: c.AssistantURL,
		APIKey:  c.AssistantAPIKey,
		Timeout: c.AssistantTimeout,
	}
}

// ToChatConfig converts server config to chat service config
func (c *Config) ToChatConfig() chat.Config {
	return chat.Config{
		RatePerMinute: c.ChatRatePerMinute,
		RateBurst:     c.ChatRateBurst,
	}
}
