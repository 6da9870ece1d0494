package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port int
	Host string
	Env  string // "development" or "production"

	LogLevel string

	// Data directory
	DataDir string

	// Database
	DatabasePath string

	// Remote assistant service
	AssistantURL     string
	AssistantAPIKey  string
	AssistantTimeout time.Duration

	// Status panel
	StatusCacheTTL time.Duration
	StatusFile     string // fixture snapshot, replaces the remote status endpoint

	// Thread cookie
	ThreadCookie       string
	ThreadCookieMaxAge time.Duration

	// Chat rate limiting (per thread)
	ChatRatePerMinute int
	ChatRateBurst     int

	// Development CORS
	AllowedOrigins []string

	// Debug settings
	DBLogQueries bool

	// Problems found while parsing; logged once the logger is up
	Warnings []string
}

var (
	cfg  *Config
	once sync.Once
)

// Get returns the global configuration (singleton)
func Get() *Config {
	once.Do(func() {
		// A missing .env is normal outside local development.
		_ = godotenv.Load()
		cfg = Load()
	})
	return cfg
}

// Load reads configuration from environment variables
func Load() *Config {
	c := &Config{}

	dataDir := c.getEnv("DATA_DIR", "./data")

	c.Port = c.getEnvInt("PORT", 3000)
	c.Host = c.getEnv("HOST", "0.0.0.0")
	c.Env = c.getEnv("ENV", "development")
	c.LogLevel = c.getEnv("LOG_LEVEL", "info")

	c.DataDir = dataDir
	c.DatabasePath = filepath.Join(dataDir, "project-chat.sqlite")

	c.AssistantURL = strings.TrimRight(c.getEnv("ASSISTANT_API_URL", "http://127.0.0.1:8000"), "/")
	c.AssistantAPIKey = c.getEnv("ASSISTANT_API_KEY", "")
	c.AssistantTimeout = c.getEnvDuration("ASSISTANT_TIMEOUT", 2*time.Minute)

	c.StatusCacheTTL = c.getEnvDuration("STATUS_CACHE_TTL", 30*time.Second)
	c.StatusFile = c.getEnv("STATUS_FILE", "")

	c.ThreadCookie = c.getEnv("THREAD_COOKIE", "threadID")
	c.ThreadCookieMaxAge = c.getEnvDuration("THREAD_COOKIE_MAX_AGE", 30*24*time.Hour)

	c.ChatRatePerMinute = c.getEnvInt("CHAT_RATE_PER_MIN", 20)
	c.ChatRateBurst = c.getEnvInt("CHAT_RATE_BURST", 5)

	c.AllowedOrigins = splitList(c.getEnv("ALLOWED_ORIGINS", "http://localhost:3000"))

	c.DBLogQueries = c.getEnv("DB_LOG_QUERIES", "") == "1"

	return c
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func (c *Config) getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil || i < 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a valid count, using %d", key, value, defaultValue))
		return defaultValue
	}
	return i
}

func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a valid duration, using %s", key, value, defaultValue))
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
