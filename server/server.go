package server

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/project-chat/assistant"
	"github.com/xiaoyuanzhu-com/project-chat/chat"
	"github.com/xiaoyuanzhu-com/project-chat/db"
	"github.com/xiaoyuanzhu-com/project-chat/log"
	"github.com/xiaoyuanzhu-com/project-chat/metrics"
	"github.com/xiaoyuanzhu-com/project-chat/notifications"
	"github.com/xiaoyuanzhu-com/project-chat/status"
	"github.com/xiaoyuanzhu-com/project-chat/web"
)

// Server owns and coordinates all application components
type Server struct {
	cfg *Config

	// Components (owned by server)
	database     *db.DB
	metrics      *metrics.Metrics
	notifService *notifications.Service
	assistant    *assistant.Client
	fileSource   *status.FileSource // nil unless a fixture file is configured
	statusCache  *status.Cache
	chatService  *chat.Service

	// Shutdown context - cancelled when server is shutting down.
	// Long-running handlers (SSE) should listen to this.
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc

	// HTTP
	router *gin.Engine
	http   *http.Server
}

// New creates a new server with all components initialized
func New(cfg *Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:            cfg,
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
	}

	// 1. Open database
	log.Info().Msg("initializing database")
	database, err := db.Open(cfg.ToDBConfig())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s.database = database

	// 2. Metrics and notifications
	s.metrics = metrics.New()
	s.notifService = notifications.NewService(s.metrics)

	// 3. Assistant client
	log.Info().Str("url", cfg.AssistantURL).Msg("initializing assistant client")
	s.assistant = assistant.NewClient(cfg.ToAssistantConfig(), s.metrics)

	// 4. Status source and cache
	if err := s.initStatus(); err != nil {
		s.closeComponents()
		cancel()
		return nil, err
	}

	// 5. Chat service
	s.chatService = chat.NewService(cfg.ToChatConfig(), s.database, s.assistant, s.statusCache, s.notifService, s.metrics)

	// 6. Setup HTTP router
	if err := s.setupRouter(); err != nil {
		s.closeComponents()
		cancel()
		return nil, err
	}

	log.Info().Msg("server initialized successfully")
	return s, nil
}

// initStatus picks the status source: the fixture file when configured,
// otherwise the remote assistant.
func (s *Server) initStatus() error {
	var source status.Source = s.assistant

	if s.cfg.StatusFile != "" {
		log.Info().Str("path", s.cfg.StatusFile).Msg("serving status from fixture file")
		fileSource, err := status.NewFileSource(s.cfg.StatusFile)
		if err != nil {
			return fmt.Errorf("failed to open status file: %w", err)
		}
		s.fileSource = fileSource
		source = fileSource
	}

	cache, err := status.NewCache(source, s.cfg.StatusCacheTTL, s.metrics)
	if err != nil {
		return err
	}
	s.statusCache = cache

	if s.fileSource != nil {
		// Fixture edits behave like a chat reply: every status view is stale
		err := s.fileSource.Watch(func() {
			s.statusCache.InvalidateTag(status.Tag)
			s.notifService.NotifyStatusInvalidated(status.Tag)
		})
		if err != nil {
			log.Warn().Err(err).Msg("status file watch unavailable, changes need a restart")
		}
	}
	return nil
}

// setupRouter creates and configures the Gin router
func (s *Server) setupRouter() error {
	// Set Gin mode
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	s.router = gin.New()

	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(log.GinLogger())

	// CORS for development
	if s.cfg.IsDevelopment() {
		s.router.Use(s.corsMiddleware())
	}

	// Security headers (production only)
	if !s.cfg.IsDevelopment() {
		s.router.Use(s.securityHeadersMiddleware())
	}

	// Gzip compression (skip SSE endpoint)
	s.router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		"/api/notifications/stream", // SSE - needs streaming
	})))

	// Trust proxy headers
	if err := s.router.SetTrustedProxies(nil); err != nil {
		return fmt.Errorf("failed to configure proxies: %w", err)
	}

	tmpl, err := web.Templates()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	s.router.SetHTMLTemplate(tmpl)

	// Ignore .well-known requests
	s.router.GET("/.well-known/*path", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	// Note: routes are set up by calling code (main.go)
	// to avoid import cycles
	return nil
}

// corsMiddleware handles CORS for development environments
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if slices.Contains(s.cfg.AllowedOrigins, origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Requested-With")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// securityHeadersMiddleware adds security headers for production
func (s *Server) securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "SAMEORIGIN")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

// Start starts the HTTP server (blocks)
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.StdErrorLogger(), // Route Go's internal HTTP errors through zerolog
	}

	log.Info().
		Str("addr", s.http.Addr).
		Str("env", s.cfg.Env).
		Msg("HTTP server starting")

	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")

	// 1. Signal long-running handlers (SSE) to stop
	s.shutdownCancel()

	// 2. Cancel background chat sends and wait for them
	s.chatService.Close()

	// 3. Disconnect SSE clients
	s.notifService.Shutdown()

	// 4. Stop accepting requests and wait for in-flight ones
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http server shutdown error")
		}
	}

	// Close database last
	if err := s.closeComponents(); err != nil {
		log.Error().Err(err).Msg("database close error")
		return err
	}

	log.Info().Msg("server shutdown complete")
	return nil
}

// closeComponents releases the watcher, cache and database
func (s *Server) closeComponents() error {
	if s.fileSource != nil {
		if err := s.fileSource.Close(); err != nil {
			log.Warn().Err(err).Msg("status file watcher close error")
		}
	}
	if s.statusCache != nil {
		s.statusCache.Close()
	}
	if s.database != nil {
		return s.database.Close()
	}
	return nil
}

// Config returns the server configuration
func (s *Server) Config() *Config { return s.cfg }

// Component accessors for API handlers
func (s *Server) DB() *db.DB                            { return s.database }
func (s *Server) Metrics() *metrics.Metrics             { return s.metrics }
func (s *Server) Notifications() *notifications.Service { return s.notifService }
func (s *Server) StatusCache() *status.Cache            { return s.statusCache }
func (s *Server) Chat() *chat.Service                   { return s.chatService }
func (s *Server) Router() *gin.Engine                   { return s.router }
func (s *Server) ShutdownContext() context.Context      { return s.shutdownCtx }
