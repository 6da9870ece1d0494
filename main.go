package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaoyuanzhu-com/project-chat/api"
	"github.com/xiaoyuanzhu-com/project-chat/config"
	"github.com/xiaoyuanzhu-com/project-chat/log"
	"github.com/xiaoyuanzhu-com/project-chat/server"
)

// shutdownGrace bounds how long in-flight requests may take after a signal
const shutdownGrace = 15 * time.Second

func main() {
	cfg := config.Get()
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}

	srv, err := server.New(server.ConfigFrom(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	// Setup routes
	api.SetupRoutes(srv.Router(), api.NewHandlers(srv))

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}
