package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "chat-relay/internal/app"
	httpx "chat-relay/internal/http"
	relay "chat-relay/internal/relay"
	ws "chat-relay/internal/ws"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Redis backplane for multi-instance fanout, single-node when unset
	var bus *ws.Bus
	if cfg.RedisAddr != "" {
		b, err := ws.NewBus(ctx, cfg, logger)
		if err != nil {
			logger.Error("redis connect", "err", err)
			log.Fatal(err)
		}
		defer b.Close()
		bus = b
	}

	// Transport hub
	hub := ws.NewHub(logger, bus, cfg)
	go hub.Run(ctx)

	// One registry shared by both session handlers
	registry := relay.NewRegistry()
	bc := relay.NewBroadcaster(hub)
	chat := relay.NewChat(registry, hub, bc, logger)
	notify := relay.NewNotifications(registry, hub, bc, logger)

	// HTTP + WS router
	router := httpx.NewRouter(cfg, hub, chat, notify)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	// shutdown
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
