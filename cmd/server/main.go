package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docnum/internal/api"
	"github.com/dgallion1/docnum/internal/config"
	"github.com/dgallion1/docnum/internal/pipeline"
	"github.com/dgallion1/docnum/internal/preview"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Live preview hub.
	hub := preview.NewHub(preview.HubOptions{
		PingInterval: cfg.PreviewPingInterval,
		WriteTimeout: cfg.PreviewWriteTimeout,
	}, log)
	go hub.Run(ctx)

	// Initialize pipeline; finished builds go out to preview clients.
	orch := pipeline.NewOrchestrator(cfg, log)
	orch.OnComplete(func(b *pipeline.Build) {
		msgs, err := preview.Messages(b.DocID, b.Result())
		if err != nil {
			log.Error("preview messages failed", "build_id", b.ID, "error", err)
			return
		}
		if err := hub.Publish(msgs); err != nil {
			log.Error("preview publish failed", "build_id", b.ID, "error", err)
		}
	})
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, hub, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		cancel()
	}()

	log.Info("starting docnum", "port", cfg.Port, "workers", cfg.WorkerCount, "strategy", cfg.ReferenceStrategy)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
