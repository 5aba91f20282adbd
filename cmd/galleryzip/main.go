package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/galleryzip/api"
	"github.com/use-agent/galleryzip/api/handler"
	"github.com/use-agent/galleryzip/batch"
	"github.com/use-agent/galleryzip/cache"
	"github.com/use-agent/galleryzip/config"
	"github.com/use-agent/galleryzip/fetch"
	"github.com/use-agent/galleryzip/gallery"
	"github.com/use-agent/galleryzip/scraper"
)

// jobDrainTimeout bounds how long shutdown waits for running batch jobs.
const jobDrainTimeout = 30 * time.Second

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("galleryzip starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxPages,
		"workers", cfg.Batch.Workers,
	)

	// ── 3. Initialise scraper (launches browser) ────────────────────
	sc, err := scraper.New(cfg.Browser, cfg.Scraper)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}
	defer sc.Close()

	// ── 4. Download path: cache + fetcher ───────────────────────────
	cc := cache.New(cfg.Download.CacheEntries, cfg.Download.CacheTTL)
	defer cc.Close()
	fx := fetch.New(cfg.Download, cc)
	defer fx.Close()

	// ── 5. Pipeline stages ──────────────────────────────────────────
	extractOpts := api.ExtractOptions(cfg.Extractor)
	svc := gallery.NewService(sc, extractOpts, cfg.Extractor.Timeout)
	orch := &batch.Orchestrator{Workers: cfg.Batch.Workers}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	batches := handler.NewBatches(ctx, svc, orch, fx, handler.BatchSettings{
		MaxImages:     cfg.Batch.MaxImages,
		JobTTL:        cfg.Batch.JobTTL,
		WebhookSecret: cfg.Webhook.Secret,
		Extract:       extractOpts,
	})

	// ── 6. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(ctx, cfg, svc, batches, sc, time.Now())

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	stop()

	drained := make(chan struct{})
	go func() {
		batches.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		slog.Info("batch jobs drained")
	case <-time.After(jobDrainTimeout):
		slog.Warn("batch jobs still running at shutdown", "timeout", jobDrainTimeout)
	}

	// Deferred closers drain the page pool and kill Chrome.
	slog.Info("galleryzip stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
