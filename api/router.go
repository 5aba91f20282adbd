package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/galleryzip/api/handler"
	"github.com/use-agent/galleryzip/api/middleware"
	"github.com/use-agent/galleryzip/config"
	"github.com/use-agent/galleryzip/gallery"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → Metrics
//	API:     Auth (if enabled) → RateLimit
//
// Health and /metrics stay outside auth so health checks and scrapers always work.
// Background sweepers stop when ctx is done.
func NewRouter(ctx context.Context, cfg *config.Config, ex handler.GalleryExtractor, batches *handler.Batches, ps handler.PoolStatter, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(ps, batches, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.POST("/gallery/extract", handler.Extract(ex, ExtractOptions(cfg.Extractor)))

	protected.POST("/batch", batches.Post())
	protected.GET("/batch/:id", batches.Get())
	protected.GET("/batch/:id/archive", batches.Archive())

	return r
}

// ExtractOptions maps extractor config to per-extraction defaults.
func ExtractOptions(cfg config.ExtractorConfig) gallery.Options {
	return gallery.Options{
		MaxScrolls:         cfg.MaxScrolls,
		StabilityThreshold: cfg.StabilityThreshold,
		ScrollTimeout:      cfg.ScrollTimeout,
	}
}
