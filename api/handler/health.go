package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/galleryzip/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// PoolStatter reports browser pool utilisation. *scraper.Scraper implements it.
type PoolStatter interface {
	Stats() models.PoolStats
}

// JobCounter reports running batch jobs. *Batches implements it.
type JobCounter interface {
	ActiveJobs() int
}

// Health returns a handler for GET /api/v1/health.
//
// Status is "degraded" while every browser tab is busy, since a new
// extraction then waits for a tab before it can start.
func Health(ps PoolStatter, jobs JobCounter, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := ps.Stats()
		status := "healthy"
		if stats.MaxPages > 0 && stats.ActivePages >= stats.MaxPages {
			status = "degraded"
		}
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     status,
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			PoolStats:  stats,
			ActiveJobs: jobs.ActiveJobs(),
			Version:    Version,
		})
	}
}
