package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/galleryzip/batch"
	"github.com/use-agent/galleryzip/gallery"
	"github.com/use-agent/galleryzip/metrics"
	"github.com/use-agent/galleryzip/models"
	"github.com/use-agent/galleryzip/site"
	"github.com/use-agent/galleryzip/transform"
	"github.com/use-agent/galleryzip/webhook"
)

const jobSweepInterval = 5 * time.Minute

// BatchSettings configures the batch endpoints.
type BatchSettings struct {
	// MaxImages caps the images of one job. Longer extractions are truncated.
	MaxImages int

	// JobTTL is how long finished jobs stay retrievable.
	JobTTL time.Duration

	// WebhookSecret signs notifications for requests without their own secret.
	WebhookSecret string

	// Webhooks delivers job notifications. Nil means webhook.NewNotifier().
	Webhooks *webhook.Notifier

	// Extract is used for jobs that start from a gallery URL.
	Extract gallery.Options
}

// Batches serves the asynchronous batch API. Jobs live in memory.
type Batches struct {
	// ctx is the parent of every job; canceling it aborts running jobs.
	ctx  context.Context
	ex   GalleryExtractor
	orch *batch.Orchestrator
	dl   batch.Downloader
	cfg  BatchSettings

	jobs    sync.Map // id -> *models.BatchJob
	running sync.WaitGroup
	active  atomic.Int32
}

// NewBatches creates the batch handlers. Expired jobs are swept until ctx
// is done; canceling ctx also aborts running jobs, whose unfinished items
// are reported as canceled.
func NewBatches(ctx context.Context, ex GalleryExtractor, orch *batch.Orchestrator, dl batch.Downloader, cfg BatchSettings) *Batches {
	if cfg.Webhooks == nil {
		cfg.Webhooks = webhook.NewNotifier()
	}
	b := &Batches{ctx: ctx, ex: ex, orch: orch, dl: dl, cfg: cfg}
	go func() {
		ticker := time.NewTicker(jobSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				b.sweep(now)
			}
		}
	}()
	return b
}

// ActiveJobs returns the number of jobs still processing.
func (b *Batches) ActiveJobs() int {
	return int(b.active.Load())
}

// Wait blocks until every running job finished.
func (b *Batches) Wait() {
	b.running.Wait()
}

// Post returns a handler for POST /api/v1/batch.
//
// The processing configuration and the source are validated before the
// job is accepted; everything else happens in the background.
func (b *Batches) Post() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalid(c, err.Error())
			return
		}
		if (req.URL == "") == (len(req.Images) == 0) {
			respondInvalid(c, "exactly one of url and images is required")
			return
		}

		cfg, err := transform.ConfigFromParams(req.Processing)
		if err != nil {
			respondError(c, err)
			return
		}

		var images []models.ImageRef
		if req.URL != "" {
			if _, err := site.Select(req.URL); err != nil {
				respondError(c, err)
				return
			}
		} else {
			if b.cfg.MaxImages > 0 && len(req.Images) > b.cfg.MaxImages {
				respondInvalid(c, fmt.Sprintf("maximum %d images per batch", b.cfg.MaxImages))
				return
			}
			if images, err = normalizeImages(req.Images); err != nil {
				respondError(c, err)
				return
			}
		}

		job := &models.BatchJob{
			ID:        "batch-" + randomID(),
			Status:    models.JobProcessing,
			Total:     len(images),
			CreatedAt: time.Now().Unix(),
		}
		b.jobs.Store(job.ID, job)

		b.running.Add(1)
		go b.run(job, req, images, cfg)

		c.JSON(http.StatusAccepted, models.BatchResponse{
			ID:     job.ID,
			Status: models.JobProcessing,
			Total:  job.Total,
		})
	}
}

// Get returns a handler for GET /api/v1/batch/:id.
func (b *Batches) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := b.load(c.Param("id"))
		if !ok {
			respondError(c, models.NewPipelineError(models.ErrCodeNotFound, "batch job not found", nil))
			return
		}
		c.JSON(http.StatusOK, job.Snapshot())
	}
}

// Archive returns a handler for GET /api/v1/batch/:id/archive.
func (b *Batches) Archive() gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := b.load(c.Param("id"))
		if !ok {
			respondError(c, models.NewPipelineError(models.ErrCodeNotFound, "batch job not found", nil))
			return
		}

		data := job.ArchiveBytes()
		if data == nil {
			if job.Snapshot().Status == models.JobProcessing {
				c.JSON(http.StatusConflict, models.ErrorResponse{
					Error: &models.ErrorDetail{Code: models.ErrCodeNotReady, Message: "batch job is still processing"},
				})
				return
			}
			respondError(c, models.NewPipelineError(models.ErrCodeNotFound, "batch job has no archive", nil))
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zip"`, job.ID))
		c.Data(http.StatusOK, "application/zip", data)
	}
}

func (b *Batches) load(id string) (*models.BatchJob, bool) {
	v, ok := b.jobs.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*models.BatchJob), true
}

// run extracts (when the job starts from a URL), processes and notifies.
func (b *Batches) run(job *models.BatchJob, req models.BatchRequest, images []models.ImageRef, cfg transform.Config) {
	defer b.running.Done()
	b.active.Add(1)
	defer b.active.Add(-1)
	metrics.BatchJobsActive.Inc()
	defer metrics.BatchJobsActive.Dec()

	ctx := b.ctx
	res := &models.ExtractionResult{Images: images}

	if req.URL != "" {
		extracted, err := b.ex.ExtractGalleryWith(ctx, req.URL, b.cfg.Extract)
		if err != nil {
			b.finish(job, req, func(j *models.BatchJob) {
				j.Status = models.JobFailed
				j.Error = detailOf(err)
			})
			return
		}
		res = extracted
		if b.cfg.MaxImages > 0 && res.Len() > b.cfg.MaxImages {
			slog.Warn("extraction exceeds batch limit, truncating",
				"id", job.ID,
				"found", res.Len(),
				"limit", b.cfg.MaxImages,
			)
			truncated := *res
			truncated.Images = res.Images[:b.cfg.MaxImages]
			res = &truncated
		}
		job.Update(func(j *models.BatchJob) {
			j.Total = res.Len()
			j.Site = res.Site
		})
	}

	orch := *b.orch
	orch.OnItem = func(models.ManifestItem) {
		job.Update(func(j *models.BatchJob) { j.Processed++ })
	}

	out, err := orch.Run(ctx, res, b.dl, cfg)
	if err != nil {
		b.finish(job, req, func(j *models.BatchJob) {
			j.Status = models.JobFailed
			j.Error = detailOf(err)
		})
		return
	}

	m := out.Manifest
	b.finish(job, req, func(j *models.BatchJob) {
		j.Manifest = &m
		j.Archive = out.Archive
		switch {
		case m.TotalRequested > 0 && m.TotalSucceeded == 0:
			j.Status = models.JobFailed
		case m.TotalSkipped > 0:
			j.Status = models.JobPartial
		default:
			j.Status = models.JobCompleted
		}
	})
}

// finish applies the final state and sends the webhook, if any.
func (b *Batches) finish(job *models.BatchJob, req models.BatchRequest, fn func(j *models.BatchJob)) {
	job.Update(fn)
	snap := job.Snapshot()

	slog.Info("batch job finished",
		"id", snap.ID,
		"status", snap.Status,
		"total", snap.Total,
		"processed", snap.Processed,
	)

	if req.WebhookURL == "" {
		return
	}
	secret := req.WebhookSecret
	if secret == "" {
		secret = b.cfg.WebhookSecret
	}
	typ := webhook.BatchCompleted
	if snap.Status == models.JobFailed {
		typ = webhook.BatchFailed
	}
	// Jobs finishing during shutdown still get their notification.
	b.cfg.Webhooks.Notify(context.Background(), req.WebhookURL, secret, webhook.NewEvent(typ, snap.ID, snap))
}

// sweep drops finished jobs older than JobTTL.
func (b *Batches) sweep(now time.Time) {
	if b.cfg.JobTTL <= 0 {
		return
	}
	cutoff := now.Add(-b.cfg.JobTTL).Unix()
	b.jobs.Range(func(key, value any) bool {
		job := value.(*models.BatchJob)
		snap := job.Snapshot()
		if snap.Status != models.JobProcessing && job.CreatedAt < cutoff {
			b.jobs.Delete(key)
		}
		return true
	})
}

// normalizeImages checks caller-supplied refs: every ref needs a URL and a
// unique sequence index. A missing ResolvedURL defaults to OriginalURL.
func normalizeImages(refs []models.ImageRef) ([]models.ImageRef, error) {
	out := make([]models.ImageRef, len(refs))
	seen := make(map[int]bool, len(refs))
	for i, r := range refs {
		if r.ResolvedURL == "" {
			r.ResolvedURL = r.OriginalURL
		}
		if r.OriginalURL == "" {
			r.OriginalURL = r.ResolvedURL
		}
		if site.Normalize(r.ResolvedURL, nil) == "" {
			return nil, models.NewPipelineError(models.ErrCodeInvalidInput,
				fmt.Sprintf("image %d has no usable http(s) URL", i), nil)
		}
		if r.SequenceIndex < 0 || seen[r.SequenceIndex] {
			return nil, models.NewPipelineError(models.ErrCodeInvalidInput,
				fmt.Sprintf("image %d has a negative or duplicate sequence_index %d", i, r.SequenceIndex), nil)
		}
		seen[r.SequenceIndex] = true
		out[i] = r
	}
	return out, nil
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
