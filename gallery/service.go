package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/galleryzip/metrics"
	"github.com/use-agent/galleryzip/models"
	"github.com/use-agent/galleryzip/site"
)

// SessionOpener hands out one rendering session per extraction. release
// must be called exactly once when the extraction is finished.
type SessionOpener interface {
	Open(ctx context.Context) (page Page, release func(), err error)
}

// Service is the extract_gallery entry point: site selection, navigation
// and the scroll loop.
type Service struct {
	Sessions  SessionOpener
	Extractor *Extractor
	Options   Options

	// Timeout bounds the whole extraction including navigation; 0 means none.
	Timeout time.Duration
}

func NewService(sessions SessionOpener, opts Options, timeout time.Duration) *Service {
	return &Service{
		Sessions:  sessions,
		Extractor: &Extractor{},
		Options:   opts,
		Timeout:   timeout,
	}
}

// ExtractGallery extracts with the service's default options.
func (s *Service) ExtractGallery(ctx context.Context, rawURL string) (*models.ExtractionResult, error) {
	return s.ExtractGalleryWith(ctx, rawURL, s.Options)
}

// ExtractGalleryWith selects the adapter for rawURL before any browser work,
// renders the gallery page and runs the scroll loop.
func (s *Service) ExtractGalleryWith(ctx context.Context, rawURL string, opts Options) (*models.ExtractionResult, error) {
	start := time.Now()

	adapter, err := site.Select(rawURL)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("unknown", models.CodeOf(err)).Inc()
		return nil, err
	}
	kind := string(adapter.Kind())

	res, err := s.extract(ctx, adapter, rawURL, opts)

	metrics.ExtractionDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(kind, models.CodeOf(err)).Inc()
		return nil, err
	}
	metrics.ExtractionsTotal.WithLabelValues(kind, "ok").Inc()
	metrics.ScrollsPerExtraction.Observe(float64(res.ScrollCount))
	metrics.ImagesDiscovered.WithLabelValues(kind).Add(float64(res.Len()))

	res.Elapsed = time.Since(start)
	slog.Info("gallery extracted",
		"site", kind,
		"url", res.PageURL,
		"images", res.Len(),
		"scrolls", res.ScrollCount,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

func (s *Service) extract(ctx context.Context, adapter site.Adapter, rawURL string, opts Options) (*models.ExtractionResult, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeInvalidInput, "invalid gallery URL", err)
	}
	target := adapter.GalleryPageURL(u)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	page, release, err := s.Sessions.Open(ctx)
	if err != nil {
		return nil, asPipelineError(err, models.ErrCodeBrowserCrash, "failed to open browser session")
	}
	defer release()

	if err := page.Render(ctx, target); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, models.NewPipelineError(models.ErrCodeTimeout,
				fmt.Sprintf("gallery page %s did not load in time", target), err)
		}
		return nil, asPipelineError(err, models.ErrCodeNavigation,
			fmt.Sprintf("failed to load gallery page %s", target))
	}

	res, err := s.Extractor.Extract(ctx, page, adapter, opts)
	if err != nil {
		return nil, err
	}
	if res.PageURL == "" {
		res.PageURL = target
	}
	return res, nil
}

func asPipelineError(err error, code, msg string) error {
	var pe *models.PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return models.NewPipelineError(code, msg, err)
}
