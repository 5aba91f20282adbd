// Package batch downloads and transforms an extraction result on a bounded
// worker pool and packs the outputs into a zip archive with a manifest.
package batch

import (
	"context"
	"fmt"
	"cmp"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/use-agent/galleryzip/metrics"
	"github.com/use-agent/galleryzip/models"
	"github.com/use-agent/galleryzip/transform"
)

// DefaultWorkers is used when Orchestrator.Workers is not positive.
const DefaultWorkers = 4

const reasonCanceled = "canceled"

// Downloader fetches the bytes of one image. Retries, if any, are the
// downloader's business.
type Downloader interface {
	Download(ctx context.Context, ref models.ImageRef) ([]byte, error)
}

// DownloadFunc adapts a plain fetch function to Downloader. It fetches
// ref.ResolvedURL.
type DownloadFunc func(ctx context.Context, url string) ([]byte, error)

func (f DownloadFunc) Download(ctx context.Context, ref models.ImageRef) ([]byte, error) {
	return f(ctx, ref.ResolvedURL)
}

// Result is the outcome of one Run. Archive is a complete zip file.
type Result struct {
	Archive  []byte
	Manifest models.BatchManifest
}

// Orchestrator is the process_batch entry point.
type Orchestrator struct {
	Workers int

	// OnItem, if set, is called from the collector for every resolved item
	// in sequence order.
	OnItem func(models.ManifestItem)
}

type outcome struct {
	pos  int
	item models.ProcessedImage
}

// Run validates cfg, then downloads and transforms every image of res.
// Per-item failures are recorded in the manifest; only an invalid cfg or an
// archive write failure is returned as an error. Canceling ctx marks every
// unresolved item as skipped.
func (o *Orchestrator) Run(ctx context.Context, res *models.ExtractionResult, dl Downloader, cfg transform.Config) (*Result, error) {
	tr, err := transform.New(cfg)
	if err != nil {
		return nil, err
	}

	var refs []models.ImageRef
	if res != nil {
		// Archive and manifest follow SequenceIndex, not slice position.
		refs = slices.SortedStableFunc(slices.Values(res.Images), func(a, b models.ImageRef) int {
			return cmp.Compare(a.SequenceIndex, b.SequenceIndex)
		})
	}
	n := len(refs)
	width := padWidth(refs)

	workers := o.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	workers = max(min(workers, n), 1)

	jobs := make(chan int)
	results := make(chan outcome, workers)

	go func() {
		defer close(jobs)
		for i := range n {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pos := range jobs {
				results <- outcome{pos, process(ctx, tr, dl, refs[pos], width)}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Single writer: only this goroutine touches the archive and manifest.
	aw := newArchiveWriter()
	manifest := models.BatchManifest{TotalRequested: n, Items: make([]models.ManifestItem, 0, n)}
	pending := make(map[int]models.ProcessedImage)
	next := 0
	var writeErr error

	emit := func(p models.ProcessedImage) {
		if p.Status == models.StatusSuccess && writeErr == nil {
			if err := aw.add(p.Filename, p.Data); err != nil {
				writeErr = err
			}
		}
		mi := manifestItem(p)
		manifest.Items = append(manifest.Items, mi)
		if p.Status == models.StatusSuccess {
			manifest.TotalSucceeded++
		} else {
			manifest.TotalSkipped++
		}
		metrics.BatchItemsTotal.WithLabelValues(p.Status).Inc()
		if o.OnItem != nil {
			o.OnItem(mi)
		}
	}

	for out := range results {
		pending[out.pos] = out.item
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			emit(p)
			next++
		}
	}
	// Items never handed to a worker.
	for ; next < n; next++ {
		p, ok := pending[next]
		if !ok {
			p = skipped(refs[next], models.ErrCodeCanceled, reasonCanceled)
		}
		emit(p)
	}

	if writeErr != nil {
		return nil, models.NewPipelineError(models.ErrCodeInternal, "failed to write archive", writeErr)
	}
	archive, err := aw.close()
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeInternal, "failed to finalize archive", err)
	}

	slog.Info("batch finished",
		"requested", manifest.TotalRequested,
		"succeeded", manifest.TotalSucceeded,
		"skipped", manifest.TotalSkipped,
		"archiveBytes", len(archive),
	)
	return &Result{Archive: archive, Manifest: manifest}, nil
}

func process(ctx context.Context, tr *transform.Transformer, dl Downloader, ref models.ImageRef, width int) models.ProcessedImage {
	if ctx.Err() != nil {
		return skipped(ref, models.ErrCodeCanceled, reasonCanceled)
	}

	data, err := dl.Download(ctx, ref)
	if err != nil {
		if ctx.Err() != nil {
			return skipped(ref, models.ErrCodeCanceled, reasonCanceled)
		}
		return skipped(ref, stageCode(err, models.ErrCodeDownload), err.Error())
	}

	start := time.Now()
	out, err := tr.Transform(data)
	metrics.TransformDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return skipped(ref, stageCode(err, models.ErrCodeImageDecode), err.Error())
	}

	return models.ProcessedImage{
		SequenceIndex: ref.SequenceIndex,
		SourceURL:     ref.ResolvedURL,
		Filename:      Filename(ref.SequenceIndex, width),
		Data:          out,
		Status:        models.StatusSuccess,
	}
}

// Filename is the archive entry name of the image at index, zero-padded to
// width digits.
func Filename(index, width int) string {
	return fmt.Sprintf("seq_%0*d.%s", width, index, transform.Ext)
}

// padWidth is the digit count of the largest sequence index, at least 3.
func padWidth(refs []models.ImageRef) int {
	maxIdx := 0
	for _, r := range refs {
		maxIdx = max(maxIdx, r.SequenceIndex)
	}
	return max(len(strconv.Itoa(maxIdx)), 3)
}

// stageCode keeps a PipelineError's code and maps foreign errors to fallback.
func stageCode(err error, fallback string) string {
	if code := models.CodeOf(err); code != models.ErrCodeInternal {
		return code
	}
	return fallback
}

func skipped(ref models.ImageRef, code, reason string) models.ProcessedImage {
	return models.ProcessedImage{
		SequenceIndex: ref.SequenceIndex,
		SourceURL:     ref.ResolvedURL,
		Status:        models.StatusSkipped,
		Code:          code,
		Reason:        reason,
	}
}

func manifestItem(p models.ProcessedImage) models.ManifestItem {
	return models.ManifestItem{
		SequenceIndex: p.SequenceIndex,
		SourceURL:     p.SourceURL,
		Filename:      p.Filename,
		Status:        p.Status,
		Code:          p.Code,
		Reason:        p.Reason,
		Bytes:         len(p.Data),
	}
}
