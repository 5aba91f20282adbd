// Package gallery drives scroll-and-collect photo discovery against a
// rendered gallery page.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/galleryzip/models"
	"github.com/use-agent/galleryzip/site"
)

// Page is one rendering session. Calls are never concurrent: the extractor
// issues at most one call at a time and waits for it.
type Page interface {
	// Render navigates to url and waits for the first stable DOM.
	Render(ctx context.Context, url string) error

	// Snapshot returns the current DOM.
	Snapshot(ctx context.Context) (Snapshot, error)

	// ScrollAndWait scrolls further and reports whether the page height or
	// element count changed once the page settled.
	ScrollAndWait(ctx context.Context) (changed bool, err error)
}

// Snapshot is a serialized DOM and the URL it was taken at.
type Snapshot struct {
	HTML string
	URL  string
}

const (
	DefaultMaxScrolls         = 50
	DefaultStabilityThreshold = 3
	DefaultScrollTimeout      = 10 * time.Second
)

// Options bounds one extraction. Zero values take the defaults above.
type Options struct {
	MaxScrolls         int
	StabilityThreshold int
	ScrollTimeout      time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxScrolls <= 0 {
		o.MaxScrolls = DefaultMaxScrolls
	}
	if o.StabilityThreshold <= 0 {
		o.StabilityThreshold = DefaultStabilityThreshold
	}
	if o.ScrollTimeout <= 0 {
		o.ScrollTimeout = DefaultScrollTimeout
	}
	return o
}

// Extractor collects photos from a page that has already been rendered.
type Extractor struct{}

// Extract repeatedly collects, scrolls and compares until the page stops
// yielding new photos. Canceling ctx stops scrolling and returns what was
// accumulated. It fails with EMPTY_GALLERY when nothing was found.
func (e *Extractor) Extract(ctx context.Context, page Page, adapter site.Adapter, opts Options) (*models.ExtractionResult, error) {
	opts = opts.withDefaults()
	start := time.Now()

	acc := newAccumulator()
	m := NewMachine(opts.MaxScrolls, opts.StabilityThreshold)
	var pageURL string

	collect := func() {
		snap, err := page.Snapshot(ctx)
		if err != nil {
			slog.Debug("snapshot failed, treating cycle as empty", "error", err)
			return
		}
		if snap.URL != "" {
			pageURL = snap.URL
		}
		skipped := collectSnapshot(snap, adapter, acc)
		if skipped > 0 {
			slog.Debug("skipped gallery elements without a usable source", "count", skipped)
		}
	}

	collect()
	m.Loaded()

	for m.State() != StateDone {
		if ctx.Err() != nil {
			m.Stop()
			break
		}
		before := acc.len()
		changed, wedged := scrollOnce(ctx, page, opts.ScrollTimeout)
		if wedged {
			slog.Warn("page did not answer scroll within timeout, ending extraction",
				"timeout", opts.ScrollTimeout, "scrolls", m.Scrolls())
			m.Observe(false)
			m.Stop()
			break
		}
		if ctx.Err() != nil {
			m.Stop()
			break
		}
		collect()
		st := m.Observe(changed || acc.len() > before)
		slog.Debug("scroll cycle", "scroll", m.Scrolls(), "images", acc.len(), "state", st.String())
	}

	if acc.len() == 0 {
		return nil, models.NewPipelineError(models.ErrCodeEmptyGallery,
			fmt.Sprintf("no photos found after %d scrolls", m.Scrolls()), ctx.Err())
	}

	return &models.ExtractionResult{
		Site:        string(adapter.Kind()),
		PageURL:     pageURL,
		Images:      acc.refs,
		ScrollCount: m.Scrolls(),
		Elapsed:     time.Since(start),
	}, nil
}

// scrollOnce runs one ScrollAndWait under timeout. An error or deadline is
// reported as no change. wedged is set when the page ignored the deadline
// and the call is still outstanding.
func scrollOnce(ctx context.Context, page Page, timeout time.Duration) (changed, wedged bool) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		changed bool
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		c, err := page.ScrollAndWait(cctx)
		done <- outcome{c, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if !errors.Is(o.err, context.DeadlineExceeded) && !errors.Is(o.err, context.Canceled) {
				slog.Debug("scroll failed, treating cycle as stable", "error", o.err)
			}
			return false, false
		}
		return o.changed, false
	case <-cctx.Done():
		// Grace period for collaborators that return promptly on cancel.
		select {
		case o := <-done:
			return o.err == nil && o.changed, false
		case <-time.After(100 * time.Millisecond):
			return false, ctx.Err() == nil
		}
	}
}

// collectSnapshot merges the photos in snap into acc and returns the number
// of candidate elements that were skipped as malformed.
func collectSnapshot(snap Snapshot, adapter site.Adapter, acc *accumulator) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return 0
	}
	base, err := url.Parse(snap.URL)
	if err != nil || snap.URL == "" {
		base = nil
	}

	skipped := 0
	adapter.LocateImages(adapter.LocateContainer(doc)).Each(func(_ int, el *goquery.Selection) {
		raw, err := adapter.ExtractRawSrc(el)
		if err != nil {
			skipped++
			return
		}
		abs := site.Normalize(raw, base)
		if abs == "" || !site.IsPhotoURL(abs) {
			return
		}
		acc.add(abs, adapter.ResolveHighRes(abs))
	})
	return skipped
}

// accumulator dedups by resolved URL and keeps first-seen order.
type accumulator struct {
	seen map[string]struct{}
	refs []models.ImageRef
}

func newAccumulator() *accumulator {
	return &accumulator{seen: make(map[string]struct{})}
}

func (a *accumulator) add(original, resolved string) bool {
	if _, ok := a.seen[resolved]; ok {
		return false
	}
	a.seen[resolved] = struct{}{}
	a.refs = append(a.refs, models.ImageRef{
		OriginalURL:   original,
		ResolvedURL:   resolved,
		SequenceIndex: len(a.refs),
	})
	return true
}

func (a *accumulator) len() int { return len(a.refs) }
