// Package site holds the per-site rules for finding gallery photos in a
// rendered page and mapping thumbnail URLs to their full-size form.
//
// The set of sites is closed: Select dispatches a gallery URL to exactly one
// Adapter variant by host, and every variant implements the same interface.
package site

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/galleryzip/models"
)

// Kind identifies an Adapter variant.
type Kind string

const (
	KindTabelog   Kind = "tabelog"
	KindHotPepper Kind = "hotpepper"
)

// Adapter is the fixed capability set every supported site implements.
type Adapter interface {
	// Kind returns the variant tag.
	Kind() Kind

	// GalleryPageURL maps a store page URL to its photo-list page.
	// Photo-list URLs are returned unchanged.
	GalleryPageURL(u *url.URL) string

	// LocateContainer returns the element holding the gallery, or the whole
	// document when the layout's container is absent.
	LocateContainer(doc *goquery.Document) *goquery.Selection

	// LocateImages returns the candidate photo elements inside container.
	LocateImages(container *goquery.Selection) *goquery.Selection

	// ExtractRawSrc returns the photo URL carried by one element, as written
	// in the page. It fails for elements that carry no usable URL.
	ExtractRawSrc(el *goquery.Selection) (string, error)

	// ResolveHighRes maps a thumbnail URL to its full-resolution URL.
	// It is pure and idempotent and returns raw unchanged when no rule applies.
	ResolveHighRes(raw string) string

	// Referer is the header image CDNs of this site expect.
	Referer() string
}

// layout carries the parts shared by all variants.
type layout struct {
	kind      Kind
	container cascadia.Selector
	images    cascadia.Selector
	rules     []rewrite
	referer   string
}

func (l *layout) Kind() Kind { return l.kind }

func (l *layout) Referer() string { return l.referer }

func (l *layout) LocateContainer(doc *goquery.Document) *goquery.Selection {
	if c := doc.FindMatcher(l.container).First(); c.Length() > 0 {
		return c
	}
	return doc.Selection
}

func (l *layout) LocateImages(container *goquery.Selection) *goquery.Selection {
	return container.FindMatcher(l.images)
}

func (l *layout) ExtractRawSrc(el *goquery.Selection) (string, error) {
	return extractRawSrc(el)
}

func (l *layout) ResolveHighRes(raw string) string {
	return resolve(raw, l.rules)
}

// hostSuffixes maps registrable domains to their variant.
var hostSuffixes = []struct {
	domain string
	kind   Kind
}{
	{"tabelog.com", KindTabelog},
	{"hotpepper.jp", KindHotPepper},
}

var (
	tabelogAdapter   = newTabelog()
	hotPepperAdapter = newHotPepper()
)

// Select returns the adapter for galleryURL. It fails with an
// ErrCodeUnsupportedSite PipelineError when no variant matches.
func Select(galleryURL string) (Adapter, error) {
	u, err := url.Parse(strings.TrimSpace(galleryURL))
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeUnsupportedSite, "gallery URL is not a valid URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, models.NewPipelineError(models.ErrCodeUnsupportedSite,
			fmt.Sprintf("unsupported URL scheme %q", u.Scheme), nil)
	}

	host := strings.ToLower(u.Hostname())
	for _, hs := range hostSuffixes {
		if host == hs.domain || strings.HasSuffix(host, "."+hs.domain) {
			return ByKind(hs.kind)
		}
	}
	return nil, models.NewPipelineError(models.ErrCodeUnsupportedSite,
		fmt.Sprintf("no gallery layout known for host %q", host), nil)
}

// ByKind returns the adapter for a variant tag.
func ByKind(k Kind) (Adapter, error) {
	switch k {
	case KindTabelog:
		return tabelogAdapter, nil
	case KindHotPepper:
		return hotPepperAdapter, nil
	default:
		return nil, models.NewPipelineError(models.ErrCodeUnsupportedSite,
			fmt.Sprintf("unknown site kind %q", k), nil)
	}
}

// RefererFor returns the Referer expected by the CDN serving imageURL, or ""
// for hosts no adapter knows.
func RefererFor(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.HasSuffix(host, "k-img.com"), strings.HasSuffix(host, "tabelog.com"):
		return tabelogAdapter.Referer()
	case strings.HasSuffix(host, "hotp.jp"), strings.HasSuffix(host, "hotpepper.jp"):
		return hotPepperAdapter.Referer()
	}
	return ""
}
