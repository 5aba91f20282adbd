package site

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	errNoElement   = errors.New("empty selection")
	errUnsupported = errors.New("element does not carry a photo URL")
	errNoSource    = errors.New("element has no usable source")
)

// lazyAttrs are checked in order when src holds a placeholder.
var lazyAttrs = []string{"data-src", "data-lazy-src", "data-original"}

var placeholderHints = []string{"spacer", "blank.gif", "loading", "noimage", "no_image", "1x1", "dummy"}

func extractRawSrc(el *goquery.Selection) (string, error) {
	if el == nil || el.Length() == 0 {
		return "", errNoElement
	}
	n := el.Get(0)
	if n.Type != html.ElementNode {
		return "", errUnsupported
	}

	switch n.Data {
	case "a":
		if href := attr(n, "href"); href != "" && !isPlaceholder(href) {
			return href, nil
		}
		return "", errNoSource
	case "img", "source":
		if src := attr(n, "src"); src != "" && !isPlaceholder(src) {
			return src, nil
		}
		for _, a := range lazyAttrs {
			if v := attr(n, a); v != "" && !isPlaceholder(v) {
				return v, nil
			}
		}
		for _, a := range []string{"srcset", "data-srcset"} {
			if v := firstSrcsetCandidate(attr(n, a)); v != "" && !isPlaceholder(v) {
				return v, nil
			}
		}
		return "", errNoSource
	default:
		return "", errUnsupported
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func isPlaceholder(src string) bool {
	s := strings.ToLower(strings.TrimSpace(src))
	if s == "" || strings.HasPrefix(s, "data:") || strings.HasPrefix(s, "javascript:") || s == "#" {
		return true
	}
	for _, h := range placeholderHints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

func firstSrcsetCandidate(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Normalize makes raw absolute against base. Protocol-relative URLs get https.
// It returns "" when raw cannot be made into an absolute http(s) URL.
func Normalize(raw string, base *url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		if base == nil {
			return ""
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

var (
	photoExt      = regexp.MustCompile(`(?i)\.(jpe?g|png|webp)(?:$|[?#])`)
	tinyDimension = regexp.MustCompile(`(?:^|[^0-9])(?:100x100|150x150|1x1)(?:[^0-9]|$)`)
)

var nonPhotoHints = []string{"pixel", "tracking", "blank", "avatar", "icon", "logo", "banner", "imgvc.com"}

// IsPhotoURL reports whether an absolute URL plausibly points at a gallery
// photo rather than a tracker, icon or page link.
func IsPhotoURL(u string) bool {
	if len(u) < 20 {
		return false
	}
	lower := strings.ToLower(u)
	for _, h := range nonPhotoHints {
		if strings.Contains(lower, h) {
			return false
		}
	}
	if tinyDimension.MatchString(lower) {
		return false
	}
	return photoExt.MatchString(lower)
}
