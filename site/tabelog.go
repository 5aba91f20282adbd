package site

import (
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
)

type tabelog struct {
	layout
}

func newTabelog() *tabelog {
	return &tabelog{layout{
		kind:      KindTabelog,
		container: cascadia.MustCompile(".rstdtl-thumb-list, .rstdtl-photo__list, .js-photo-list, #rstdtl-photo"),
		images:    cascadia.MustCompile(`img, a[href*="tblg.k-img.com"]`),
		referer:   "https://tabelog.com/",
		rules: []rewrite{
			replace(`(?i)(?:_thumb)+\.(jpe?g|png|webp)`, ".${1}"),
			replace(`(?:320x320|480x480|640x640)_rect_`, "1024x1024_rect_"),
			replace(`(?i)_[sm](\d*)\.(jpe?g|png|webp)`, "_l${1}.${2}"),
			stripSizeParams,
		},
	}}
}

// GalleryPageURL maps /<pref>/<area>/<sub>/<id>/[dtlrvwlst/...] to
// /<pref>/<area>/<sub>/<id>/dtlphotolst/.
func (t *tabelog) GalleryPageURL(u *url.URL) string {
	if isPhotoPage(u) {
		return u.String()
	}
	path := strings.TrimRight(u.Path, "/")
	if i := strings.Index(path, "/dtl"); i >= 0 {
		path = path[:i]
	}
	return u.Scheme + "://" + u.Host + path + "/dtlphotolst/"
}

func isPhotoPage(u *url.URL) bool {
	p := strings.ToLower(u.Path)
	return strings.Contains(p, "dtlphotolst") ||
		strings.Contains(p, "photolst") ||
		strings.Contains(p, "/photo")
}
