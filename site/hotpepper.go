package site

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
)

type hotPepper struct {
	layout
}

func newHotPepper() *hotPepper {
	return &hotPepper{layout{
		kind:      KindHotPepper,
		container: cascadia.MustCompile(".photoList, .jscPhotoList, .shopPhotoList, #photoList"),
		images:    cascadia.MustCompile(`img, a[href*="imgfp.hotp.jp"]`),
		referer:   "https://www.hotpepper.jp/",
		rules: []rewrite{
			replace(`(?i)(?:_thumb)+\.(jpe?g|png|webp)`, ".${1}"),
			replace(`(?i)(imgfp\.hotp\.jp[^"']*?)_[sm]\.`, "${1}_L."),
			stripSizeParams,
		},
	}}
}

var storePath = regexp.MustCompile(`^/str[A-Za-z]\d+`)

// GalleryPageURL maps /strJ000000000/[anything] to /strJ000000000/photo/.
func (h *hotPepper) GalleryPageURL(u *url.URL) string {
	if isPhotoPage(u) {
		return u.String()
	}
	path := strings.TrimRight(u.Path, "/")
	if m := storePath.FindString(path); m != "" {
		path = m
	}
	return u.Scheme + "://" + u.Host + path + "/photo/"
}
