package gallery

import (
	"context"
	"errors"
	"testing"

	"github.com/use-agent/galleryzip/models"
)

type fakeOpener struct {
	page     Page
	err      error
	opened   int
	released int
}

func (o *fakeOpener) Open(ctx context.Context) (Page, func(), error) {
	o.opened++
	if o.err != nil {
		return nil, nil, o.err
	}
	return o.page, func() { o.released++ }, nil
}

type recordingPage struct {
	*fakePage
	rendered  string
	renderErr error
}

func (p *recordingPage) Render(ctx context.Context, url string) error {
	p.rendered = url
	return p.renderErr
}

func TestService_UnsupportedSiteFailsBeforeBrowser(t *testing.T) {
	opener := &fakeOpener{}
	svc := NewService(opener, Options{}, 0)

	_, err := svc.ExtractGallery(context.Background(), "https://www.example.com/restaurant/1/photos")
	if !models.IsCode(err, models.ErrCodeUnsupportedSite) {
		t.Fatalf("err = %v, want UNSUPPORTED_SITE", err)
	}
	if opener.opened != 0 {
		t.Errorf("opened %d sessions, want 0", opener.opened)
	}
}

func TestService_RendersGalleryPage(t *testing.T) {
	page := &recordingPage{fakePage: &fakePage{stages: [][]string{thumbs(0, 3)}}}
	opener := &fakeOpener{page: page}
	svc := NewService(opener, Options{MaxScrolls: 5, StabilityThreshold: 1}, 0)

	res, err := svc.ExtractGallery(context.Background(), "https://tabelog.com/tokyo/A1303/A130302/13215961/")
	if err != nil {
		t.Fatalf("ExtractGallery: %v", err)
	}
	if page.rendered != photoListURL {
		t.Errorf("rendered %q, want %q", page.rendered, photoListURL)
	}
	if res.Len() != 3 {
		t.Errorf("images = %d, want 3", res.Len())
	}
	if opener.released != 1 {
		t.Errorf("released %d times, want 1", opener.released)
	}
}

func TestService_RenderFailureIsNavigationError(t *testing.T) {
	page := &recordingPage{fakePage: &fakePage{stages: [][]string{nil}}, renderErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	opener := &fakeOpener{page: page}
	svc := NewService(opener, Options{}, 0)

	_, err := svc.ExtractGallery(context.Background(), "https://www.hotpepper.jp/strJ001234567/")
	if !models.IsCode(err, models.ErrCodeNavigation) {
		t.Fatalf("err = %v, want NAVIGATION_FAILED", err)
	}
	if opener.released != 1 {
		t.Errorf("released %d times, want 1", opener.released)
	}
}

func TestService_OpenFailureKeepsCode(t *testing.T) {
	opener := &fakeOpener{err: models.NewPipelineError(models.ErrCodeBrowserCrash, "pool closed", nil)}
	svc := NewService(opener, Options{}, 0)

	_, err := svc.ExtractGallery(context.Background(), "https://tabelog.com/tokyo/A1303/A130302/13215961/")
	if !models.IsCode(err, models.ErrCodeBrowserCrash) {
		t.Fatalf("err = %v, want BROWSER_CRASH", err)
	}
}
