package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/galleryzip/gallery"
	"github.com/use-agent/galleryzip/models"
)

// GalleryExtractor runs one extraction. *gallery.Service implements it.
type GalleryExtractor interface {
	ExtractGalleryWith(ctx context.Context, url string, opts gallery.Options) (*models.ExtractionResult, error)
}

// statusFor translates error codes to HTTP status codes.
func statusFor(code string) int {
	switch code {
	case models.ErrCodeUnsupportedSite, models.ErrCodeConfiguration, models.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case models.ErrCodeEmptyGallery:
		return http.StatusUnprocessableEntity
	case models.ErrCodeNotFound:
		return http.StatusNotFound
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case models.ErrCodeNavigation, models.ErrCodeBrowserCrash, models.ErrCodeDownload:
		return http.StatusBadGateway
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// detailOf converts any error to an API-facing ErrorDetail. Foreign errors
// are reported as INTERNAL_ERROR with their message.
func detailOf(err error) *models.ErrorDetail {
	return models.AsPipelineError(err).ToDetail()
}

func respondError(c *gin.Context, err error) {
	d := detailOf(err)
	c.JSON(statusFor(d.Code), models.ErrorResponse{Error: d})
}

func respondInvalid(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: msg},
	})
}
