package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/galleryzip/gallery"
	"github.com/use-agent/galleryzip/models"
)

// Extract returns a handler for POST /api/v1/gallery/extract.
//
// Request fields left unset take their values from defaults.
func Extract(ex GalleryExtractor, defaults gallery.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ExtractResponse{
				Error: &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: err.Error()},
			})
			return
		}
		req.Defaults(defaults.MaxScrolls, defaults.StabilityThreshold)

		opts := defaults
		opts.MaxScrolls = req.MaxScrolls
		opts.StabilityThreshold = req.StabilityThreshold

		res, err := ex.ExtractGalleryWith(c.Request.Context(), req.URL, opts)
		if err != nil {
			d := detailOf(err)
			c.JSON(statusFor(d.Code), models.ExtractResponse{
				Error:     d,
				ElapsedMs: time.Since(start).Milliseconds(),
			})
			return
		}

		c.JSON(http.StatusOK, models.ExtractResponse{
			Success:     true,
			Site:        res.Site,
			PageURL:     res.PageURL,
			Images:      res.Images,
			Total:       res.Len(),
			ScrollCount: res.ScrollCount,
			ElapsedMs:   time.Since(start).Milliseconds(),
		})
	}
}
