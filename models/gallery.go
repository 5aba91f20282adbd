package models

import "time"

// ImageRef is one photo discovered on a gallery page.
type ImageRef struct {
	// OriginalURL is the absolute URL as it appeared in the page.
	OriginalURL string `json:"original_url"`

	// ResolvedURL is the high-resolution form of OriginalURL. It is unique
	// within one ExtractionResult.
	ResolvedURL string `json:"resolved_url"`

	// SequenceIndex is the 0-based discovery order.
	SequenceIndex int `json:"sequence_index"`
}

// ExtractionResult is the output of one gallery-page extraction run.
// It is not modified after it is returned.
type ExtractionResult struct {
	Site        string        `json:"site"`
	PageURL     string        `json:"page_url"`
	Images      []ImageRef    `json:"images"`
	ScrollCount int           `json:"scroll_count"`
	Elapsed     time.Duration `json:"-"`
}

// Len returns the number of discovered images.
func (r *ExtractionResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Images)
}
