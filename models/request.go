package models

// ExtractRequest is the payload for POST /api/v1/gallery/extract.
type ExtractRequest struct {
	// URL is the store or gallery page. Required.
	URL string `json:"url" binding:"required,url"`

	// MaxScrolls caps the number of scroll attempts.
	// Default: server config. Max: 200.
	MaxScrolls int `json:"max_scrolls,omitempty" binding:"omitempty,min=1,max=200"`

	// StabilityThreshold is the number of consecutive scrolls without new
	// images after which the gallery is considered fully loaded.
	// Default: server config. Max: 20.
	StabilityThreshold int `json:"stability_threshold,omitempty" binding:"omitempty,min=1,max=20"`
}

// Defaults applies default values to unset fields.
func (r *ExtractRequest) Defaults(maxScrolls, stabilityThreshold int) {
	if r.MaxScrolls == 0 {
		r.MaxScrolls = maxScrolls
	}
	if r.StabilityThreshold == 0 {
		r.StabilityThreshold = stabilityThreshold
	}
}
