package models

// ExtractResponse is the response for POST /api/v1/gallery/extract.
type ExtractResponse struct {
	// Success indicates whether the extraction completed without errors.
	Success bool `json:"success"`

	// Site is the adapter that handled the page ("tabelog", "hotpepper").
	Site string `json:"site,omitempty"`

	// PageURL is the gallery page that was rendered.
	PageURL string `json:"page_url,omitempty"`

	// Images lists the discovered photos in discovery order.
	Images []ImageRef `json:"images,omitempty"`

	// Total is len(Images).
	Total int `json:"total"`

	// ScrollCount is the number of scroll attempts performed.
	ScrollCount int `json:"scroll_count"`

	// ElapsedMs is the wall time of the extraction.
	ElapsedMs int64 `json:"elapsed_ms"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx response that has no richer type.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status     string    `json:"status"` // "healthy" or "degraded"
	Uptime     string    `json:"uptime"`
	PoolStats  PoolStats `json:"pool_stats"`
	ActiveJobs int       `json:"active_jobs"`
	Version    string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
