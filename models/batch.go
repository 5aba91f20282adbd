package models

import "sync"

// Item status values recorded in a BatchManifest.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
)

// Batch job status values.
const (
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobPartial    = "partial"
	JobFailed     = "failed"
)

// ProcessedImage is the outcome for one ImageRef in a batch run.
type ProcessedImage struct {
	SequenceIndex int
	SourceURL     string
	Filename      string
	Data          []byte
	Status        string
	Code          string
	Reason        string
}

// ManifestItem is the per-image record of a BatchManifest.
type ManifestItem struct {
	SequenceIndex int    `json:"sequence_index"`
	SourceURL     string `json:"source_url"`
	Filename      string `json:"filename,omitempty"`
	Status        string `json:"status"`
	Code          string `json:"code,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Bytes         int    `json:"bytes,omitempty"`
}

// BatchManifest accounts for every image of a batch run.
type BatchManifest struct {
	TotalRequested int            `json:"total_requested"`
	TotalSucceeded int            `json:"total_succeeded"`
	TotalSkipped   int            `json:"total_skipped"`
	Items          []ManifestItem `json:"items"`
}

// BatchRequest is the payload for POST /api/v1/batch.
//
// Exactly one of URL and Images is required: URL runs an extraction first,
// Images processes a previously extracted (possibly filtered) list.
type BatchRequest struct {
	URL           string           `json:"url,omitempty" binding:"omitempty,url"`
	Images        []ImageRef       `json:"images,omitempty" binding:"omitempty,max=500"`
	Processing    ProcessingParams `json:"processing"`
	WebhookURL    string           `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string           `json:"webhook_secret,omitempty"`
}

// ProcessingParams is the wire form of a processing configuration.
type ProcessingParams struct {
	// Preset names a fixed output size: "portrait", "landscape" or "square".
	// Width and Height override it when both are set.
	Preset  string      `json:"preset,omitempty"`
	Width   int         `json:"width,omitempty"`
	Height  int         `json:"height,omitempty"`
	Anchor  string      `json:"anchor,omitempty"`
	Enhance string      `json:"enhance,omitempty"`
	Logo    *LogoParams `json:"logo,omitempty"`
}

// LogoParams is the wire form of a logo overlay.
type LogoParams struct {
	ImageBase64 string `json:"image_base64"`
	Position    string `json:"position,omitempty"`

	// Opacity defaults to 1 when absent.
	Opacity  *float64 `json:"opacity,omitempty"`
	Scale    float64  `json:"scale"`
	MarginPx int      `json:"margin_px"`
	Outline  bool     `json:"outline,omitempty"`

	// XPercent and YPercent are used with position "custom".
	XPercent float64 `json:"x_percent,omitempty"`
	YPercent float64 `json:"y_percent,omitempty"`
	OffsetX  int     `json:"offset_x,omitempty"`
	OffsetY  int     `json:"offset_y,omitempty"`
}

// BatchResponse is the immediate response for POST /api/v1/batch.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Total       int            `json:"total"`
	Processed   int            `json:"processed"`
	Site        string         `json:"site,omitempty"`
	Manifest    *BatchManifest `json:"manifest,omitempty"`
	ArchivePath string         `json:"archive_path,omitempty"`
	Error       *ErrorDetail   `json:"error,omitempty"`
}

// BatchJob tracks an in-progress batch operation.
type BatchJob struct {
	mu sync.Mutex

	ID        string
	Status    string
	Total     int
	Processed int
	Site      string
	Manifest  *BatchManifest
	Archive   []byte
	Error     *ErrorDetail
	CreatedAt int64 // unix timestamp
}

// Snapshot returns a consistent status view of the job.
func (j *BatchJob) Snapshot() BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	resp := BatchStatusResponse{
		ID:        j.ID,
		Status:    j.Status,
		Total:     j.Total,
		Processed: j.Processed,
		Site:      j.Site,
		Manifest:  j.Manifest,
		Error:     j.Error,
	}
	if j.Archive != nil {
		resp.ArchivePath = "/api/v1/batch/" + j.ID + "/archive"
	}
	return resp
}

// Update applies fn under the job lock.
func (j *BatchJob) Update(fn func(j *BatchJob)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(j)
}

// ArchiveBytes returns the finished archive, or nil while the job runs.
func (j *BatchJob) ArchiveBytes() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Archive
}
