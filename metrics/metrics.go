// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galleryzip_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "galleryzip_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galleryzip_extractions_total",
			Help: "Gallery extractions by site and outcome code.",
		},
		[]string{"site", "outcome"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "galleryzip_extraction_duration_seconds",
			Help:    "Duration of gallery extractions including navigation.",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120, 180},
		},
		[]string{"site"},
	)

	ScrollsPerExtraction = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "galleryzip_scrolls_per_extraction",
			Help:    "Scroll cycles performed by one extraction.",
			Buckets: []float64{0, 1, 3, 5, 10, 20, 50, 100},
		},
	)

	ImagesDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galleryzip_images_discovered_total",
			Help: "Unique photos discovered by extractions.",
		},
		[]string{"site"},
	)

	BatchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galleryzip_batch_items_total",
			Help: "Batch items by final status.",
		},
		[]string{"status"},
	)

	TransformDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "galleryzip_transform_duration_seconds",
			Help:    "Time spent decoding, transforming and encoding one image.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galleryzip_downloads_total",
			Help: "Image downloads by outcome (ok, fallback, cached, failed).",
		},
		[]string{"outcome"},
	)

	BatchJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "galleryzip_batch_jobs_active",
			Help: "Batch jobs currently processing.",
		},
	)
)
