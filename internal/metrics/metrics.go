package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ThumbnailLookups результат поиска миниатюры: cache, db, created, passthrough
	ThumbnailLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_thumbnail_lookups_total",
			Help: "Thumbnail requests by resolution source",
		},
		[]string{"source"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_thumbnail_generation_seconds",
			Help:    "Time spent resampling images",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"processor"},
	)

	ThumbnailFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_thumbnail_failures_total",
			Help: "Thumbnail generations that failed",
		},
	)

	GalleryItemsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_items_created_total",
			Help: "Top-level gallery items created",
		},
	)

	GalleryItemsDestroyed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_items_destroyed_total",
			Help: "Gallery items destroyed, thumbnails included",
		},
	)
)
