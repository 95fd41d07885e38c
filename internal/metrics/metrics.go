package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation Metrics
var (
	// GenerationsTotal tracks generate requests by outcome (success, error, rejected, discarded)
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flyer_generations_total",
			Help: "Total flyer generations by status",
		},
		[]string{"status"},
	)

	// GenerationDuration tracks end-to-end pipeline latency in seconds
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flyer_generation_duration_seconds",
			Help:    "Flyer generation duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// PipelineErrors tracks pipeline failures by error class (decode, surface, asset_fetch, other)
	PipelineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flyer_pipeline_errors_total",
			Help: "Pipeline failures by error class",
		},
		[]string{"class"},
	)
)

// Asset Metrics
var (
	// TemplateFetchesTotal tracks template retrievals by status
	TemplateFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flyer_template_fetches_total",
			Help: "Template asset fetches by status",
		},
		[]string{"status"},
	)
)

// Upload Metrics
var (
	// UploadBytes tracks the size of selected source files
	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flyer_upload_bytes",
			Help:    "Size of uploaded source images in bytes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
		},
	)
)
