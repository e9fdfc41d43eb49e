package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hrconsole"

var (
	// Directory Metrics
	DirectoryResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "directory_resolutions_total",
		Help:      "Count of employee directory resolutions by source and outcome.",
	}, []string{"source", "outcome"})

	DirectoryFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "directory_fetch_duration_seconds",
		Help:      "Time taken by a single directory endpoint call.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	DirectoryIdentities = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "directory_identities",
		Help:      "Number of identities in the most recent ready directory.",
	}, []string{"source"})

	// Import Metrics
	ImportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_rows_total",
		Help:      "Number of spreadsheet rows ingested.",
	}, []string{"entity", "format"})

	ImportFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_failures_total",
		Help:      "Count of spreadsheet uploads rejected before producing records.",
	}, []string{"entity", "reason"})

	// Validation and Submission Metrics
	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_failures_total",
		Help:      "Count of field violations found before submission.",
	}, []string{"entity", "field"})

	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Count of record submissions to the backend.",
	}, []string{"entity", "status"})
)
