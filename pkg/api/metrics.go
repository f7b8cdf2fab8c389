package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// TracesmithDatasetsTotal tracks the number of datasets generated
	TracesmithDatasetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracesmith_datasets_total",
			Help: "Total number of datasets generated",
		},
	)

	// TracesmithRecordsTotal tracks generated trace records by type and status
	TracesmithRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracesmith_records_total",
			Help: "Total number of trace records generated",
		},
		[]string{"service_type", "status"},
	)

	// TracesmithGenerateSeconds tracks dataset generation latency
	TracesmithGenerateSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracesmith_generate_seconds",
			Help:    "Wall time spent generating a dataset",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(TracesmithDatasetsTotal)
	prometheus.MustRegister(TracesmithRecordsTotal)
	prometheus.MustRegister(TracesmithGenerateSeconds)
}
