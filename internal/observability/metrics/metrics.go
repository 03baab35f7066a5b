// Package metrics declares Prometheus counters/histograms for the
// ingest/retrieval/generation domain, adapted from the teacher's root go.mod
// prometheus/client_golang dependency. They are registered with the default
// registry when this package is imported; neither cmd/api nor cmd/worker
// imports it, and no code in this tree updates them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestJobsTotal counts ingest actor completions by actor and outcome.
	IngestJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "knowhub_ingest_jobs_total",
		Help: "Total ingest jobs processed, by actor and outcome.",
	}, []string{"actor", "outcome"})

	// GenerationDuration tracks end-to-end generation turn latency.
	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "knowhub_generation_duration_seconds",
		Help:    "Latency of a full retrieval+generation turn.",
		Buckets: prometheus.DefBuckets,
	})

	// VectorstoreQueryDuration tracks read-path latency by read kind
	// (embeddings, fts, hybrid).
	VectorstoreQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "knowhub_vectorstore_query_duration_seconds",
		Help:    "Latency of vectorstore read operations, by kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// StreamSubscribers tracks the number of active SSE subscribers.
	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "knowhub_stream_subscribers",
		Help: "Current number of open generation SSE subscriptions.",
	})
)
