package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_requests_total",
		Help: "Chat requests by intent, language and outcome.",
	}, []string{"intent", "language", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assistant_request_duration_seconds",
		Help:    "End-to-end chat request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"intent"})

	retrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "assistant_retrieval_duration_seconds",
		Help:    "Vector search latency including query embedding.",
		Buckets: prometheus.DefBuckets,
	})

	chunksIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_chunks_ingested_total",
		Help: "Chunks written to the vector store by source type.",
	}, []string{"source_type"})

	embeddingRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assistant_embedding_retries_total",
		Help: "Embedding calls retried after a transient provider failure.",
	})
)

// ObserveRequest records one completed chat request.
func ObserveRequest(intent, language, outcome string, d time.Duration) {
	requestsTotal.WithLabelValues(intent, language, outcome).Inc()
	requestDuration.WithLabelValues(intent).Observe(d.Seconds())
}

// ObserveRetrieval records one retrieval round trip.
func ObserveRetrieval(d time.Duration) {
	retrievalDuration.Observe(d.Seconds())
}

// CountChunks records chunks written for a source type.
func CountChunks(sourceType string, n int) {
	chunksIngested.WithLabelValues(sourceType).Add(float64(n))
}

// CountEmbeddingRetry records one embedding retry.
func CountEmbeddingRetry() {
	embeddingRetries.Inc()
}
