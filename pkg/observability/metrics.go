// Package observability provides Prometheus metrics for the fetch pipeline
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chunk outcome labels
const (
	ChunkStatusComplete = "complete"
	ChunkStatusPartial  = "partial"
	ChunkStatusFailed   = "failed"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// HistoryPages counts conversation history pages requested
	HistoryPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etlaudit_history_pages_total",
			Help: "Total number of conversation history pages requested",
		},
		[]string{"status"}, // status: success, error
	)

	// RecordsExtracted counts load records parsed out of notifications
	RecordsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etlaudit_records_extracted_total",
			Help: "Total number of load records extracted from notifications",
		},
	)

	// ChunksTotal counts finished chunks by outcome
	ChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etlaudit_chunks_total",
			Help: "Total number of time chunks processed",
		},
		[]string{"status"}, // status: complete, partial, failed
	)

	// ChunkDuration measures how long a chunk takes to drain
	ChunkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etlaudit_chunk_duration_seconds",
			Help:    "Time taken to fetch all pages of a chunk",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
		},
		[]string{"status"},
	)

	// ChunksRunning tracks chunks currently being fetched
	ChunksRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "etlaudit_chunks_running",
			Help: "Number of chunks currently being fetched",
		},
	)

	// SnapshotOperations counts snapshot reads, writes and deletes
	SnapshotOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etlaudit_snapshot_operations_total",
			Help: "Total number of snapshot operations",
		},
		[]string{"operation", "status"}, // operation: load, store, remove; status: success, miss, error
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etlaudit_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordPage records a history page request
func RecordPage(status string) {
	HistoryPages.WithLabelValues(status).Inc()
}

// RecordRecordsExtracted adds to the extracted record counter
func RecordRecordsExtracted(n int) {
	if n <= 0 {
		return
	}

	RecordsExtracted.Add(float64(n))
}

// RecordChunkStart records the start of a chunk
func RecordChunkStart() {
	ChunksRunning.Inc()
}

// RecordChunkComplete records chunk completion
func RecordChunkComplete(status string, duration float64) {
	ChunksRunning.Dec()
	ChunksTotal.WithLabelValues(status).Inc()
	ChunkDuration.WithLabelValues(status).Observe(duration)
}

// RecordSnapshotOperation records a snapshot operation
func RecordSnapshotOperation(operation, status string) {
	SnapshotOperations.WithLabelValues(operation, status).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
