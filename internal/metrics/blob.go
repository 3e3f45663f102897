package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Blob store metrics.
var (
	BlobOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_operations_total",
			Help:      "Blob store operations",
		},
		[]string{"driver", "op", "result"},
	)

	BlobOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "blob_operation_duration_seconds",
			Help:      "Blob store operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"driver", "op"},
	)

	BlobBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_bytes_total",
			Help:      "Bytes read from and written to the blob store",
		},
		[]string{"driver", "op"},
	)
)

var registerBlobOnce sync.Once

// RegisterBlobMetrics registers blob store metrics. Safe to call more than once.
func RegisterBlobMetrics() {
	registerBlobOnce.Do(func() {
		prometheus.MustRegister(BlobOpsTotal)
		prometheus.MustRegister(BlobOpDuration)
		prometheus.MustRegister(BlobBytesTotal)
	})
}

// BlobObserver records blob operations for one driver.
type BlobObserver struct {
	Driver string
}

// ObserveBlobOp records one operation.
func (o BlobObserver) ObserveBlobOp(op, result string, n int, d time.Duration) {
	BlobOpsTotal.WithLabelValues(o.Driver, op, result).Inc()
	BlobOpDuration.WithLabelValues(o.Driver, op).Observe(d.Seconds())
	BlobBytesTotal.WithLabelValues(o.Driver, op).Add(float64(n))
}
