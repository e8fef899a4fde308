package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Play registration outcomes.
const (
	PlayIncremented = "incremented"
	PlayDuplicate   = "duplicate"
	PlayFailed      = "failed"
)

var (
	PlayRegistrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "melodia_play_registrations_total", Help: "Play registrations by outcome"},
		[]string{"result"},
	)
	Uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "melodia_uploads_total", Help: "Files stored in the blob store by kind"},
		[]string{"kind"},
	)
	BlobDeleteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "melodia_blob_delete_failures_total", Help: "Best-effort blob deletes that failed"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "melodia_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

var registerOnce sync.Once

// RegisterMetrics adds the collectors to the default registry once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(PlayRegistrations, Uploads, BlobDeleteFailures, RequestDuration)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
