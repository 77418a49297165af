// Package metrics exposes Prometheus collectors for the API client, the
// response cache, the quota tracker and the auto-reply pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	YouTubeRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "youtube_api_requests_total",
		Help: "YouTube Data API calls by operation and outcome",
	}, []string{"operation", "status"})

	CacheResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "youtube_cache_results_total",
		Help: "Cache lookups by resource and result (fresh, stale, miss)",
	}, []string{"resource", "result"})

	QuotaUsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "youtube_quota_used_units",
		Help: "Quota units consumed today",
	})

	GenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reply_generation_duration_seconds",
		Help:    "Latency of reply generation calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	AutoReplies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auto_replies_total",
		Help: "Auto-reply pipeline outcomes",
	}, []string{"state"})
)

// MustRegister registers all collectors.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		YouTubeRequests,
		CacheResults,
		QuotaUsed,
		GenerationDuration,
		AutoReplies,
	)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveYouTube counts one API call.
func ObserveYouTube(operation string, err error) {
	YouTubeRequests.WithLabelValues(operation, status(err)).Inc()
}

// ObserveGeneration records the latency of one generation call.
func ObserveGeneration(model string, start time.Time, err error) {
	if model == "" {
		model = "unknown"
	}
	GenerationDuration.WithLabelValues(model, status(err)).Observe(time.Since(start).Seconds())
}
