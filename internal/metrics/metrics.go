// Package metrics provides Prometheus metrics for the fetcher.
//
// The fetcher is a batch job, so instead of serving /metrics the collected
// values are pushed once to a Pushgateway at the end of a run. All methods
// are safe on a nil *Metrics, which is how metrics are disabled.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Stage labels for FetchFailures.
const (
	StageRetrieve = "retrieve"
	StageCopy     = "copy"
	StageMirror   = "mirror"
)

// Metrics holds all Prometheus metrics for one run.
type Metrics struct {
	registry *prometheus.Registry

	FilesFetched    prometheus.Counter
	CacheHits       prometheus.Counter
	BytesDownloaded prometheus.Counter
	BytesCopied     prometheus.Counter
	FetchFailures   *prometheus.CounterVec

	FileDuration *prometheus.HistogramVec

	LastSuccess prometheus.Gauge
}

// New registers the fetcher metrics on a fresh registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "econ_index_fetch"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FilesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_fetched_total",
			Help:      "Manifest entries copied into the raw directory",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Retrievals served from the local cache",
		}),
		BytesDownloaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_downloaded_total",
			Help:      "Bytes received from the hub",
		}),
		BytesCopied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_copied_total",
			Help:      "Bytes written into the raw directory",
		}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failures by stage",
		}, []string{"stage"}),
		FileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time per manifest entry, by stage",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		}, []string{"stage"}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that fetched every entry",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCacheHit counts a retrieval served from cache.
func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// ObserveDownload adds bytes received from the hub.
func (m *Metrics) ObserveDownload(bytes int64) {
	if m == nil {
		return
	}
	m.BytesDownloaded.Add(float64(bytes))
}

// ObserveCopy records one completed manifest entry.
func (m *Metrics) ObserveCopy(bytes int64) {
	if m == nil {
		return
	}
	m.FilesFetched.Inc()
	m.BytesCopied.Add(float64(bytes))
}

// ObserveStage records how long a stage took for one entry.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.FileDuration.WithLabelValues(stage).Observe(seconds)
}

// IncFailure counts a failure in stage.
func (m *Metrics) IncFailure(stage string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(stage).Inc()
}

// MarkSuccess stamps the completion time of a full run.
func (m *Metrics) MarkSuccess() {
	if m == nil {
		return
	}
	m.LastSuccess.SetToCurrentTime()
}

// Push sends every collected metric to a Pushgateway under job.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if m == nil || gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
