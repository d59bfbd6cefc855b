// Package metrics exports suggestion pipeline metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter collects counters and histograms for the suggestion
// engine and the index. All record methods are safe for concurrent use.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Suggestion request metrics
	suggestRequests *prometheus.CounterVec
	suggestLatency  *prometheus.HistogramVec
	stageLatency    *prometheus.HistogramVec

	// Fallback metrics
	fallbackTriggers *prometheus.CounterVec
	llmFailures      *prometheus.CounterVec
	llmTokens        *prometheus.CounterVec

	// Index state
	indexDocuments prometheus.Gauge
	indexChunks    prometheus.Gauge
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.suggestRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "obsrag",
			Subsystem: "suggest",
			Name:      "requests_total",
			Help:      "Total number of suggestion requests",
		},
		[]string{"status"},
	)

	e.suggestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "obsrag",
			Subsystem: "suggest",
			Name:      "request_latency_seconds",
			Help:      "End-to-end suggestion request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"status"},
	)

	e.stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "obsrag",
			Subsystem: "suggest",
			Name:      "stage_latency_seconds",
			Help:      "Per-stage suggestion pipeline latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"stage"},
	)

	e.fallbackTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "obsrag",
			Subsystem: "suggest",
			Name:      "fallback_triggers_total",
			Help:      "Total number of LLM fallback activations",
		},
		[]string{"reason"},
	)

	e.llmFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "obsrag",
			Subsystem: "suggest",
			Name:      "llm_failures_total",
			Help:      "Total number of absorbed LLM fallback failures",
		},
		[]string{"kind"},
	)

	e.llmTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "obsrag",
			Subsystem: "suggest",
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed by the fallback",
		},
		[]string{"model", "token_type"},
	)

	e.indexDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "obsrag",
			Subsystem: "index",
			Name:      "documents",
			Help:      "Number of documents in the vector index",
		},
	)

	e.indexChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "obsrag",
			Subsystem: "index",
			Name:      "chunks",
			Help:      "Number of embedded chunks in the vector index",
		},
	)

	registry.MustRegister(
		e.suggestRequests,
		e.suggestLatency,
		e.stageLatency,
		e.fallbackTriggers,
		e.llmFailures,
		e.llmTokens,
		e.indexDocuments,
		e.indexChunks,
	)

	return e
}

// RecordSuggestRequest records one finished suggestion request.
func (e *PrometheusExporter) RecordSuggestRequest(status string, latency time.Duration) {
	e.suggestRequests.WithLabelValues(status).Inc()
	e.suggestLatency.WithLabelValues(status).Observe(latency.Seconds())
}

// ObserveSuggestStage records the latency of one pipeline stage.
func (e *PrometheusExporter) ObserveSuggestStage(stage string, latency time.Duration) {
	e.stageLatency.WithLabelValues(stage).Observe(latency.Seconds())
}

// RecordFallbackTrigger records an LLM fallback activation and why it fired.
func (e *PrometheusExporter) RecordFallbackTrigger(reason string) {
	e.fallbackTriggers.WithLabelValues(reason).Inc()
}

// RecordLLMFailure records an absorbed fallback failure ("call" or "parse").
func (e *PrometheusExporter) RecordLLMFailure(kind string) {
	e.llmFailures.WithLabelValues(kind).Inc()
}

// RecordLLMTokens records LLM token usage.
func (e *PrometheusExporter) RecordLLMTokens(model, tokenType string, count int) {
	e.llmTokens.WithLabelValues(model, tokenType).Add(float64(count))
}

// SetIndexStats publishes the current index size.
func (e *PrometheusExporter) SetIndexStats(documents, chunks int64) {
	e.indexDocuments.Set(float64(documents))
	e.indexChunks.Set(float64(chunks))
}

// GetHandler returns the HTTP handler for Prometheus metrics.
func (e *PrometheusExporter) GetHandler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler for the metrics endpoint.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.GetHandler().ServeHTTP(w, r)
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
