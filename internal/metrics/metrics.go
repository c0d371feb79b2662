// Package metrics exports the observability hooks as Prometheus metrics.
//
// Install registers a collector for every hook category and returns it; the
// server mounts [Metrics.Handler] at /metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/radialtree/pkg/errors"
	"github.com/matzehuels/radialtree/pkg/observability"
)

const namespace = "radialtree"

// Metrics implements every hook interface in pkg/observability.
type Metrics struct {
	registry *prometheus.Registry

	layouts      prometheus.Histogram
	visibleNodes prometheus.Gauge
	reconciles   *prometheus.CounterVec
	events       *prometheus.CounterVec
	eventLatency *prometheus.HistogramVec
	skips        *prometheus.CounterVec

	decodes      *prometheus.CounterVec
	decodeTime   *prometheus.HistogramVec
	renders      *prometheus.CounterVec
	renderTime   prometheus.Histogram
	cacheResults *prometheus.CounterVec
	cacheBytes   *prometheus.CounterVec

	requests    *prometheus.CounterVec
	requestTime *prometheus.HistogramVec
}

// New creates collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		layouts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Time spent computing radial layouts.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		visibleNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "layout_visible_nodes",
			Help:      "Visible node count of the most recent layout.",
		}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciled_items_total",
			Help:      "Scene items reconciled, by transition kind.",
		}, []string{"kind"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Dispatched events, by kind and error code.",
		}, []string{"event", "code"}),
		eventLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Time spent handling one event.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"event"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_renders_total",
			Help:      "Render passes skipped for lack of a drawable viewport.",
		}, []string{"reason"}),
		decodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_decoded_total",
			Help:      "Decoded documents, by format and result.",
		}, []string{"format", "result"}),
		decodeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding documents.",
		}, []string{"format"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_rendered_total",
			Help:      "Rendered artifacts, by format and result.",
		}, []string{"format", "result"}),
		renderTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering one batch of artifacts.",
		}),
		cacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups, by key type and result.",
		}, []string{"key_type", "result"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache, by key type.",
		}, []string{"key_type"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP responses, by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.layouts, m.visibleNodes, m.reconciles, m.events, m.eventLatency, m.skips,
		m.decodes, m.decodeTime, m.renders, m.renderTime, m.cacheResults, m.cacheBytes,
		m.requests, m.requestTime,
		prometheus.NewGoCollector(),
	)
	return m
}

// Install creates collectors and registers them as the global hooks.
func Install() *Metrics {
	m := New()
	observability.SetRenderHooks(m)
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OnLayout(_ context.Context, nodes int, d time.Duration) {
	m.layouts.Observe(d.Seconds())
	m.visibleNodes.Set(float64(nodes))
}

func (m *Metrics) OnReconcile(_ context.Context, enter, update, exit int, _ time.Duration) {
	m.reconciles.WithLabelValues("enter").Add(float64(enter))
	m.reconciles.WithLabelValues("update").Add(float64(update))
	m.reconciles.WithLabelValues("exit").Add(float64(exit))
}

func (m *Metrics) OnDispatch(_ context.Context, kind string, d time.Duration, err error) {
	m.events.WithLabelValues(kind, codeLabel(err)).Inc()
	m.eventLatency.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) OnSkip(_ context.Context, reason string) {
	m.skips.WithLabelValues(reason).Inc()
}

func (m *Metrics) OnDecodeStart(context.Context, string) {}

func (m *Metrics) OnDecodeComplete(_ context.Context, format string, _ int, d time.Duration, err error) {
	m.decodes.WithLabelValues(format, result(err)).Inc()
	m.decodeTime.WithLabelValues(format).Observe(d.Seconds())
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	for _, f := range formats {
		m.renders.WithLabelValues(f, result(err)).Inc()
	}
	m.renderTime.Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheResults.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheResults.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestTime.WithLabelValues(method, route).Observe(d.Seconds())
}

// OnError is covered by OnResponse, which sees the status the error mapped to.
func (m *Metrics) OnError(context.Context, string, string, error) {}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func codeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return strings.ToLower(string(code))
}

var (
	_ observability.RenderHooks   = (*Metrics)(nil)
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
