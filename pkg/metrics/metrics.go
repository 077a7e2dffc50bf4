// Package metrics collects Prometheus metrics for a tendril engine.
//
// Metrics collected (namespace "tendril" by default):
//   - tendril_writes_total: variable writes
//   - tendril_bindings: live attribute and property bindings
//   - tendril_events_total: handled events by event name
//   - tendril_fetches_total: fetch directives by status class
//   - tendril_fetch_duration_seconds: fetch round trip time
//   - tendril_faults_total: reported faults by error code
//   - tendril_components_total: component transitions by tag and phase
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "tendril").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for fetch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the collectors. Default: a new private registry.
	Registry *prometheus.Registry
}

// Option configures Config.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics holds the collectors.
type Metrics struct {
	registry      *prometheus.Registry
	writes        prometheus.Counter
	bindings      prometheus.Gauge
	events        *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	faults        *prometheus.CounterVec
	components    *prometheus.CounterVec
}

// New registers the collectors.
func New(opts ...Option) *Metrics {
	config := Config{
		Namespace: "tendril",
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,

		writes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_total",
			Help:        "Total number of variable writes",
			ConstLabels: config.ConstLabels,
		}),

		bindings: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bindings",
			Help:        "Number of live attribute and property bindings",
			ConstLabels: config.ConstLabels,
		}),

		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total number of handled events",
			ConstLabels: config.ConstLabels,
		}, []string{"event"}),

		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetches_total",
			Help:        "Total number of fetch directive requests",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetch_duration_seconds",
			Help:        "Fetch round trip duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		faults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "faults_total",
			Help:        "Total number of reported faults by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		components: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "components_total",
			Help:        "Total number of component lifecycle transitions",
			ConstLabels: config.ConstLabels,
		}, []string{"tag", "phase"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordWrite counts a variable write.
func (m *Metrics) RecordWrite() {
	if m == nil {
		return
	}
	m.writes.Inc()
}

// AddBindings moves the live binding gauge by delta.
func (m *Metrics) AddBindings(delta int) {
	if m == nil {
		return
	}
	m.bindings.Add(float64(delta))
}

// RecordEvent counts a handled event.
func (m *Metrics) RecordEvent(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event).Inc()
}

// RecordFetch records a completed request. A status of zero means the
// transport failed.
func (m *Metrics) RecordFetch(status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(statusClass(status)).Inc()
	m.fetchDuration.Observe(elapsed.Seconds())
}

// RecordFault counts a fault by error code.
func (m *Metrics) RecordFault(code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.faults.WithLabelValues(code).Inc()
}

// RecordComponent counts a component transition.
func (m *Metrics) RecordComponent(tag, phase string) {
	if m == nil {
		return
	}
	m.components.WithLabelValues(tag, phase).Inc()
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
