package observe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "fbind").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for mount duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collector.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "fbind",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors. Create one per registry.
type Metrics struct {
	nodesCompiled   prometheus.Counter
	bindingsTotal   *prometheus.CounterVec
	updatesTotal    *prometheus.CounterVec
	directiveErrors *prometheus.CounterVec
	mountDuration   prometheus.Histogram
}

// NewMetrics creates and registers the collectors.
// It panics if they are already registered with the chosen registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		nodesCompiled: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "nodes_compiled_total",
			Help:        "Total number of elements compiled",
			ConstLabels: config.ConstLabels,
		}),

		bindingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "bindings_total",
			Help:        "Total number of bindings created",
			ConstLabels: config.ConstLabels,
		}, []string{"strategy"}),

		updatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "updates_total",
			Help:        "Total number of update strategy applications",
			ConstLabels: config.ConstLabels,
		}, []string{"strategy"}),

		directiveErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "directive_errors_total",
			Help:        "Total number of directive and binding failures",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		mountDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "mount_duration_seconds",
			Help:        "Mount duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// NodeCompiled counts one compiled element.
func (m *Metrics) NodeCompiled() {
	if m == nil {
		return
	}
	m.nodesCompiled.Inc()
}

// BindingCreated counts a new binding using strategy.
func (m *Metrics) BindingCreated(strategy string) {
	if m == nil {
		return
	}
	m.bindingsTotal.WithLabelValues(strategy).Inc()
}

// Updated counts one application of strategy.
func (m *Metrics) Updated(strategy string) {
	if m == nil {
		return
	}
	m.updatesTotal.WithLabelValues(strategy).Inc()
}

// DirectiveError counts a failure with the given error code.
func (m *Metrics) DirectiveError(code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.directiveErrors.WithLabelValues(code).Inc()
}

// ObserveMount records the duration of one mount.
func (m *Metrics) ObserveMount(d time.Duration) {
	if m == nil {
		return
	}
	m.mountDuration.Observe(d.Seconds())
}
