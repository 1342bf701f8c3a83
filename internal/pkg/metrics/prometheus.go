package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sp3dr4/snip/config"
)

// PrometheusRegistry implements the Registry interface using Prometheus metrics
type PrometheusRegistry struct {
	registry *prometheus.Registry
	config   config.MetricsConfig

	// HTTP Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business Metrics
	linksCreatedTotal      prometheus.Counter
	linksDeduplicatedTotal prometheus.Counter
	linksDeletedTotal      prometheus.Counter
	redirectsTotal         *prometheus.CounterVec
	cacheErrorsTotal       *prometheus.CounterVec
	clicksRecordedTotal    *prometheus.CounterVec
	dependencyUp           *prometheus.GaugeVec
}

// NewPrometheusRegistry creates a new Prometheus metrics registry
func NewPrometheusRegistry(cfg config.MetricsConfig) (Registry, error) {
	registry := prometheus.NewRegistry()

	// Create HTTP metrics
	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatusCode},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath, LabelStatusCode},
	)

	httpRequestsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// Create business metrics
	newCounter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		})
	}
	newCounterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	linksCreatedTotal := newCounter("links_created_total", "Total number of links created")
	linksDeduplicatedTotal := newCounter("links_deduplicated_total", "Total number of create requests answered with an existing link")
	linksDeletedTotal := newCounter("links_deleted_total", "Total number of links deleted")
	redirectsTotal := newCounterVec("redirects_total", "Total number of redirects served", LabelCacheStatus)
	cacheErrorsTotal := newCounterVec("cache_errors_total", "Total number of tolerated cache failures", LabelOperation)
	clicksRecordedTotal := newCounterVec("clicks_recorded_total", "Total number of asynchronous click updates", LabelStatus)

	dependencyUp := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "dependency_up",
			Help:      "Whether a backing dependency answered its last health probe (1) or not (0)",
		},
		[]string{LabelDependency},
	)

	// Register all metrics
	metricsCollectors := []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDuration,
		httpRequestsInFlight,
		linksCreatedTotal,
		linksDeduplicatedTotal,
		linksDeletedTotal,
		redirectsTotal,
		cacheErrorsTotal,
		clicksRecordedTotal,
		dependencyUp,
	}

	for _, collector := range metricsCollectors {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	// Register Go runtime metrics if enabled
	if cfg.CollectRuntime {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	return &PrometheusRegistry{
		registry:               registry,
		config:                 cfg,
		httpRequestsTotal:      httpRequestsTotal,
		httpRequestDuration:    httpRequestDuration,
		httpRequestsInFlight:   httpRequestsInFlight,
		linksCreatedTotal:      linksCreatedTotal,
		linksDeduplicatedTotal: linksDeduplicatedTotal,
		linksDeletedTotal:      linksDeletedTotal,
		redirectsTotal:         redirectsTotal,
		cacheErrorsTotal:       cacheErrorsTotal,
		clicksRecordedTotal:    clicksRecordedTotal,
		dependencyUp:           dependencyUp,
	}, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration
func (p *PrometheusRegistry) RecordHTTPRequest(method, path, statusCode string, duration float64) {
	labels := prometheus.Labels{
		LabelMethod:     method,
		LabelPath:       path,
		LabelStatusCode: statusCode,
	}
	p.httpRequestsTotal.With(labels).Inc()
	p.httpRequestDuration.With(labels).Observe(duration)
}

// IncHTTPRequestsInFlight increments the in-flight HTTP requests counter
func (p *PrometheusRegistry) IncHTTPRequestsInFlight() {
	p.httpRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements the in-flight HTTP requests counter
func (p *PrometheusRegistry) DecHTTPRequestsInFlight() {
	p.httpRequestsInFlight.Dec()
}

// IncLinksCreated increments the links created counter
func (p *PrometheusRegistry) IncLinksCreated() {
	p.linksCreatedTotal.Inc()
}

// IncLinksDeduplicated counts create requests answered with an existing link
func (p *PrometheusRegistry) IncLinksDeduplicated() {
	p.linksDeduplicatedTotal.Inc()
}

// IncLinksDeleted increments the links deleted counter
func (p *PrometheusRegistry) IncLinksDeleted() {
	p.linksDeletedTotal.Inc()
}

// IncRedirects counts a redirect, labelled by whether the cache answered it
func (p *PrometheusRegistry) IncRedirects(cacheStatus string) {
	p.redirectsTotal.WithLabelValues(cacheStatus).Inc()
}

// IncCacheErrors counts a cache failure that was logged and tolerated
func (p *PrometheusRegistry) IncCacheErrors(operation string) {
	p.cacheErrorsTotal.WithLabelValues(operation).Inc()
}

// IncClicksRecorded counts the outcome of an asynchronous click update
func (p *PrometheusRegistry) IncClicksRecorded(status string) {
	p.clicksRecordedTotal.WithLabelValues(status).Inc()
}

// SetDependencyUp records the result of the last health probe of a dependency
func (p *PrometheusRegistry) SetDependencyUp(dependency string, up bool) {
	value := 0.0
	if up {
		value = 1
	}
	p.dependencyUp.WithLabelValues(dependency).Set(value)
}

// GetRegistry returns the underlying Prometheus registry
func (p *PrometheusRegistry) GetRegistry() *prometheus.Registry {
	return p.registry
}

// GetHandler returns an HTTP handler for the metrics endpoint
func (p *PrometheusRegistry) GetHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
