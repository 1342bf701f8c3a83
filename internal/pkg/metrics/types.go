package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry defines the interface for metrics collection
type Registry interface {
	// HTTP Metrics
	RecordHTTPRequest(method, path, statusCode string, duration float64)
	IncHTTPRequestsInFlight()
	DecHTTPRequestsInFlight()

	// Business Metrics
	IncLinksCreated()
	IncLinksDeduplicated()
	IncLinksDeleted()
	IncRedirects(cacheStatus string)
	IncCacheErrors(operation string)
	IncClicksRecorded(status string)
	SetDependencyUp(dependency string, up bool)

	// Prometheus-specific methods
	GetRegistry() *prometheus.Registry
	GetHandler() http.Handler
}

// NoOpRegistry provides a no-op implementation for when metrics are disabled
type NoOpRegistry struct{}

func NewNoOpRegistry() Registry {
	return &NoOpRegistry{}
}

func (n *NoOpRegistry) RecordHTTPRequest(method, path, statusCode string, duration float64) {}
func (n *NoOpRegistry) IncHTTPRequestsInFlight()                                            {}
func (n *NoOpRegistry) DecHTTPRequestsInFlight()                                            {}
func (n *NoOpRegistry) IncLinksCreated()                                                    {}
func (n *NoOpRegistry) IncLinksDeduplicated()                                               {}
func (n *NoOpRegistry) IncLinksDeleted()                                                    {}
func (n *NoOpRegistry) IncRedirects(cacheStatus string)                                     {}
func (n *NoOpRegistry) IncCacheErrors(operation string)                                     {}
func (n *NoOpRegistry) IncClicksRecorded(status string)                                     {}
func (n *NoOpRegistry) SetDependencyUp(dependency string, up bool)                          {}
func (n *NoOpRegistry) GetRegistry() *prometheus.Registry                                   { return nil }
func (n *NoOpRegistry) GetHandler() http.Handler                                            { return nil }

// Common label names as constants
const (
	LabelMethod      = "method"
	LabelPath        = "path"
	LabelStatusCode  = "status_code"
	LabelOperation   = "operation"
	LabelStatus      = "status"
	LabelCacheStatus = "cache_status"
	LabelDependency  = "dependency"
)

// Label values shared by callers
const (
	CacheHit  = "hit"
	CacheMiss = "miss"

	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusNotFound = "not_found"
	StatusDropped  = "dropped"

	DependencyDatabase = "database"
	DependencyCache    = "cache"
)
