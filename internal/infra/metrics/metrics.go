// Package metrics exposes Prometheus collectors for the LNbits client, the
// HTTP API and the feed, transfer and allowance services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisprometheus/v9"
	"github.com/redis/go-redis/v9"
)

const namespace = "zapfeed"

// Metrics owns a registry and the collectors registered on it
type Metrics struct {
	reg *prometheus.Registry

	httpClient *HTTPClientMetrics
	httpServer *HTTPServerMetrics
	service    *ServiceMetrics
}

// New creates a private registry with Go runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		reg:        reg,
		httpClient: newHTTPClientMetrics(reg),
		httpServer: newHTTPServerMetrics(reg),
		service:    newServiceMetrics(reg),
	}
}

// RegisterRedis adds the connection pool stats of client
func (m *Metrics) RegisterRedis(client *redis.Client) error {
	return m.reg.Register(redisprometheus.NewCollector(namespace, "redis", client))
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registerer returns the underlying registry
func (m *Metrics) Registerer() prometheus.Registerer {
	return m.reg
}

func (m *Metrics) HTTPClient() *HTTPClientMetrics {
	return m.httpClient
}

func (m *Metrics) HTTPServer() *HTTPServerMetrics {
	return m.httpServer
}

func (m *Metrics) Service() *ServiceMetrics {
	return m.service
}
