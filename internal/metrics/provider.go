// Package metrics provides the Prometheus-backed implementation of the
// public metrics.RegistryProvider interface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	klonmetrics "github.com/klon-labs/klon/pkg/klon/v1/metrics"
)

// PrometheusRegistryProvider hands the engine a private Prometheus registry
// so its collectors never collide with an application's default registry.
type PrometheusRegistryProvider struct {
	registry *prometheus.Registry
}

// NewPrometheusRegistryProvider creates a provider backed by a fresh registry.
func NewPrometheusRegistryProvider() *PrometheusRegistryProvider {
	return &PrometheusRegistryProvider{
		registry: prometheus.NewRegistry(),
	}
}

// Registry returns the underlying Prometheus registry.
func (p *PrometheusRegistryProvider) Registry() *prometheus.Registry {
	return p.registry
}

var _ klonmetrics.RegistryProvider = (*PrometheusRegistryProvider)(nil)
