// Package observability provides a centralized provider for the logging and
// metrics components used throughout the dataset acquisition framework.
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"datasetfetch/observability/logger"
	"datasetfetch/observability/metrics"
	"datasetfetch/observability/types"
)

// Logger is a type alias for the Logger interface from the types package.
type Logger = types.Logger

// Metrics is a type alias for the Metrics interface from the types package.
type Metrics = types.Metrics

// Fields is a type alias for structured logging fields.
type Fields = types.Fields

// Config is a type alias for the observability configuration.
type Config = types.Config

// Provider is a type alias for the Provider interface from the types package.
type Provider = types.Provider

// DefaultProvider implements the Provider interface. It manages Logger and
// Metrics instances per component, created lazily and cached so each
// component gets the same instance across calls.
type DefaultProvider struct {
	config   *Config
	registry prometheus.Registerer
	loggers  map[string]Logger
	metrics  map[string]Metrics
	mu       sync.RWMutex
}

// NewProvider creates an observability provider with the given configuration.
// If LogOutput is not set it defaults to os.Stdout. Metrics collectors are
// registered with the default Prometheus registry.
func NewProvider(config *Config) Provider {
	if config.LogOutput == nil {
		config.LogOutput = os.Stdout
	}

	return &DefaultProvider{
		config:   config,
		registry: prometheus.DefaultRegisterer,
		loggers:  make(map[string]Logger),
		metrics:  make(map[string]Metrics),
	}
}

// Logger returns the Logger for the given component, creating it on first
// access with a "component" field and a scoped service name.
func (p *DefaultProvider) Logger(component string) Logger {
	p.mu.RLock()
	if l, exists := p.loggers[component]; exists {
		p.mu.RUnlock()
		return l
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if l, exists := p.loggers[component]; exists {
		return l
	}

	fields := Fields{"component": component}
	for k, v := range p.config.AdditionalFields {
		fields[k] = v
	}

	l := logger.New(
		fmt.Sprintf("%s.%s", p.config.ServiceName, component),
		p.config.Environment,
		p.config.LogLevel,
		p.config.LogOutput,
		fields,
	)
	p.loggers[component] = l
	return l
}

// Metrics returns the Metrics collector for the given component, creating and
// registering it on first access. A failed registration (e.g. duplicate
// collector in tests) falls back to a no-op collector rather than panicking.
func (p *DefaultProvider) Metrics(component string) Metrics {
	p.mu.RLock()
	if m, exists := p.metrics[component]; exists {
		p.mu.RUnlock()
		return m
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if m, exists := p.metrics[component]; exists {
		return m
	}

	name := sanitizeMetricName(fmt.Sprintf("%s_%s", p.config.ServiceName, component))
	m, err := metrics.New(name, p.registry)
	if err != nil {
		p.metrics[component] = NewNopMetrics()
		return p.metrics[component]
	}
	p.metrics[component] = m
	return m
}

// Close releases provider resources. The JSON logger writes synchronously so
// there is nothing to flush.
func (p *DefaultProvider) Close() error {
	return nil
}

// sanitizeMetricName converts a service/component identifier to a valid
// Prometheus metric name prefix.
func sanitizeMetricName(name string) string {
	replacer := strings.NewReplacer(".", "_", "-", "_", "/", "_", " ", "_")
	return strings.ToLower(replacer.Replace(name))
}
