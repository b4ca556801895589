package oteladapters

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/AntonStoeckl/movie-catalog/catalog"
)

// MetricsCollector implements catalog.MetricsCollector with OpenTelemetry instruments:
//   - RecordDuration -> Float64Histogram in seconds
//   - IncrementCounter -> Int64Counter
//   - RecordValue -> Float64Histogram, the engine reports row counts per query
//
// Instruments are created on first use and cached. It is safe for concurrent use.
type MetricsCollector struct {
	meter     metric.Meter
	mu        sync.Mutex
	durations map[string]metric.Float64Histogram
	counters  map[string]metric.Int64Counter
	values    map[string]metric.Float64Histogram
}

// NewMetricsCollector creates a metrics collector. The meter should come from your MeterProvider.
func NewMetricsCollector(meter metric.Meter) *MetricsCollector {
	return &MetricsCollector{
		meter:     meter,
		durations: make(map[string]metric.Float64Histogram),
		counters:  make(map[string]metric.Int64Counter),
		values:    make(map[string]metric.Float64Histogram),
	}
}

func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	histogram := m.durationHistogram(metricName)
	if histogram == nil {
		return
	}

	histogram.Record(context.Background(), duration.Seconds(), metric.WithAttributes(toAttributes(labels)...))
}

func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	counter := m.counter(metricName)
	if counter == nil {
		return
	}

	counter.Add(context.Background(), 1, metric.WithAttributes(toAttributes(labels)...))
}

func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	histogram := m.valueHistogram(metricName)
	if histogram == nil {
		return
	}

	histogram.Record(context.Background(), value, metric.WithAttributes(toAttributes(labels)...))
}

// durationHistogram returns nil if the instrument cannot be created, the measurement is then dropped.
func (m *MetricsCollector) durationHistogram(name string) metric.Float64Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, exists := m.durations[name]; exists {
		return histogram
	}

	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription("Catalog operation duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil
	}

	m.durations[name] = histogram
	return histogram
}

func (m *MetricsCollector) counter(name string) metric.Int64Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, exists := m.counters[name]; exists {
		return counter
	}

	counter, err := m.meter.Int64Counter(name, metric.WithDescription("Catalog operation counter"))
	if err != nil {
		return nil
	}

	m.counters[name] = counter
	return counter
}

func (m *MetricsCollector) valueHistogram(name string) metric.Float64Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, exists := m.values[name]; exists {
		return histogram
	}

	histogram, err := m.meter.Float64Histogram(name, metric.WithDescription("Catalog operation value"))
	if err != nil {
		return nil
	}

	m.values[name] = histogram
	return histogram
}

var _ catalog.MetricsCollector = (*MetricsCollector)(nil)
