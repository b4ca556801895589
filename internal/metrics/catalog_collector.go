package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/movie-catalog/catalog"
	"github.com/AntonStoeckl/movie-catalog/catalog/sqlengine"
)

var (
	operationLabels = []string{sqlengine.LabelOperation, sqlengine.LabelStatus}
	errorLabels     = []string{sqlengine.LabelOperation, sqlengine.LabelStatus, sqlengine.LabelErrorType}
)

// CatalogCollector records the query engine's metrics in Prometheus.
// Metric names not known to the collector are ignored.
type CatalogCollector struct {
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	labelNames map[string][]string
}

// NewCatalogCollector creates the engine metrics and registers them with the registerer.
func NewCatalogCollector(reg prometheus.Registerer) (*CatalogCollector, error) {
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      sqlengine.MetricQueryDuration,
			Help:      "Catalog database query duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		operationLabels,
	)

	rowsReturned := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      sqlengine.MetricRowsReturned,
			Help:      "Number of rows returned per catalog query",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		operationLabels,
	)

	databaseErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      sqlengine.MetricDatabaseErrors,
			Help:      "Total number of failed catalog database operations",
		},
		errorLabels,
	)

	filterRefreshes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      sqlengine.MetricFilterRefreshes,
			Help:      "Total number of filter whitelist refreshes",
		},
		operationLabels,
	)

	for _, c := range []prometheus.Collector{queryDuration, rowsReturned, databaseErrors, filterRefreshes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return &CatalogCollector{
		histograms: map[string]*prometheus.HistogramVec{
			sqlengine.MetricQueryDuration: queryDuration,
			sqlengine.MetricRowsReturned:  rowsReturned,
		},
		counters: map[string]*prometheus.CounterVec{
			sqlengine.MetricDatabaseErrors:  databaseErrors,
			sqlengine.MetricFilterRefreshes: filterRefreshes,
		},
		labelNames: map[string][]string{
			sqlengine.MetricQueryDuration:   operationLabels,
			sqlengine.MetricRowsReturned:    operationLabels,
			sqlengine.MetricDatabaseErrors:  errorLabels,
			sqlengine.MetricFilterRefreshes: operationLabels,
		},
	}, nil
}

func (c *CatalogCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	c.observe(metric, duration.Seconds(), labels)
}

func (c *CatalogCollector) IncrementCounter(metric string, labels map[string]string) {
	if counter, ok := c.counters[metric]; ok {
		counter.WithLabelValues(c.labelValues(metric, labels)...).Inc()
	}
}

func (c *CatalogCollector) RecordValue(metric string, value float64, labels map[string]string) {
	c.observe(metric, value, labels)
}

func (c *CatalogCollector) observe(metric string, value float64, labels map[string]string) {
	if histogram, ok := c.histograms[metric]; ok {
		histogram.WithLabelValues(c.labelValues(metric, labels)...).Observe(value)
	}
}

// labelValues orders the label values like the metric's label names, missing labels become "".
func (c *CatalogCollector) labelValues(metric string, labels map[string]string) []string {
	names := c.labelNames[metric]
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = labels[name]
	}
	return values
}

var _ catalog.MetricsCollector = (*CatalogCollector)(nil)
