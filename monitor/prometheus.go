package monitor

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector exports bridge operation metrics. It satisfies
// jms.MetricsCollector.
type PrometheusCollector struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewPrometheusCollector registers the bridge metrics with reg under
// namespace. Registering twice with the same registry returns the already
// registered metrics.
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jms",
			Name:      "operations_total",
			Help:      "Successful bridge operations.",
		}, []string{"operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jms",
			Name:      "errors_total",
			Help:      "Failed bridge operations by error type.",
		}, []string{"operation", "error_type"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jms",
			Name:      "operation_duration_seconds",
			Help:      "Bridge operation latency, including receive waits.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"operation"}),
	}

	var err error
	if c.operations, err = register(reg, c.operations); err != nil {
		return nil, err
	}
	if c.errors, err = register(reg, c.errors); err != nil {
		return nil, err
	}
	if c.latency, err = register(reg, c.latency); err != nil {
		return nil, err
	}
	return c, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (c *PrometheusCollector) IncrementMessageCount(op string) {
	c.operations.WithLabelValues(op).Inc()
}

func (c *PrometheusCollector) RecordProcessingTime(op string, d time.Duration) {
	c.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (c *PrometheusCollector) IncrementErrorCount(op, errorType string) {
	c.errors.WithLabelValues(op, errorType).Inc()
}

// Handler serves the metrics gathered by g in the text exposition format
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
