// Package monitor provides metrics collectors for the JMS bridge: an
// in-memory SimpleMetricsCollector for tests and tooling, and a
// PrometheusCollector for production export.
package monitor
