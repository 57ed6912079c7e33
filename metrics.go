package jms

import "time"

// Operation names reported to a MetricsCollector
const (
	OpSend         = "send"
	OpReceive      = "receive"
	OpOpenDynamic  = "open_dynamic_queue"
	OpCloseDynamic = "close_dynamic_queue"
)

// MetricsCollector receives per-operation measurements. Implementations
// live in the monitor package.
type MetricsCollector interface {
	IncrementMessageCount(operation string)
	RecordProcessingTime(operation string, duration time.Duration)
	IncrementErrorCount(operation string, errorType string)
}

type noopMetrics struct{}

func (noopMetrics) IncrementMessageCount(string)                    {}
func (noopMetrics) RecordProcessingTime(string, time.Duration)      {}
func (noopMetrics) IncrementErrorCount(operation, errorType string) {}
