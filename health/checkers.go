package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jms "github.com/glimte/mmate-jms-go"
)

// Factory is the part of a connection factory the checkers inspect.
type Factory interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	IsDisconnecting() bool
	State() jms.State
	ConnectionInfo() string
	CacheStats() jms.CacheStats
}

// FactoryChecker checks that a factory is, or can get, connected.
type FactoryChecker struct {
	name    string
	factory Factory
	probe   bool
	logger  *slog.Logger
}

// NewFactoryChecker creates a checker named "jms". With probe set, a
// disconnected factory is asked to connect.
func NewFactoryChecker(factory Factory, probe bool, logger *slog.Logger) *FactoryChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &FactoryChecker{name: "jms", factory: factory, probe: probe, logger: logger}
}

func (c *FactoryChecker) Name() string {
	return c.name
}

func (c *FactoryChecker) Check(ctx context.Context) (result CheckResult) {
	start := time.Now()
	result = CheckResult{
		Name:      c.name,
		Timestamp: start,
		Details: map[string]interface{}{
			"connection": c.factory.ConnectionInfo(),
		},
	}
	defer func() {
		result.Details["state"] = c.factory.State().String()
		result.Duration = time.Since(start)
	}()

	switch {
	case c.factory.IsDisconnecting():
		result.Status = StatusDegraded
		result.Message = "Connection factory is disconnecting"
	case c.factory.IsConnected():
		result.Status = StatusHealthy
		result.Message = "Connected"
	case !c.probe:
		result.Status = StatusDegraded
		result.Message = "Not connected"
	default:
		if err := c.factory.Connect(ctx); err != nil {
			c.logger.Warn("health probe could not connect", "connection", c.factory.ConnectionInfo(), "error", err)
			result.Status = StatusUnhealthy
			result.Message = "Failed to connect"
			result.Error = err.Error()
			return result
		}
		result.Status = StatusHealthy
		result.Message = "Connected"
	}
	return result
}

// QueueCacheChecker reports the cached handle counts and degrades when
// more handles are open than expected.
type QueueCacheChecker struct {
	factory    Factory
	maxOpen    int
	maxDynamic int
}

// NewQueueCacheChecker creates a checker named "jms.queue_cache". Zero
// limits disable the corresponding threshold.
func NewQueueCacheChecker(factory Factory, maxOpen, maxDynamic int) *QueueCacheChecker {
	return &QueueCacheChecker{factory: factory, maxOpen: maxOpen, maxDynamic: maxDynamic}
}

func (c *QueueCacheChecker) Name() string {
	return "jms.queue_cache"
}

func (c *QueueCacheChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	stats := c.factory.CacheStats()
	result := CheckResult{
		Name:      c.Name(),
		Status:    StatusHealthy,
		Message:   "Queue handle caches within limits",
		Timestamp: start,
		Details: map[string]interface{}{
			"send":    stats.Send,
			"receive": stats.Receive,
			"dynamic": stats.Dynamic,
		},
	}

	if open := stats.Send + stats.Receive; c.maxOpen > 0 && open > c.maxOpen {
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("%d cached queue handles exceed limit %d", open, c.maxOpen)
	}
	if c.maxDynamic > 0 && stats.Dynamic > c.maxDynamic {
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("%d dynamic queues exceed limit %d", stats.Dynamic, c.maxDynamic)
	}

	result.Duration = time.Since(start)
	return result
}
