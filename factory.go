package jms

import (
	"context"
	"log/slog"
	"time"

	"github.com/glimte/mmate-jms-go/contracts"
	"github.com/glimte/mmate-jms-go/internal/connection"
	"github.com/glimte/mmate-jms-go/internal/mapper"
	"github.com/glimte/mmate-jms-go/internal/mqrfh2"
	"github.com/glimte/mmate-jms-go/mq"
)

// State is the connection lifecycle state of a factory
type State = connection.State

const (
	StateDisconnected  = connection.StateDisconnected
	StateConnecting    = connection.StateConnecting
	StateConnected     = connection.StateConnected
	StateDisconnecting = connection.StateDisconnecting
)

// CacheStats counts the open handles held by a factory
type CacheStats = connection.CacheStats

// ConnectionFactory sends and receives JMS text messages through a single
// queue-manager connection. It is safe for concurrent use.
type ConnectionFactory struct {
	manager *connection.Manager
	mapper  *mapper.Mapper
	logger  *slog.Logger
	metrics MetricsCollector
	clock   func() time.Time
}

// NewConnectionFactory creates a factory. No connection is made until the
// first operation.
func NewConnectionFactory(connector mq.Connector, options ...FactoryOption) (*ConnectionFactory, error) {
	if connector == nil {
		return nil, &contracts.ConfigurationError{Field: "connector", Reason: "must not be nil"}
	}

	cfg := defaultFactoryConfig()
	for _, opt := range options {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		cfg.logger.Error("invalid connection factory configuration", "error", err)
		return nil, err
	}

	codec := mqrfh2.NewCodec(mqrfh2.WithMCD(cfg.needsMCD), mqrfh2.WithLogger(cfg.logger))
	return &ConnectionFactory{
		manager: connection.NewManager(connector, cfg.settings(), connection.WithLogger(cfg.logger)),
		mapper:  mapper.New(mapper.WithCodec(codec), mapper.WithLogger(cfg.logger)),
		logger:  cfg.logger,
		metrics: cfg.metrics,
		clock:   cfg.clock,
	}, nil
}

// Connect connects eagerly. Every other operation connects on demand.
func (f *ConnectionFactory) Connect(ctx context.Context) error {
	return mapError("connect", "", f.manager.Connect(ctx))
}

// Send puts msg on destination. On success the transport-assigned fields
// (message id, correlation id, priority, timestamp, absolute expiration,
// JMSXUserID, JMSXAppID, put date and time) are written back onto msg.
func (f *ConnectionFactory) Send(ctx context.Context, msg *contracts.TextMessage, destination string) error {
	start := time.Now()
	err := f.send(ctx, msg, destination)
	f.observe(OpSend, start, err)
	return err
}

func (f *ConnectionFactory) send(ctx context.Context, msg *contracts.TextMessage, destination string) error {
	if f.manager.IsDisconnecting() {
		f.logger.Info("connection factory disconnecting, aborting send", "destination", destination)
		return contracts.ErrDisconnecting
	}

	queue := mapper.NormalizeDestination(destination)
	now := f.clock()

	md, body, err := f.mapper.ToWire(msg, queue, now)
	if err != nil {
		f.logger.Error("could not map message", "destination", queue, "error", err)
		return mapError(OpSend, queue, err)
	}

	lease, err := f.manager.Acquire(ctx, connection.KindSend, queue)
	if err != nil {
		return mapError(OpSend, queue, err)
	}

	putErr := lease.Handle.Put(body, md)
	if err := lease.Release(); err != nil {
		f.logger.Warn("could not close queue", "queue", queue, "error", err)
	}
	if putErr != nil {
		f.manager.Invalidate(lease.Conn(), putErr)
		f.logger.Error("put failed", "queue", queue, "error", putErr)
		return mapError(OpSend, queue, putErr)
	}

	f.mapper.ApplyPutResult(msg, md, now)
	f.logger.Debug("message sent",
		"destination", queue,
		"messageId", msg.MessageID,
		"connection", f.manager.ConnectionInfo())
	return nil
}

// Receive gets the next message from destination, waiting up to wait. A
// negative wait blocks until a message arrives. An empty queue yields a
// *contracts.NoMessageAvailableError.
func (f *ConnectionFactory) Receive(ctx context.Context, destination string, wait time.Duration) (*contracts.TextMessage, error) {
	start := time.Now()
	msg, err := f.receive(ctx, destination, wait)
	f.observe(OpReceive, start, err)
	return msg, err
}

func (f *ConnectionFactory) receive(ctx context.Context, destination string, wait time.Duration) (*contracts.TextMessage, error) {
	if f.manager.IsDisconnecting() {
		f.logger.Info("connection factory disconnecting, aborting receive", "destination", destination)
		return nil, contracts.ErrDisconnecting
	}

	queue := mapper.NormalizeDestination(destination)
	lease, err := f.manager.Acquire(ctx, connection.KindReceive, queue)
	if err != nil {
		return nil, mapError(OpReceive, queue, err)
	}

	md := mq.NewDescriptor()
	body, getErr := lease.Handle.Get(md, mq.GetOptions{
		Options:      mq.GetWait | mq.GetFailIfQuiescing,
		WaitInterval: wait,
	})
	if err := lease.Release(); err != nil {
		f.logger.Warn("could not close queue", "queue", queue, "error", err)
	}
	if getErr != nil {
		f.manager.Invalidate(lease.Conn(), getErr)
		return nil, mapReceiveError(queue, wait, getErr)
	}

	msg, err := f.mapper.FromWire(md, body)
	if err != nil {
		f.logger.Error("could not map received message", "queue", queue, "error", err)
		return nil, mapError(OpReceive, queue, err)
	}
	return msg, nil
}

// OpenDynamicQueue creates a dynamic queue from the configured model queue
// and returns its name. The queue stays open until CloseDynamicQueue,
// CloseQueue or Destroy.
func (f *ConnectionFactory) OpenDynamicQueue(ctx context.Context) (string, error) {
	start := time.Now()
	name, err := f.manager.OpenDynamicQueue(ctx)
	if err != nil {
		err = mapError(OpOpenDynamic, f.manager.Settings().DynamicQueueTemplate, err)
	}
	f.observe(OpOpenDynamic, start, err)
	return name, err
}

// CloseDynamicQueue closes a queue returned by OpenDynamicQueue. It does
// nothing while the factory is disconnecting or not connected.
func (f *ConnectionFactory) CloseDynamicQueue(ctx context.Context, name string) error {
	if f.manager.IsDisconnecting() {
		f.logger.Info("connection factory disconnecting, aborting close of dynamic queue", "queue", name)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := mapError(OpCloseDynamic, name, f.manager.CloseDynamicQueue(name))
	f.observe(OpCloseDynamic, start, err)
	return err
}

// CloseQueue closes and forgets every cached handle for destination. It is
// safe to call for destinations that are not open.
func (f *ConnectionFactory) CloseQueue(destination string) error {
	queue := mapper.NormalizeDestination(destination)
	return mapError("close", queue, f.manager.CloseQueue(queue))
}

// Destroy closes every cached handle and disconnects. Failures are logged.
// It is safe to call more than once.
func (f *ConnectionFactory) Destroy() {
	f.manager.Destroy()
}

// ConnectionInfo describes the connection target.
func (f *ConnectionFactory) ConnectionInfo() string {
	return f.manager.ConnectionInfo()
}

// IsConnected reports whether a connection is established
func (f *ConnectionFactory) IsConnected() bool {
	return f.manager.IsConnected()
}

// IsDisconnecting reports whether Destroy is in progress
func (f *ConnectionFactory) IsDisconnecting() bool {
	return f.manager.IsDisconnecting()
}

// State returns the connection state
func (f *ConnectionFactory) State() State {
	return f.manager.State()
}

// CacheStats returns the number of cached handles
func (f *ConnectionFactory) CacheStats() CacheStats {
	return f.manager.CacheStats()
}

// NeedsMCD reports whether the mcd folder is written
func (f *ConnectionFactory) NeedsMCD() bool {
	return f.mapper.Codec().NeedsMCD()
}

func (f *ConnectionFactory) observe(op string, start time.Time, err error) {
	f.metrics.RecordProcessingTime(op, time.Since(start))
	if err != nil {
		f.metrics.IncrementErrorCount(op, errorType(err))
		return
	}
	f.metrics.IncrementMessageCount(op)
}
