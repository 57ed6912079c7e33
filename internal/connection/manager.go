package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/glimte/mmate-jms-go/contracts"
	"github.com/glimte/mmate-jms-go/mq"
)

// DefaultDynamicQueueTemplate is the model queue used for dynamic queues.
const DefaultDynamicQueueTemplate = "SYSTEM.DEFAULT.MODEL.QUEUE"

var ErrQueueNotOpen = errors.New("connection: queue is not open")

// State is the lifecycle state of a Manager
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Kind selects the cache an operation draws handles from
type Kind int

const (
	KindSend Kind = iota
	KindReceive
)

// Settings describes how to reach the queue manager.
type Settings struct {
	QueueManager         string
	Channel              string
	Host                 string
	Port                 int
	UseSharedConnections bool
	DynamicQueueTemplate string
	SSLCipherSpec        string
	SSLKeyRepository     string

	CacheOpenSendQueues    bool
	CacheOpenReceiveQueues bool
}

// ConnectionName returns the host(port) form of the listener address.
func (s Settings) ConnectionName() string {
	return fmt.Sprintf("%s(%d)", s.Host, s.Port)
}

// CacheStats counts the handles held by each cache
type CacheStats struct {
	Send    int
	Receive int
	Dynamic int
}

// Manager owns a single queue-manager connection and its handle caches.
type Manager struct {
	connector mq.Connector
	settings  Settings
	logger    *slog.Logger

	mu            sync.Mutex
	conn          mq.Conn
	state         atomic.Int32
	disconnecting atomic.Bool

	send    *QueueCache
	receive *QueueCache
	dynamic *QueueCache
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

var (
	regularOpenOptions = mq.OpenOptions{Options: mq.OpenInputShared | mq.OpenOutput}
	dynamicOpenOptions = mq.OpenOptions{Options: mq.OpenInputShared}
)

// NewManager creates a disconnected manager.
func NewManager(connector mq.Connector, settings Settings, options ...Option) *Manager {
	if settings.DynamicQueueTemplate == "" {
		settings.DynamicQueueTemplate = DefaultDynamicQueueTemplate
	}
	m := &Manager{
		connector: connector,
		settings:  settings,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(m)
	}
	m.send = NewQueueCache("send", regularOpenOptions, m.logger)
	m.receive = NewQueueCache("receive", regularOpenOptions, m.logger)
	m.dynamic = NewQueueCache("dynamic", dynamicOpenOptions, m.logger)
	return m
}

// Settings returns the connection settings
func (m *Manager) Settings() Settings {
	return m.settings
}

// ConnectOptions builds the client connection options.
func (m *Manager) ConnectOptions() mq.ConnectOptions {
	opts := mq.ConnectOptions{
		QueueManager:   m.settings.QueueManager,
		Channel:        m.settings.Channel,
		ConnectionName: m.settings.ConnectionName(),
		ChannelType:    mq.ChannelTypeClientConn,
		TransportType:  mq.TransportTCP,
		SSLCipherSpec:  m.settings.SSLCipherSpec,
		KeyRepository:  m.settings.SSLKeyRepository,
		Options:        mq.ConnectHandleShareNone,
	}
	if m.settings.UseSharedConnections {
		opts.Options = mq.ConnectHandleShareBlock
	}
	return opts
}

// ConnectionInfo describes the connection target.
func (m *Manager) ConnectionInfo() string {
	return fmt.Sprintf("queue manager=[%s], channel=[%s], conn_name=[%s]",
		m.settings.QueueManager, m.settings.Channel, m.settings.ConnectionName())
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	return State(m.state.Load())
}

// IsConnected reports whether a connection is established
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// IsDisconnecting reports whether Destroy is in progress
func (m *Manager) IsDisconnecting() bool {
	return m.disconnecting.Load()
}

// Connect establishes the connection. It is a no-op when already connected.
func (m *Manager) Connect(ctx context.Context) error {
	_, err := m.connection(ctx)
	return err
}

func (m *Manager) connection(ctx context.Context) (mq.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return m.conn, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := m.ConnectOptions()
	m.state.Store(int32(StateConnecting))
	m.logger.Info("connecting to queue manager",
		"queueManager", opts.QueueManager,
		"channel", opts.Channel,
		"connName", opts.ConnectionName,
		"tls", opts.TLSEnabled())

	conn, err := m.connector.Connect(ctx, opts)
	if err != nil {
		m.state.Store(int32(StateDisconnected))
		m.logger.Error("could not connect to queue manager", "queueManager", opts.QueueManager, "error", err)
		return nil, err
	}

	m.conn = conn
	m.state.Store(int32(StateConnected))
	m.logger.Info("connected to queue manager",
		"queueManager", opts.QueueManager,
		"channel", opts.Channel,
		"connName", opts.ConnectionName)
	return conn, nil
}

// Lease is a handle borrowed for a single operation.
type Lease struct {
	Handle *QueueHandle
	cached bool
	conn   mq.Conn
}

// Conn returns the connection the handle was opened on
func (l *Lease) Conn() mq.Conn {
	return l.conn
}

// Cached reports whether the handle stays open after Release
func (l *Lease) Cached() bool {
	return l.cached
}

// Release returns the handle, closing it when it is not cached.
func (l *Lease) Release() error {
	if l.cached {
		return nil
	}
	return l.Handle.Close()
}

// Acquire resolves a handle for name, connecting first if needed. Receives
// on a dynamic queue created by this manager use its dynamic handle.
func (m *Manager) Acquire(ctx context.Context, kind Kind, name string) (*Lease, error) {
	if m.IsDisconnecting() {
		return nil, contracts.ErrDisconnecting
	}
	conn, err := m.connection(ctx)
	if err != nil {
		return nil, err
	}

	var (
		cache   *QueueCache
		caching bool
	)
	switch kind {
	case KindSend:
		cache, caching = m.send, m.settings.CacheOpenSendQueues
	case KindReceive:
		if h, ok := m.dynamic.Get(name); ok {
			return &Lease{Handle: h, cached: true, conn: conn}, nil
		}
		cache, caching = m.receive, m.settings.CacheOpenReceiveQueues
	default:
		return nil, fmt.Errorf("connection: unknown handle kind %d", kind)
	}

	if caching {
		h, err := cache.GetOrOpen(ctx, conn, name)
		if err != nil {
			m.Invalidate(conn, err)
			return nil, err
		}
		return &Lease{Handle: h, cached: true, conn: conn}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := conn.Open(name, regularOpenOptions)
	if err != nil {
		m.Invalidate(conn, err)
		return nil, err
	}
	return &Lease{Handle: newQueueHandle(q), conn: conn}, nil
}

// OpenDynamicQueue creates a dynamic queue from the model template and
// returns its generated name.
func (m *Manager) OpenDynamicQueue(ctx context.Context) (string, error) {
	if m.IsDisconnecting() {
		return "", contracts.ErrDisconnecting
	}
	conn, err := m.connection(ctx)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	q, err := conn.Open(m.settings.DynamicQueueTemplate, dynamicOpenOptions)
	if err != nil {
		m.Invalidate(conn, err)
		return "", err
	}
	h := newQueueHandle(q)
	m.dynamic.Add(h)

	m.logger.Debug("dynamic queue created", "queue", h.Name(), "template", m.settings.DynamicQueueTemplate)
	return h.Name(), nil
}

// CloseDynamicQueue closes a queue created by OpenDynamicQueue and drops it
// from every cache. It does nothing while disconnecting or disconnected.
func (m *Manager) CloseDynamicQueue(name string) error {
	if m.IsDisconnecting() || !m.IsConnected() {
		return nil
	}
	if _, ok := m.dynamic.Get(name); !ok {
		return fmt.Errorf("%w: %s", ErrQueueNotOpen, name)
	}
	return m.CloseQueue(name)
}

// CloseQueue removes name from all three caches and closes each distinct
// handle once. Absent names are ignored.
func (m *Manager) CloseQueue(name string) error {
	var errs []error
	seen := make(map[*QueueHandle]struct{}, 3)
	for _, cache := range m.caches() {
		h := cache.Remove(name)
		if h == nil {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		if err := h.Close(); err != nil {
			errs = append(errs, err)
			continue
		}
		m.logger.Debug("queue closed", "cache", cache.Kind(), "queue", name)
	}
	return errors.Join(errs...)
}

// Destroy closes every cached handle and disconnects. Failures are logged,
// never returned. Calling Destroy on a disconnected manager does nothing.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		m.logger.Debug("not connected, skipping resource cleanup")
		return
	}

	m.disconnecting.Store(true)
	m.state.Store(int32(StateDisconnecting))
	defer func() {
		m.conn = nil
		m.state.Store(int32(StateDisconnected))
		m.disconnecting.Store(false)
	}()

	m.logger.Info("closing cached queues")
	seen := make(map[*QueueHandle]struct{})
	for _, cache := range m.caches() {
		for _, h := range cache.Clear() {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			if err := h.Close(); err != nil {
				m.logger.Error("could not close queue", "cache", cache.Kind(), "queue", h.Name(), "error", err)
			}
		}
	}

	m.logger.Info("disconnecting from queue manager", "queueManager", m.settings.QueueManager)
	if err := m.conn.Disconnect(); err != nil {
		m.logger.Error("could not disconnect from queue manager", "queueManager", m.settings.QueueManager, "error", err)
		return
	}
	m.logger.Info("disconnected from queue manager", "queueManager", m.settings.QueueManager)
}

// ConnectionLost reports whether err says the connection itself is no
// longer usable.
func ConnectionLost(err error) bool {
	reason, ok := mq.ReasonOf(err)
	if !ok {
		return false
	}
	switch reason {
	case mq.RCConnectionBroken, mq.RCConnHandleError, mq.RCQueueManagerQuiesce, mq.RCQueueManagerStopping:
		return true
	}
	return false
}

// Invalidate drops conn when err reports it lost. Cached handles are
// abandoned and the next operation reconnects. It reports whether conn was
// dropped; a connection that has already been replaced is left alone.
func (m *Manager) Invalidate(conn mq.Conn, err error) bool {
	if conn == nil || !ConnectionLost(err) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != conn {
		return false
	}

	m.logger.Warn("connection to queue manager lost",
		"queueManager", m.settings.QueueManager,
		"reason", lostReason(err),
		"error", err)

	seen := make(map[*QueueHandle]struct{})
	for _, cache := range m.caches() {
		for _, h := range cache.Clear() {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			if cerr := h.Close(); cerr != nil {
				m.logger.Debug("could not close queue on lost connection", "queue", h.Name(), "error", cerr)
			}
		}
	}
	if derr := conn.Disconnect(); derr != nil {
		m.logger.Debug("could not disconnect lost connection", "error", derr)
	}

	m.conn = nil
	m.state.Store(int32(StateDisconnected))
	return true
}

func lostReason(err error) string {
	reason, _ := mq.ReasonOf(err)
	return mq.ReasonText(reason)
}

// CacheStats returns the number of handles in each cache
func (m *Manager) CacheStats() CacheStats {
	return CacheStats{
		Send:    m.send.Len(),
		Receive: m.receive.Len(),
		Dynamic: m.dynamic.Len(),
	}
}

// Caches returns the send, receive and dynamic caches
func (m *Manager) Caches() (send, receive, dynamic *QueueCache) {
	return m.send, m.receive, m.dynamic
}

func (m *Manager) caches() []*QueueCache {
	return []*QueueCache{m.send, m.receive, m.dynamic}
}
