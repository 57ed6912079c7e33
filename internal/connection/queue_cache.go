package connection

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glimte/mmate-jms-go/mq"
	"github.com/google/uuid"
)

// QueueHandle wraps an opened queue with cache metadata
type QueueHandle struct {
	mq.Queue
	id       string
	openedAt time.Time
	closed   atomic.Bool
}

func newQueueHandle(q mq.Queue) *QueueHandle {
	return &QueueHandle{
		Queue:    q,
		id:       uuid.New().String(),
		openedAt: time.Now(),
	}
}

// ID returns the handle identifier
func (h *QueueHandle) ID() string {
	return h.id
}

// OpenedAt returns when the handle was opened
func (h *QueueHandle) OpenedAt() time.Time {
	return h.openedAt
}

// Closed reports whether Close has been called
func (h *QueueHandle) Closed() bool {
	return h.closed.Load()
}

// Close closes the underlying queue once. Later calls return nil.
func (h *QueueHandle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.Queue.Close()
}

// QueueCache maps destination names to open handles. A single mutex covers
// lookup and open, so concurrent callers for the same name share one handle.
type QueueCache struct {
	kind    string
	options mq.OpenOptions
	logger  *slog.Logger

	mu      sync.Mutex
	handles map[string]*QueueHandle
}

// NewQueueCache creates an empty cache. kind names the cache in logs.
func NewQueueCache(kind string, options mq.OpenOptions, logger *slog.Logger) *QueueCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueCache{
		kind:    kind,
		options: options,
		logger:  logger,
		handles: make(map[string]*QueueHandle),
	}
}

// Kind returns the cache name
func (c *QueueCache) Kind() string {
	return c.kind
}

// GetOrOpen returns the cached handle for name, opening and caching it
// through conn when absent.
func (c *QueueCache) GetOrOpen(ctx context.Context, conn mq.Conn, name string) (*QueueHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.handles[name]; ok {
		return h, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, err := conn.Open(name, c.options)
	if err != nil {
		return nil, err
	}
	h := newQueueHandle(q)
	c.handles[name] = h

	c.logger.Debug("queue added to cache", "cache", c.kind, "queue", name, "handle", h.id)
	return h, nil
}

// Get returns the cached handle for name
func (c *QueueCache) Get(name string) (*QueueHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handles[name]
	return h, ok
}

// Add caches h under its resolved queue name
func (c *QueueCache) Add(h *QueueHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles[h.Name()] = h
}

// Remove drops name from the cache and returns its handle without closing it
func (c *QueueCache) Remove(name string) *QueueHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handles[name]
	if !ok {
		return nil
	}
	delete(c.handles, name)
	return h
}

// Clear empties the cache and returns the removed handles
func (c *QueueCache) Clear() []*QueueHandle {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := make([]*QueueHandle, 0, len(c.handles))
	for _, h := range c.handles {
		removed = append(removed, h)
	}
	c.handles = make(map[string]*QueueHandle)
	return removed
}

// Len returns the number of cached handles
func (c *QueueCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

// Names returns the cached queue names in sorted order
func (c *QueueCache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.handles))
	for name := range c.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
