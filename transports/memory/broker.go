// Package memory provides an in-process queue manager implementing the mq
// transport interfaces. It is used by tests and by the CLI demo mode.
package memory

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/glimte/mmate-jms-go/mq"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map"
)

const (
	defaultUserID   = "mqm"
	defaultApplName = "mmate-jms"
	queueHint       = 64
)

// Broker is an in-memory queue manager.
type Broker struct {
	name     string
	userID   string
	applName string
	now      func() time.Time
	logger   *slog.Logger

	queues cmap.ConcurrentMap
	seq    atomic.Uint64

	connects    atomic.Int64
	disconnects atomic.Int64
	opens       atomic.Int64
	closes      atomic.Int64

	connectErr atomic.Value // error
}

// Option configures a Broker
type Option func(*Broker)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		b.logger = logger
	}
}

// WithUserID sets the user identifier stamped on every put
func WithUserID(userID string) Option {
	return func(b *Broker) {
		b.userID = userID
	}
}

// WithApplName sets the put application name stamped on every put
func WithApplName(name string) Option {
	return func(b *Broker) {
		b.applName = name
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(b *Broker) {
		b.now = now
	}
}

// WithQueues predefines local queues
func WithQueues(names ...string) Option {
	return func(b *Broker) {
		for _, name := range names {
			b.DefineQueue(name)
		}
	}
}

// NewBroker creates a queue manager named name. The default model queue
// is always defined.
func NewBroker(name string, options ...Option) *Broker {
	b := &Broker{
		name:     name,
		userID:   defaultUserID,
		applName: defaultApplName,
		now:      time.Now,
		logger:   slog.Default(),
		queues:   cmap.New(),
	}
	b.DefineModelQueue("SYSTEM.DEFAULT.MODEL.QUEUE")
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Name returns the queue manager name
func (b *Broker) Name() string {
	return b.name
}

// DefineQueue creates a local queue if it does not exist
func (b *Broker) DefineQueue(name string) {
	b.queues.SetIfAbsent(name, newLocalQueue(name, kindLocal))
}

// DefineModelQueue creates a model queue used as a dynamic queue template
func (b *Broker) DefineModelQueue(name string) {
	b.queues.SetIfAbsent(name, newLocalQueue(name, kindModel))
}

// DeleteQueue removes a queue. Waiting getters fail.
func (b *Broker) DeleteQueue(name string) {
	if v, ok := b.queues.Pop(name); ok {
		v.(*localQueue).dispose()
	}
}

// HasQueue reports whether a queue is defined
func (b *Broker) HasQueue(name string) bool {
	return b.queues.Has(name)
}

// QueueNames returns the defined queue names in sorted order
func (b *Broker) QueueNames() []string {
	names := b.queues.Keys()
	sort.Strings(names)
	return names
}

// Depth returns the number of messages on a queue
func (b *Broker) Depth(name string) int {
	q, ok := b.lookup(name)
	if !ok {
		return 0
	}
	return int(q.messages.Len())
}

// Stats reports connection and handle counters
type Stats struct {
	Connects    int64
	Disconnects int64
	Opens       int64
	Closes      int64
}

// Stats returns a snapshot of the counters
func (b *Broker) Stats() Stats {
	return Stats{
		Connects:    b.connects.Load(),
		Disconnects: b.disconnects.Load(),
		Opens:       b.opens.Load(),
		Closes:      b.closes.Load(),
	}
}

// FailConnects makes subsequent Connect calls fail with err. A nil err
// restores normal behaviour.
func (b *Broker) FailConnects(err error) {
	b.connectErr.Store(errBox{err})
}

type errBox struct{ err error }

// Connect implements mq.Connector.
func (b *Broker) Connect(ctx context.Context, opts mq.ConnectOptions) (mq.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if box, ok := b.connectErr.Load().(errBox); ok && box.err != nil {
		return nil, box.err
	}
	if opts.QueueManager != "" && opts.QueueManager != b.name {
		return nil, mq.NewError("connect", mq.RCQueueManagerNameErr)
	}
	b.connects.Add(1)
	b.logger.Debug("client connected", "queueManager", b.name, "channel", opts.Channel, "connName", opts.ConnectionName)
	return &conn{broker: b}, nil
}

func (b *Broker) lookup(name string) (*localQueue, bool) {
	v, ok := b.queues.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*localQueue), true
}

// nextMsgID builds "AMQ " + manager name padded to 12 + 8-byte counter.
func (b *Broker) nextMsgID() []byte {
	id := make([]byte, mq.IDLength)
	copy(id, "AMQ ")
	copy(id[4:16], fmt.Sprintf("%-12.12s", b.name))
	binary.BigEndian.PutUint64(id[16:], b.seq.Add(1))
	return id
}

func (b *Broker) dynamicName() string {
	return "AMQ." + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
}
