package mq

import (
	"context"
	"time"
)

// ConnectOptions carries everything needed to reach a queue manager over a
// client channel.
type ConnectOptions struct {
	QueueManager   string
	Channel        string
	ConnectionName string // host(port)
	ChannelType    int32
	TransportType  int32
	SSLCipherSpec  string
	KeyRepository  string
	Options        int32
}

// TLSEnabled reports whether a cipher spec has been configured.
func (o ConnectOptions) TLSEnabled() bool {
	return o.SSLCipherSpec != ""
}

// OpenOptions controls how a queue is opened.
type OpenOptions struct {
	Options int32
}

// Has reports whether all bits of flag are set.
func (o OpenOptions) Has(flag int32) bool {
	return o.Options&flag == flag
}

// GetOptions controls a single get call.
type GetOptions struct {
	Options      int32
	WaitInterval time.Duration
}

// Waits reports whether the get should block for the wait interval.
func (o GetOptions) Waits() bool {
	return o.Options&GetWait != 0
}

// Connector establishes connections to a queue manager.
type Connector interface {
	Connect(ctx context.Context, opts ConnectOptions) (Conn, error)
}

// Conn is a live queue-manager connection. Queues opened through a Conn
// become invalid once it is disconnected.
type Conn interface {
	// Open opens a queue by name. Opening a model queue creates a dynamic
	// queue whose generated name is reported by Queue.Name.
	Open(name string, opts OpenOptions) (Queue, error)

	// Disconnect tears the connection down.
	Disconnect() error
}

// Queue is an opened queue handle.
type Queue interface {
	// Name returns the resolved queue name.
	Name() string

	// Put enqueues body. The transport fills the message id, put date and
	// time, user identifier and application name back into md.
	Put(body []byte, md *Descriptor) error

	// Get dequeues the next message, overwriting md with its descriptor.
	Get(md *Descriptor, opts GetOptions) ([]byte, error)

	// Close releases the handle.
	Close() error
}
