package rabbitmq

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var fixedNow = time.Date(2024, 3, 15, 10, 20, 30, 450*int(time.Millisecond), time.UTC)

// fakeServer keeps queues in memory and hands out fake connections.
type fakeServer struct {
	mu      sync.Mutex
	queues  map[string][]amqp.Delivery
	dynamic int
	dialErr error
	urls    []string
	configs []amqp.Config
	conns   []*fakeConnection
}

func newFakeServer(queues ...string) *fakeServer {
	s := &fakeServer{queues: make(map[string][]amqp.Delivery)}
	for _, q := range queues {
		s.queues[q] = nil
	}
	return s
}

func (s *fakeServer) dial(url string, config amqp.Config) (connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, url)
	s.configs = append(s.configs, config)
	if s.dialErr != nil {
		return nil, s.dialErr
	}
	c := &fakeConnection{server: s}
	s.conns = append(s.conns, c)
	return c, nil
}

func (s *fakeServer) has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.queues[name]
	return ok
}

func (s *fakeServer) depth(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[name])
}

func (s *fakeServer) deliver(queue string, d amqp.Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[queue] = append(s.queues[queue], d)
}

func notFound(name string) error {
	return &amqp.Error{Code: amqp.NotFound, Reason: fmt.Sprintf("NOT_FOUND - no queue '%s'", name)}
}

type fakeConnection struct {
	server   *fakeServer
	closed   atomic.Bool
	channels atomic.Int32
}

func (c *fakeConnection) Channel() (channel, error) {
	if c.closed.Load() {
		return nil, amqp.ErrClosed
	}
	c.channels.Add(1)
	return &fakeChannel{server: c.server}, nil
}

func (c *fakeConnection) Close() error {
	if c.closed.Swap(true) {
		return amqp.ErrClosed
	}
	return nil
}

func (c *fakeConnection) IsClosed() bool {
	return c.closed.Load()
}

type fakeChannel struct {
	server *fakeServer
	closed atomic.Bool
}

func (ch *fakeChannel) QueueDeclarePassive(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	s := ch.server
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.queues[name]
	if !ok {
		ch.closed.Store(true)
		return amqp.Queue{}, notFound(name)
	}
	return amqp.Queue{Name: name, Messages: len(msgs)}, nil
}

func (ch *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	s := ch.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		s.dynamic++
		name = fmt.Sprintf("amq.gen-%04d", s.dynamic)
	}
	if _, ok := s.queues[name]; !ok {
		s.queues[name] = nil
	}
	return amqp.Queue{Name: name}, nil
}

func (ch *fakeChannel) QueueDelete(name string, _, _, _ bool) (int, error) {
	s := ch.server
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.queues[name]
	if !ok {
		return 0, notFound(name)
	}
	delete(s.queues, name)
	return len(msgs), nil
}

func (ch *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if ch.closed.Load() {
		return amqp.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s := ch.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[key]; !ok {
		return nil // unroutable messages are dropped
	}
	s.queues[key] = append(s.queues[key], amqp.Delivery{
		Headers:       msg.Headers,
		ContentType:   msg.ContentType,
		DeliveryMode:  msg.DeliveryMode,
		Priority:      msg.Priority,
		CorrelationId: msg.CorrelationId,
		ReplyTo:       msg.ReplyTo,
		Expiration:    msg.Expiration,
		MessageId:     msg.MessageId,
		Timestamp:     msg.Timestamp,
		AppId:         msg.AppId,
		Exchange:      exchange,
		RoutingKey:    key,
		Body:          append([]byte(nil), msg.Body...),
	})
	return nil
}

func (ch *fakeChannel) Get(queue string, _ bool) (amqp.Delivery, bool, error) {
	if ch.closed.Load() {
		return amqp.Delivery{}, false, amqp.ErrClosed
	}
	s := ch.server
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.queues[queue]
	if !ok {
		return amqp.Delivery{}, false, notFound(queue)
	}
	if len(msgs) == 0 {
		return amqp.Delivery{}, false, nil
	}
	s.queues[queue] = msgs[1:]
	return msgs[0], true, nil
}

func (ch *fakeChannel) Close() error {
	ch.closed.Store(true)
	return nil
}

func newTestConnector(s *fakeServer, options ...Option) *Connector {
	opts := append([]Option{
		WithDialer(s.dial),
		WithClock(func() time.Time { return fixedNow }),
		WithPollInterval(5 * time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, options...)
	return NewConnector(opts...)
}
