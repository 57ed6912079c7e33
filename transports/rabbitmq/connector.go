package rabbitmq

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/glimte/mmate-jms-go/mq"
)

// DefaultModelQueue is the model queue recognised without WithModelQueues.
const DefaultModelQueue = "SYSTEM.DEFAULT.MODEL.QUEUE"

// channel is the subset of *amqp.Channel used by queue handles.
type channel interface {
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
	Close() error
}

// connection is the subset of *amqp.Connection used by the transport.
type connection interface {
	Channel() (channel, error)
	Close() error
	IsClosed() bool
}

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (channel, error) {
	return c.Connection.Channel()
}

// DialFunc opens an AMQP connection.
type DialFunc func(url string, config amqp.Config) (connection, error)

func dialAMQP(url string, config amqp.Config) (connection, error) {
	conn, err := amqp.DialConfig(url, config)
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

// Connector implements mq.Connector over AMQP.
type Connector struct {
	username       string
	password       string
	applName       string
	modelQueues    map[string]struct{}
	pollInterval   time.Duration
	publishTimeout time.Duration
	dialTimeout    time.Duration
	dial           DialFunc
	now            func() time.Time
	logger         *slog.Logger
}

// Option configures a Connector
type Option func(*Connector)

// WithCredentials sets the AMQP user and password
func WithCredentials(username, password string) Option {
	return func(c *Connector) {
		c.username = username
		c.password = password
	}
}

// WithApplName sets the put application name stamped on sent messages
func WithApplName(name string) Option {
	return func(c *Connector) {
		c.applName = name
	}
}

// WithModelQueues replaces the names treated as model queues
func WithModelQueues(names ...string) Option {
	return func(c *Connector) {
		c.modelQueues = make(map[string]struct{}, len(names))
		for _, n := range names {
			c.modelQueues[n] = struct{}{}
		}
	}
}

// WithPollInterval sets how often a waiting get polls an empty queue
func WithPollInterval(d time.Duration) Option {
	return func(c *Connector) {
		c.pollInterval = d
	}
}

// WithPublishTimeout bounds a single publish
func WithPublishTimeout(d time.Duration) Option {
	return func(c *Connector) {
		c.publishTimeout = d
	}
}

// WithDialTimeout bounds connection establishment
func WithDialTimeout(d time.Duration) Option {
	return func(c *Connector) {
		c.dialTimeout = d
	}
}

// WithDialer replaces the AMQP dialer
func WithDialer(dial DialFunc) Option {
	return func(c *Connector) {
		c.dial = dial
	}
}

// WithClock replaces time.Now for put dates and times
func WithClock(now func() time.Time) Option {
	return func(c *Connector) {
		c.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connector) {
		c.logger = logger
	}
}

// NewConnector creates a connector. Without credentials the AMQP default
// guest account is used.
func NewConnector(options ...Option) *Connector {
	c := &Connector{
		username:       "guest",
		password:       "guest",
		applName:       "mmate-jms",
		modelQueues:    map[string]struct{}{DefaultModelQueue: {}},
		pollInterval:   50 * time.Millisecond,
		publishTimeout: 10 * time.Second,
		dialTimeout:    30 * time.Second,
		dial:           dialAMQP,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// URL returns the AMQP URL for opts.
func (c *Connector) URL(opts mq.ConnectOptions) (string, error) {
	host, port, err := parseConnectionName(opts.ConnectionName)
	if err != nil {
		return "", err
	}
	scheme := "amqp"
	if opts.TLSEnabled() {
		scheme = "amqps"
	}
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(c.username, c.password),
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + opts.QueueManager,
	}
	return u.String(), nil
}

// parseConnectionName splits "host(port)".
func parseConnectionName(name string) (string, int, error) {
	open := strings.IndexByte(name, '(')
	if open <= 0 || !strings.HasSuffix(name, ")") {
		return "", 0, fmt.Errorf("rabbitmq: connection name %q is not host(port)", name)
	}
	port, err := strconv.Atoi(name[open+1 : len(name)-1])
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("rabbitmq: invalid port in connection name %q", name)
	}
	return name[:open], port, nil
}

// tlsConfig trusts the PEM certificates in the key repository.
func tlsConfig(opts mq.ConnectOptions) (*tls.Config, error) {
	pem, err := os.ReadFile(opts.KeyRepository)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: read key repository: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("rabbitmq: no certificates in key repository %s", opts.KeyRepository)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Connect implements mq.Connector.
func (c *Connector) Connect(ctx context.Context, opts mq.ConnectOptions) (mq.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rawURL, err := c.URL(opts)
	if err != nil {
		return nil, &mq.Error{Op: "connect", CompCode: mq.CCFailed, Reason: mq.RCHostNotAvailable, Err: err}
	}

	config := amqp.Config{
		Properties: amqp.Table{"connection_name": opts.Channel},
		Dial:       amqp.DefaultDial(c.dialTimeout),
	}
	if opts.TLSEnabled() {
		if config.TLSClientConfig, err = tlsConfig(opts); err != nil {
			return nil, &mq.Error{Op: "connect", CompCode: mq.CCFailed, Reason: mq.RCSSLInitError, Err: err}
		}
	}

	type result struct {
		conn connection
		err  error
	}
	done := make(chan result, 1)
	go func() {
		ac, err := c.dial(rawURL, config)
		done <- result{ac, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			c.logger.Error("could not connect to broker", "url", SanitizeURL(rawURL), "error", res.err)
			return nil, wrap("connect", res.err)
		}
		c.logger.Info("connected to broker", "url", SanitizeURL(rawURL), "channel", opts.Channel)
		return newConn(res.conn, c), nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (c *Connector) isModel(name string) bool {
	_, ok := c.modelQueues[name]
	return ok
}
