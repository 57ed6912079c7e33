package jms

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/glimte/mmate-jms-go/contracts"
	"github.com/glimte/mmate-jms-go/internal/connection"
)

// DefaultDynamicQueueTemplate is the model queue used by OpenDynamicQueue.
const DefaultDynamicQueueTemplate = connection.DefaultDynamicQueueTemplate

// mcdConstraint selects queue managers that still require the mcd folder.
var mcdConstraint = mustConstraint("< 7.0.0")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// factoryConfig holds factory configuration
type factoryConfig struct {
	queueManager         string
	channel              string
	host                 string
	port                 int
	cacheOpenSendQueues  bool
	cacheOpenReceive     bool
	useSharedConnections bool
	dynamicQueueTemplate string
	ssl                  bool
	sslCipherSpec        string
	sslKeyRepository     string
	needsMCD             bool
	logger               *slog.Logger
	metrics              MetricsCollector
	clock                func() time.Time

	// set by options that can fail; reported by validate
	errs []error
}

func defaultFactoryConfig() *factoryConfig {
	return &factoryConfig{
		host:                 "localhost",
		port:                 1414,
		cacheOpenSendQueues:  true,
		cacheOpenReceive:     true,
		useSharedConnections: true,
		dynamicQueueTemplate: DefaultDynamicQueueTemplate,
		needsMCD:             true,
		logger:               slog.Default(),
		metrics:              noopMetrics{},
		clock:                time.Now,
	}
}

func (c *factoryConfig) validate() error {
	if len(c.errs) > 0 {
		return c.errs[0]
	}
	if c.port < 0 || c.port > 65535 {
		return &contracts.ConfigurationError{Field: "port", Reason: fmt.Sprintf("%d is not a valid TCP port", c.port)}
	}
	if c.dynamicQueueTemplate == "" {
		return &contracts.ConfigurationError{Field: "dynamic_queue_template", Reason: "must not be empty"}
	}
	if c.ssl && (c.sslCipherSpec == "" || c.sslKeyRepository == "") {
		return &contracts.ConfigurationError{Field: "ssl", Reason: "SSL support requires setting both ssl_cipher_spec and ssl_key_repository"}
	}
	return nil
}

func (c *factoryConfig) settings() connection.Settings {
	s := connection.Settings{
		QueueManager:           c.queueManager,
		Channel:                c.channel,
		Host:                   c.host,
		Port:                   c.port,
		UseSharedConnections:   c.useSharedConnections,
		DynamicQueueTemplate:   c.dynamicQueueTemplate,
		CacheOpenSendQueues:    c.cacheOpenSendQueues,
		CacheOpenReceiveQueues: c.cacheOpenReceive,
	}
	if c.ssl {
		s.SSLCipherSpec = c.sslCipherSpec
		s.SSLKeyRepository = c.sslKeyRepository
	}
	return s
}

// FactoryOption configures a ConnectionFactory
type FactoryOption func(*factoryConfig)

// WithQueueManager sets the queue manager name
func WithQueueManager(name string) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.queueManager = name
	}
}

// WithChannel sets the server connection channel
func WithChannel(channel string) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.channel = channel
	}
}

// WithListener sets the listener host and port
func WithListener(host string, port int) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.host = host
		cfg.port = port
	}
}

// WithCacheOpenSendQueues controls whether send handles are kept open
func WithCacheOpenSendQueues(enabled bool) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.cacheOpenSendQueues = enabled
	}
}

// WithCacheOpenReceiveQueues controls whether receive handles are kept open
func WithCacheOpenReceiveQueues(enabled bool) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.cacheOpenReceive = enabled
	}
}

// WithSharedConnections selects handle-share-block (true) or
// handle-share-none (false) connect options
func WithSharedConnections(enabled bool) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.useSharedConnections = enabled
	}
}

// WithDynamicQueueTemplate sets the model queue for dynamic queues
func WithDynamicQueueTemplate(template string) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.dynamicQueueTemplate = template
	}
}

// WithSSL enables TLS with the given cipher spec and key repository. Both
// are required.
func WithSSL(cipherSpec, keyRepository string) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.ssl = true
		cfg.sslCipherSpec = cipherSpec
		cfg.sslKeyRepository = keyRepository
	}
}

// WithMCD controls whether the mcd folder is written and recognised.
// Queue managers from version 7 on must not receive it.
func WithMCD(needsMCD bool) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.needsMCD = needsMCD
	}
}

// WithQueueManagerVersion derives the mcd setting from the queue manager
// version, e.g. "6.0.2" or "9.3".
func WithQueueManagerVersion(version string) FactoryOption {
	return func(cfg *factoryConfig) {
		v, err := semver.NewVersion(version)
		if err != nil {
			cfg.errs = append(cfg.errs, &contracts.ConfigurationError{
				Field:  "queue_manager_version",
				Reason: fmt.Sprintf("%q: %v", version, err),
			})
			return
		}
		cfg.needsMCD = mcdConstraint.Check(v)
	}
}

// WithLogger sets the logger for all components
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.logger = logger
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(collector MetricsCollector) FactoryOption {
	return func(cfg *factoryConfig) {
		if collector == nil {
			collector = noopMetrics{}
		}
		cfg.metrics = collector
	}
}

// WithClock replaces time.Now for timestamps written by Send
func WithClock(now func() time.Time) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.clock = now
	}
}
