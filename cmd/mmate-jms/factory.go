package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	jms "github.com/glimte/mmate-jms-go"
	"github.com/glimte/mmate-jms-go/internal/mapper"
	"github.com/glimte/mmate-jms-go/monitor"
	"github.com/glimte/mmate-jms-go/mq"
	"github.com/glimte/mmate-jms-go/transports/memory"
	"github.com/glimte/mmate-jms-go/transports/rabbitmq"
)

const (
	transportAMQP   = "amqp"
	transportMemory = "memory"
)

type globalOptions struct {
	configPath   string
	transport    string
	queueManager string
	channel      string
	host         string
	port         int
	user         string
	password     string
	jsonOutput   bool
	verbose      bool
	stats        bool
	metricsAddr  string

	// set once a factory has been built
	factory *jms.ConnectionFactory
	summary *monitor.SimpleMetricsCollector
	server  *http.Server
	closed  bool
}

func (o *globalOptions) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (o *globalOptions) output(cmd *cobra.Command) *printer {
	return &printer{w: cmd.OutOrStdout(), json: o.jsonOutput}
}

// factoryOptions merges the configuration file with the flags that were set
// explicitly on the command line.
func (o *globalOptions) factoryOptions(cmd *cobra.Command, logger *slog.Logger) (string, []jms.FactoryOption, error) {
	queueManager := o.queueManager
	var options []jms.FactoryOption

	if o.configPath != "" {
		cfg, err := jms.LoadConfig(o.configPath)
		if err != nil {
			return "", nil, err
		}
		options = cfg.Options()
		if cfg.QueueManager != "" && !cmd.Flags().Changed("queue-manager") {
			queueManager = cfg.QueueManager
		}
	}

	flags := cmd.Flags()
	options = append(options, jms.WithQueueManager(queueManager))
	if flags.Changed("channel") || o.configPath == "" {
		options = append(options, jms.WithChannel(o.channel))
	}
	if flags.Changed("host") || flags.Changed("port") || o.configPath == "" {
		options = append(options, jms.WithListener(o.host, o.port))
	}
	options = append(options, jms.WithLogger(logger))

	if collector := o.metrics(logger); collector != nil {
		options = append(options, jms.WithMetrics(collector))
	}
	return queueManager, options, nil
}

func (o *globalOptions) metrics(logger *slog.Logger) jms.MetricsCollector {
	var collectors teeCollector
	if o.stats {
		o.summary = monitor.NewSimpleMetricsCollector()
		collectors = append(collectors, o.summary)
	}
	if o.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		pc, err := monitor.NewPrometheusCollector(reg, "mmate")
		if err != nil {
			logger.Error("could not register metrics", "error", err)
		} else {
			collectors = append(collectors, pc)
			o.server = &http.Server{Addr: o.metricsAddr, Handler: monitor.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := o.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server failed", "addr", o.metricsAddr, "error", err)
				}
			}()
		}
	}
	if len(collectors) == 0 {
		return nil
	}
	return collectors
}

// newFactory builds a connection factory for the selected transport. The
// memory transport predefines destinations so a single invocation can use
// them.
func (o *globalOptions) newFactory(cmd *cobra.Command, destinations ...string) (*jms.ConnectionFactory, error) {
	logger := o.logger()
	queueManager, options, err := o.factoryOptions(cmd, logger)
	if err != nil {
		return nil, err
	}

	var connector mq.Connector
	switch o.transport {
	case transportAMQP:
		connector = rabbitmq.NewConnector(
			rabbitmq.WithCredentials(o.user, o.password),
			rabbitmq.WithLogger(logger),
		)
	case transportMemory:
		queues := make([]string, len(destinations))
		for i, d := range destinations {
			queues[i] = mapper.NormalizeDestination(d)
		}
		connector = memory.NewBroker(queueManager,
			memory.WithQueues(queues...),
			memory.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unknown transport %q, expected %s or %s", o.transport, transportAMQP, transportMemory)
	}

	factory, err := jms.NewConnectionFactory(connector, options...)
	if err != nil {
		return nil, err
	}
	o.factory = factory
	return factory, nil
}

// close releases the factory and the metrics server. It runs once.
func (o *globalOptions) close(w io.Writer) error {
	if o.closed {
		return nil
	}
	o.closed = true

	if o.factory != nil {
		o.factory.Destroy()
	}
	if o.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := o.server.Shutdown(ctx); err != nil {
			o.logger().Error("could not stop metrics server", "addr", o.metricsAddr, "error", err)
		}
	}
	if o.summary != nil {
		p := &printer{w: w, json: o.jsonOutput}
		return p.stats(o.summary.Summary())
	}
	return nil
}

// teeCollector fans metrics out to several collectors.
type teeCollector []jms.MetricsCollector

func (t teeCollector) IncrementMessageCount(op string) {
	for _, c := range t {
		c.IncrementMessageCount(op)
	}
}

func (t teeCollector) RecordProcessingTime(op string, d time.Duration) {
	for _, c := range t {
		c.RecordProcessingTime(op, d)
	}
}

func (t teeCollector) IncrementErrorCount(op, errorType string) {
	for _, c := range t {
		c.IncrementErrorCount(op, errorType)
	}
}
