package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "mmate-jms:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "mmate-jms",
		Short: "Exchange JMS text messages with an MQ-style queue manager",
		Long: `mmate-jms sends and receives JMS text messages, runs request/reply
exchanges over dynamic queues, decodes RFH2 wire dumps and reports the
health of a connection factory.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "factory configuration file (.toml, .yaml or .yml)")
	flags.StringVarP(&opts.transport, "transport", "t", transportAMQP, "transport to use: amqp or memory")
	flags.StringVarP(&opts.queueManager, "queue-manager", "m", "QM1", "queue manager name (the AMQP virtual host)")
	flags.StringVar(&opts.channel, "channel", "mmate-jms", "client channel name")
	flags.StringVar(&opts.host, "host", "localhost", "listener host")
	flags.IntVar(&opts.port, "port", 5672, "listener port")
	flags.StringVarP(&opts.user, "user", "U", "guest", "AMQP user")
	flags.StringVarP(&opts.password, "password", "P", "guest", "AMQP password")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of styled text")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&opts.stats, "stats", false, "print operation statistics on exit")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(
		newSendCommand(opts),
		newReceiveCommand(opts),
		newRequestCommand(opts),
		newInspectCommand(opts),
		newInfoCommand(opts),
	)
	return rootCmd
}
