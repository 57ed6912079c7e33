package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/glimte/mmate-jms-go/health"
)

func newInfoCommand(opts *globalOptions) *cobra.Command {
	var (
		probe      bool
		maxOpen    int
		maxDynamic int
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show connection factory details and health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, err := opts.newFactory(cmd)
			if err != nil {
				return err
			}
			defer opts.close(cmd.ErrOrStderr())

			registry := health.NewRegistry()
			registry.Register(health.NewFactoryChecker(factory, probe, opts.logger()))
			registry.Register(health.NewQueueCacheChecker(factory, maxOpen, maxDynamic))

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			report := registry.Check(ctx)

			err = opts.output(cmd).info(infoView{
				Connection: factory.ConnectionInfo(),
				State:      factory.State().String(),
				NeedsMCD:   factory.NeedsMCD(),
				Health:     report,
			})
			if err != nil {
				return err
			}
			if report.Status == health.StatusUnhealthy {
				return fmt.Errorf("connection factory is %s", report.Status)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", true, "connect to the queue manager before reporting")
	cmd.Flags().IntVar(&maxOpen, "max-open", 100, "cached queue handles before the cache is degraded, 0 disables")
	cmd.Flags().IntVar(&maxDynamic, "max-dynamic", 50, "dynamic queues before the cache is degraded, 0 disables")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "health check timeout")
	return cmd
}
