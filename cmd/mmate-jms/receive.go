package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/glimte/mmate-jms-go/contracts"
)

func newReceiveCommand(opts *globalOptions) *cobra.Command {
	var (
		wait  time.Duration
		count int
	)

	cmd := &cobra.Command{
		Use:   "receive <destination>",
		Short: "Receive text messages",
		Long: `Receive up to --count messages from a queue, waiting up to --wait for
each. Receiving stops early once the queue stays empty for the wait interval.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be positive, got %d", count)
			}

			factory, err := opts.newFactory(cmd, args[0])
			if err != nil {
				return err
			}
			defer opts.close(cmd.ErrOrStderr())

			out := opts.output(cmd)
			for received := 0; received < count; received++ {
				msg, err := factory.Receive(cmd.Context(), args[0], wait)
				var empty *contracts.NoMessageAvailableError
				if errors.As(err, &empty) && received > 0 {
					return nil
				}
				if err != nil {
					return fmt.Errorf("receive from %s: %w", args[0], err)
				}
				if err := out.message("Received", msg); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVarP(&wait, "wait", "w", 5*time.Second, "how long to wait for each message")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "maximum number of messages to receive")
	return cmd
}
