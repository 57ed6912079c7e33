package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/glimte/mmate-jms-go/bridge"
	"github.com/glimte/mmate-jms-go/contracts"
)

// messageFlags describe the outgoing message of send and request.
type messageFlags struct {
	correlationID string
	replyTo       string
	priority      int
	expiration    time.Duration
	nonPersistent bool
	properties    map[string]string
	file          string
}

func (f *messageFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.correlationID, "correlation-id", "", "JMSCorrelationID")
	fs.StringVar(&f.replyTo, "reply-to", "", "JMSReplyTo queue")
	fs.IntVar(&f.priority, "priority", 0, "JMSPriority (0-9)")
	fs.DurationVar(&f.expiration, "expiration", 0, "time to live, 0 never expires")
	fs.BoolVar(&f.nonPersistent, "non-persistent", false, "send with NON_PERSISTENT delivery mode")
	fs.StringToStringVarP(&f.properties, "property", "p", nil, "user property name=value (repeatable)")
	fs.StringVarP(&f.file, "file", "f", "", "read the message text from a file")
}

// build creates the message. The text comes from args, then --file, then
// stdin.
func (f *messageFlags) build(stdin io.Reader, args []string) (*contracts.TextMessage, error) {
	var text string
	switch {
	case len(args) > 0:
		text = strings.Join(args, " ")
	case f.file != "":
		data, err := os.ReadFile(f.file)
		if err != nil {
			return nil, err
		}
		text = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read message text: %w", err)
		}
		text = string(data)
	}

	if f.priority < 0 || f.priority > 9 {
		return nil, fmt.Errorf("priority %d is outside 0-9", f.priority)
	}
	if f.expiration < 0 {
		return nil, fmt.Errorf("expiration %s is negative", f.expiration)
	}

	msg := contracts.NewTextMessage(text)
	msg.CorrelationID = f.correlationID
	msg.ReplyTo = f.replyTo
	msg.Priority = f.priority
	msg.Expiration = f.expiration.Milliseconds()
	if f.nonPersistent {
		msg.DeliveryMode = contracts.DeliveryModeNonPersistent
	}
	for name, value := range f.properties {
		msg.SetProperty(name, value)
	}
	return msg, nil
}

func newSendCommand(opts *globalOptions) *cobra.Command {
	var mf messageFlags

	cmd := &cobra.Command{
		Use:   "send <destination> [text...]",
		Short: "Send a text message",
		Long:  "Send a JMS text message to a queue. Without text arguments the text is read from --file or stdin.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := mf.build(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}

			factory, err := opts.newFactory(cmd, args[0])
			if err != nil {
				return err
			}
			defer opts.close(cmd.ErrOrStderr())

			if err := factory.Send(cmd.Context(), msg, args[0]); err != nil {
				return fmt.Errorf("send to %s: %w", args[0], err)
			}
			return opts.output(cmd).message("Sent", msg)
		},
	}
	mf.register(cmd.Flags())
	return cmd
}

func newRequestCommand(opts *globalOptions) *cobra.Command {
	var (
		mf      messageFlags
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "request <destination> [text...]",
		Short: "Send a request and wait for the reply",
		Long: `Send a request with a dynamic reply queue as JMSReplyTo and wait for a
reply whose JMSCorrelationID is the request's JMSMessageID.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := mf.build(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}

			factory, err := opts.newFactory(cmd, args[0])
			if err != nil {
				return err
			}
			defer opts.close(cmd.ErrOrStderr())

			requestor := bridge.NewRequestor(factory, bridge.WithLogger(opts.logger()))
			reply, err := requestor.Request(cmd.Context(), msg, args[0], timeout)
			if err != nil {
				return fmt.Errorf("request to %s: %w", args[0], err)
			}
			return opts.output(cmd).message("Reply", reply)
		},
	}
	mf.register(cmd.Flags())
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "how long to wait for the reply")
	return cmd
}
