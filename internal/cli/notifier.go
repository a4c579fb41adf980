package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"syntego/internal/amqp"
	"syntego/internal/config"
	"syntego/internal/notify"
	"syntego/internal/worker"
)

// NewNotifierCmd returns the command of the notification worker, which
// delivers the messages queued by NOTIFIER=amqp to Pushover.
func NewNotifierCmd() *cobra.Command {
	var statsInterval time.Duration
	cmd := &cobra.Command{
		Use:           "syntego-notifier",
		Short:         "Deliver queued notifications to Pushover",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadAndValidateConfig((*config.Config).ValidateWorker)
			if err != nil {
				return err
			}
			logger, err := SetupLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			logger.Info("Starting syntego-notifier", "queue", cfg.AMQPQueue)

			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
			if err != nil {
				return fmt.Errorf("initialize AMQP client: %w", err)
			}
			defer client.Close()

			sender := &notify.PushoverSender{
				Token:  cfg.PushoverToken,
				User:   cfg.PushoverUser,
				URL:    cfg.PushoverURL,
				Client: &http.Client{Timeout: cfg.NotifyTimeout},
			}
			w := worker.NewNotificationWorker(client, sender, cfg.NotifyTimeout, logger)

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, cancel := SignalContext(parent, logger)
			defer cancel()

			err = w.Run(ctx, statsInterval)
			delivered, failed := w.Stats()
			logger.Info("Notifier stopped", "delivered", delivered, "failed", failed)
			return err
		},
	}
	cmd.Flags().DurationVar(&statsInterval, "stats-interval", 5*time.Minute, "How often to log delivery counters (0 disables)")
	return cmd
}
