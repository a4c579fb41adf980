// Package worker forwards queued notifications to the delivery provider.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"syntego/internal/amqp"
	"syntego/internal/log"
	"syntego/internal/notify"
)

// Consumer is the part of the AMQP client the worker depends on.
type Consumer interface {
	ConsumeNotifications(ctx context.Context, handler func(context.Context, *amqp.NotificationMessage) error) error
}

// NotificationWorker delivers queued messages through a Sender. A failed
// delivery is returned to the consumer so the message is requeued.
type NotificationWorker struct {
	consumer    Consumer
	sender      notify.Sender
	sendTimeout time.Duration
	logger      *log.Logger

	delivered atomic.Int64
	failed    atomic.Int64
}

func NewNotificationWorker(consumer Consumer, sender notify.Sender, sendTimeout time.Duration, logger *log.Logger) *NotificationWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &NotificationWorker{
		consumer:    consumer,
		sender:      sender,
		sendTimeout: sendTimeout,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// HandleNotification delivers a single message.
func (w *NotificationWorker) HandleNotification(ctx context.Context, msg *amqp.NotificationMessage) error {
	w.logger.InfoContext(ctx, "Processing notification message",
		"id", msg.ID,
		log.FieldSender, w.sender.Name())

	sendCtx := ctx
	if w.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, w.sendTimeout)
		defer cancel()
	}

	if err := w.sender.Send(sendCtx, msg.Message); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("deliver notification %s: %w", msg.ID, err)
	}
	w.delivered.Add(1)

	w.logger.DebugContext(ctx, "Notification delivered",
		"id", msg.ID,
		"queued_for", time.Since(msg.Timestamp).Round(time.Millisecond).String())
	return nil
}

// Run consumes until ctx is cancelled. When statsInterval is positive the
// delivery counters are logged periodically alongside the consumer.
func (w *NotificationWorker) Run(ctx context.Context, statsInterval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.consumer.ConsumeNotifications(ctx, w.HandleNotification)
	})

	if statsInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					delivered, failed := w.Stats()
					w.logger.Info("Notification worker stats", "delivered", delivered, "failed", failed)
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stats returns the delivered and failed counts since start.
func (w *NotificationWorker) Stats() (delivered, failed int64) {
	return w.delivered.Load(), w.failed.Load()
}
