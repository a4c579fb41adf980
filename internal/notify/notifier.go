// Package notify delivers short push notifications on a best-effort basis.
package notify

import (
	"context"
	"time"

	"syntego/internal/log"
)

// Sender delivers one message. Implementations return an error on failure;
// Notifier decides what to do with it.
type Sender interface {
	Send(ctx context.Context, message string) error
	Name() string
}

// Notifier wraps a Sender so that delivery never fails the caller.
type Notifier struct {
	sender  Sender
	timeout time.Duration
	logger  *log.Logger
}

func New(sender Sender, timeout time.Duration, logger *log.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentNotify),
	}
}

// Notify sends message and logs any failure. A nil Notifier or Sender is a no-op.
func (n *Notifier) Notify(ctx context.Context, message string) {
	if n == nil || n.sender == nil || message == "" {
		return
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	if err := n.sender.Send(ctx, message); err != nil {
		n.logger.WarnContext(ctx, "Notification failed",
			log.NewFields().WithOperation(log.OpNotify).WithError(err).ToSlice()...)
		return
	}
	n.logger.DebugContext(ctx, "Notification sent", log.FieldSender, n.sender.Name())
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	Logger *log.Logger
}

func (s LogSender) Name() string { return "log" }

func (s LogSender) Send(ctx context.Context, message string) error {
	s.Logger.InfoContext(ctx, "Notification", "message", message)
	return nil
}
