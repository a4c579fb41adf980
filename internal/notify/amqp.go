package notify

import "context"

// Publisher is the part of the AMQP client used for notifications.
type Publisher interface {
	PublishNotification(ctx context.Context, message string) error
}

// AMQPSender queues notifications for the notifier worker.
type AMQPSender struct {
	Publisher Publisher
}

func (s AMQPSender) Name() string { return "amqp" }

func (s AMQPSender) Send(ctx context.Context, message string) error {
	return s.Publisher.PublishNotification(ctx, message)
}
