package budget

import "context"

// Notifier delivers a message on a best-effort basis. Implementations
// swallow and log their own failures.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Dispatch sends one notification per alert that carries a notification
// message, in alert order, and returns how many were sent.
func Dispatch(ctx context.Context, n Notifier, alerts []Alert) int {
	if n == nil {
		return 0
	}
	sent := 0
	for _, a := range alerts {
		msg, ok := a.Notification()
		if !ok {
			continue
		}
		n.Notify(ctx, msg)
		sent++
	}
	return sent
}
