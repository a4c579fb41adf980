package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// NotificationMessage carries one push notification from the app to the
// notifier worker.
type NotificationMessage struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNotificationMessage(message string) *NotificationMessage {
	return &NotificationMessage{
		ID:        uuid.New(),
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON decodes a message and rejects empty bodies.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Message == "" {
		return nil, errors.New("notification message is empty")
	}
	return &msg, nil
}
