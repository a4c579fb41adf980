package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"syntego/internal/log"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Name() string { return "mock" }

func (m *mockSender) Send(ctx context.Context, message string) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func TestNotifier_SwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: &buf})

	sender := &mockSender{}
	sender.On("Send", mock.Anything, "Transaction(s) deleted").Return(errors.New("boom")).Once()

	New(sender, time.Second, logger).Notify(context.Background(), "Transaction(s) deleted")

	sender.AssertExpectations(t)
	assert.Contains(t, buf.String(), "Notification failed")
	assert.Contains(t, buf.String(), "boom")
}

func TestNotifier_AppliesTimeout(t *testing.T) {
	sender := &mockSender{}
	sender.On("Send", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), "hi").Return(nil).Once()

	New(sender, time.Second, log.Discard()).Notify(context.Background(), "hi")
	sender.AssertExpectations(t)
}

func TestNotifier_NoopCases(t *testing.T) {
	var n *Notifier
	n.Notify(context.Background(), "ignored")

	sender := &mockSender{}
	New(sender, 0, log.Discard()).Notify(context.Background(), "")
	New(nil, 0, log.Discard()).Notify(context.Background(), "ignored")
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestPushoverSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":1}`))
	}))
	defer srv.Close()

	p := &PushoverSender{Token: "tok", User: "usr", URL: srv.URL}
	require.NoError(t, p.Send(context.Background(), "New Income added: $100.00 for pay"))
	assert.Equal(t, map[string]string{"token": "tok", "user": "usr", "message": "New Income added: $100.00 for pay"}, got)
}

func TestPushoverSender_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"user":"invalid"}`))
	}))
	defer srv.Close()

	err := (&PushoverSender{Token: "tok", User: "usr", URL: srv.URL}).Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")

	assert.Error(t, (&PushoverSender{URL: srv.URL}).Send(context.Background(), "x"))
}

type fakePublisher struct {
	messages []string
	err      error
}

func (f *fakePublisher) PublishNotification(_ context.Context, message string) error {
	f.messages = append(f.messages, message)
	return f.err
}

func TestAMQPSender(t *testing.T) {
	pub := &fakePublisher{}
	n := New(AMQPSender{Publisher: pub}, time.Second, log.Discard())
	n.Notify(context.Background(), "Budget Alert: Spending exceeds 80% of income!")
	assert.Equal(t, []string{"Budget Alert: Spending exceeds 80% of income!"}, pub.messages)

	pub.err = errors.New("circuit breaker is open")
	n.Notify(context.Background(), "second")
	assert.Len(t, pub.messages, 2)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := LogSender{Logger: log.New(log.Config{Level: slog.LevelInfo, Output: &buf})}
	require.NoError(t, s.Send(context.Background(), "hello"))
	assert.Contains(t, buf.String(), "message=hello")
}
