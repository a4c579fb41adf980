package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultPushoverURL = "https://api.pushover.net/1/messages.json"

// PushoverSender posts messages to the Pushover API.
type PushoverSender struct {
	Token  string
	User   string
	URL    string
	Client *http.Client
}

func (p *PushoverSender) Name() string { return "pushover" }

func (p *PushoverSender) Send(ctx context.Context, message string) error {
	if p.Token == "" || p.User == "" {
		return errors.New("pushover token and user are required")
	}
	url := p.URL
	if url == "" {
		url = DefaultPushoverURL
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(map[string]string{
		"token":   p.Token,
		"user":    p.User,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("marshal pushover request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("pushover request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("pushover status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
