package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultCohereURL = "https://api.cohere.ai/v1/generate"

// CohereConfig configures the Cohere generate endpoint.
type CohereConfig struct {
	APIKey      string
	Model       string
	URL         string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

// CohereGenerator asks Cohere's generate endpoint for advice.
type CohereGenerator struct {
	cfg CohereConfig
}

var _ Generator = (*CohereGenerator)(nil)

// NewCohereGenerator fills in defaults for the endpoint, model and client.
func NewCohereGenerator(cfg CohereConfig) *CohereGenerator {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = defaultCohereURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "command"
	}
	return &CohereGenerator{cfg: cfg}
}

type cohereRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type cohereResponse struct {
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
}

func (c *CohereGenerator) GenerateAdvice(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", fmt.Errorf("%w: cohere api key is required", ErrServiceUnavailable)
	}
	body, err := json.Marshal(cohereRequest{
		Model:       c.cfg.Model,
		Prompt:      prompt,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// The key only travels in the Authorization header and is never logged.
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: cohere request: %v", ErrServiceUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("%w: cohere status %d: %s", ErrServiceUnavailable, res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload cohereResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode cohere response: %v", ErrInvalidResponse, err)
	}
	if len(payload.Generations) == 0 {
		return "", fmt.Errorf("%w: cohere returned no generations", ErrInvalidResponse)
	}
	text := strings.TrimSpace(payload.Generations[0].Text)
	if text == "" {
		return "", fmt.Errorf("%w: cohere returned empty text", ErrInvalidResponse)
	}
	return text, nil
}
