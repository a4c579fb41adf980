package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// GeminiGenerator asks Google Gemini for advice.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a Gemini client authenticated with an API key.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(cfg.MaxTokens)
	}
	model.SetTemperature(cfg.Temperature)
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) GenerateAdvice(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", ErrServiceUnavailable, err)
	}
	return geminiText(resp)
}

// Close releases the underlying connection.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// geminiText joins the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", ErrInvalidResponse)
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return "", fmt.Errorf("%w: gemini candidate has no content", ErrInvalidResponse)
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("%w: gemini returned no text", ErrInvalidResponse)
	}
	return out, nil
}
