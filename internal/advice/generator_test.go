package advice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCohereGenerator_Success(t *testing.T) {
	var got cohereRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"generations":[{"text":"  Spend less on food.  "}]}`))
	}))
	defer srv.Close()

	gen := NewCohereGenerator(CohereConfig{APIKey: "secret", URL: srv.URL, MaxTokens: 200, Temperature: 0.7})
	text, err := gen.GenerateAdvice(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "Spend less on food.", text)

	assert.Equal(t, "command", got.Model)
	assert.Equal(t, "prompt text", got.Prompt)
	assert.Equal(t, 200, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
}

func TestCohereGenerator_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, ErrServiceUnavailable},
		{"unauthorized", http.StatusUnauthorized, `{"message":"bad key"}`, ErrServiceUnavailable},
		{"bad json", http.StatusOK, `not json`, ErrInvalidResponse},
		{"no generations", http.StatusOK, `{"generations":[]}`, ErrInvalidResponse},
		{"empty text", http.StatusOK, `{"generations":[{"text":"   "}]}`, ErrInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewCohereGenerator(CohereConfig{APIKey: "k", URL: srv.URL}).GenerateAdvice(context.Background(), "p")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCohereGenerator_MissingKey(t *testing.T) {
	_, err := NewCohereGenerator(CohereConfig{}).GenerateAdvice(context.Background(), "p")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestCohereGenerator_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewCohereGenerator(CohereConfig{APIKey: "k", URL: url}).GenerateAdvice(context.Background(), "p")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestGeminiText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Cut "), genai.Text("takeaway.")}},
	}}}
	text, err := geminiText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Cut takeaway.", text)

	for _, bad := range []*genai.GenerateContentResponse{
		nil,
		{},
		{Candidates: []*genai.Candidate{{}}},
		{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text(" ")}}}}},
	} {
		_, err := geminiText(bad)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	}
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.GenerateAdvice(context.Background(), "p")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}
