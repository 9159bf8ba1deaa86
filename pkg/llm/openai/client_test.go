package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/llm"
	"github.com/lifemate/lifemate-go/pkg/llm/openai"
)

type completionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens int `json:"max_tokens"`
}

// completionServer answers every chat completion with body and records the
// last request it saw.
func completionServer(t *testing.T, body string) (*httptest.Server, *completionRequest) {
	t.Helper()
	seen := &completionRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func newTestClient(t *testing.T, baseURL string) *openai.Client {
	t.Helper()
	client, err := openai.NewClient(zerolog.Nop(), &openai.Config{
		APIKey:  "test-key",
		Model:   "test-model",
		BaseURL: baseURL,
		Tier:    "fast",
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresModel(t *testing.T) {
	_, err := openai.NewClient(zerolog.Nop(), &openai.Config{APIKey: "k", Tier: "fast"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fast")
}

func TestGenerateWithMessages_ReturnsTrimmedContent(t *testing.T) {
	srv, seen := completionServer(t, `{
		"id": "cmpl-1",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "  task \n"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 1, "total_tokens": 13}
	}`)
	client := newTestClient(t, srv.URL)

	out, err := client.GenerateWithMessages(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "classify"},
		{Role: llm.RoleUser, Content: "Task gì?"},
	}, llm.WithMaxTokens(8))

	require.NoError(t, err)
	assert.Equal(t, "task", out)
	assert.Equal(t, "test-model", seen.Model)
	assert.Equal(t, 8, seen.MaxTokens)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, llm.RoleSystem, seen.Messages[0].Role)
	assert.Equal(t, "Task gì?", seen.Messages[1].Content)
}

func TestGenerateWithMessages_EmptyResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "no choices",
			body: `{"id": "cmpl-2", "object": "chat.completion", "choices": []}`,
		},
		{
			name: "blank content",
			body: `{"id": "cmpl-3", "object": "chat.completion",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "  \n "}, "finish_reason": "stop"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := completionServer(t, tt.body)
			client := newTestClient(t, srv.URL)

			out, err := client.Generate(context.Background(), "hello")

			assert.Empty(t, out)
			require.ErrorIs(t, err, llm.ErrEmptyResponse)
			assert.Contains(t, err.Error(), "fast completion")
		})
	}
}

func TestGenerateWithMessages_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit_error"}}`))
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL)

	_, err := client.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.NotErrorIs(t, err, llm.ErrEmptyResponse)
	assert.Contains(t, err.Error(), "rate limited")
}
