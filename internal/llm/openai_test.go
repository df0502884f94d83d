package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAI_Generate_SendsPromptAndParsesUsage(t *testing.T) {
	var (
		gotAuth string
		gotPath string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "fixed code"}}],
			"usage": {"prompt_tokens": 1000, "completion_tokens": 500, "total_tokens": 1500}
		}`))
	}))
	t.Cleanup(srv.Close)

	g, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "test-api-key", SystemPrompt: "be brief"}, srv.Client())
	require.NoError(t, err)

	resp, err := g.Generate(context.Background(), Request{Model: "gpt-4o-mini", Prompt: "fix it", MaxTokens: 2000})
	require.NoError(t, err)
	assert.Equal(t, "fixed code", resp.Text)
	assert.Equal(t, Usage{InputTokens: 1000, OutputTokens: 500}, resp.Usage)

	assert.Equal(t, "Bearer test-api-key", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	assert.EqualValues(t, 2000, gotBody["max_completion_tokens"])
	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "fix it", messages[1].(map[string]any)["content"])
}

func TestOpenAI_Generate_WrapsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "requests"}}`))
	}))
	t.Cleanup(srv.Close)

	g, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "k"}, srv.Client())
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), Request{Model: "gpt-4o", Prompt: "x"})
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "openai", genErr.Provider)
	assert.False(t, genErr.Timeout)
}

func TestOpenAI_Generate_TimeoutThroughRouter(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	g, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKey: "k"}, srv.Client())
	require.NoError(t, err)

	_, err = NewRouter(g, 50*time.Millisecond).Generate(context.Background(), Request{Model: "gpt-4o", Prompt: "x"})
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.True(t, genErr.Timeout)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	t.Setenv("CARETAKER_TEST_MISSING_KEY", "")

	_, err := NewOpenAI(OpenAIConfig{APIKeyEnv: "CARETAKER_TEST_MISSING_KEY"}, nil)
	require.Error(t, err)
}
