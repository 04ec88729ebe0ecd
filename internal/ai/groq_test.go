package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"found\":false}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("", "secret", srv.URL, 5*time.Second)
	assert.Equal(t, "groq", p.Name())
	out, err := p.Complete(context.Background(), Request{
		Model:       "llama",
		System:      "sys",
		Prompt:      "hello",
		Temperature: 0.1,
		MaxTokens:   500,
		Schema:      careersSchema,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"found":false}`, out)

	assert.Equal(t, "llama", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[1].Content)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestOpenAIProvider_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("openai", "k", srv.URL, time.Second).Complete(context.Background(), Request{Prompt: "x"})

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.Equal(t, "openai", pe.Provider)
	assert.Equal(t, KindRateLimited, errorKind(err))
}

func TestCleanMarkdownJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanMarkdownJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownJSON("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownJSON(`  {"a":1}  `))
}
