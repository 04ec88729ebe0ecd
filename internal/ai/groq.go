package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const groqURL = "https://api.groq.com/openai/v1/chat/completions"

// OpenAIProvider talks to any OpenAI-compatible chat-completions endpoint.
// Groq is the default.
type OpenAIProvider struct {
	name       string
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewOpenAIProvider creates a chat-completions provider. name shows up in
// logs and ProviderError; empty name and endpoint mean Groq.
func NewOpenAIProvider(name, apiKey, endpoint string, timeout time.Duration) *OpenAIProvider {
	if name == "" {
		name = "groq"
	}
	if endpoint == "" {
		endpoint = groqURL
	}
	return &OpenAIProvider{
		name:       name,
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OpenAIProvider) Name() string { return c.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one chat completion. Schema-constrained requests use JSON mode.
func (c *OpenAIProvider) Complete(ctx context.Context, r Request) (string, error) {
	reqBody := chatRequest{
		Model:       r.Model,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	}
	if r.System != "" {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: "system", Content: r.System})
	}
	reqBody.Messages = append(reqBody.Messages, chatMessage{Role: "user", Content: r.Prompt})
	if r.Schema != nil {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Provider:   c.Name(),
			StatusCode: resp.StatusCode,
			Message:    truncate(string(bodyBytes), 300),
		}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if chatResp.Error != nil {
		return "", &ProviderError{Provider: c.Name(), StatusCode: resp.StatusCode, Message: chatResp.Error.Message}
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from %s", c.Name())
	}

	return chatResp.Choices[0].Message.Content, nil
}

// cleanMarkdownJSON removes backticks and "json" prefix if the model wraps its answer
func cleanMarkdownJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
