package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"factflow/internal/config"
	"factflow/internal/logger"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func newTestOpenAIClient(baseURL string) *OpenAIClient {
	clientConfig := openai.DefaultConfig("test-key")
	clientConfig.BaseURL = baseURL + "/v1"
	clientConfig.HTTPClient = &http.Client{Timeout: 5 * time.Second}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       "gpt-4.1",
		visionModel: "gpt-4o",
		maxRetries:  0,
		logger:      logger.Log,
	}
}

func TestNewOpenAIClient(t *testing.T) {
	cfg := &config.Config{
		OpenAIAPIKey:      "key",
		OpenAIModel:       "gpt-4.1",
		OpenAIVisionModel: "gpt-4o",
	}

	client := NewOpenAIClient(cfg)

	assert.NotNil(t, client)
	assert.Equal(t, "gpt-4.1", client.model)
	assert.Equal(t, "gpt-4o", client.visionModel)
	assert.Equal(t, 3, client.maxRetries)
}

func TestOpenAIClient_Chat_FillsDefaultModel(t *testing.T) {
	var seenModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		seenModel, _ = req["model"].(string)

		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "hello"}},
			},
		})
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	resp, err := client.Chat(context.Background(), openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "hi"},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, "gpt-4.1", seenModel)
	assert.Equal(t, "hello", resp.Choices[0].Message.Content)
}

func TestOpenAIClient_Chat_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{})
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	_, err := client.Chat(context.Background(), openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "hi"},
		},
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAIClient_Chat_RetriesOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"message": "transient failure", "type": "server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "recovered"}},
			},
		})
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	client.maxRetries = 2

	resp, err := client.Chat(context.Background(), openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "hi"},
		},
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "recovered", resp.Choices[0].Message.Content)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "server error",
			err:      &openai.APIError{HTTPStatusCode: 500},
			expected: true,
		},
		{
			name:     "rate limited",
			err:      &openai.APIError{HTTPStatusCode: 429},
			expected: true,
		},
		{
			name:     "bad request",
			err:      &openai.APIError{HTTPStatusCode: 400},
			expected: false,
		},
		{
			name:     "unauthorized",
			err:      &openai.APIError{HTTPStatusCode: 401},
			expected: false,
		},
		{
			name:     "request error with server status",
			err:      &openai.RequestError{HTTPStatusCode: 503},
			expected: true,
		},
		{
			name:     "plain network error",
			err:      errors.New("connection reset"),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}

func TestGetCorrelationIDFromContext(t *testing.T) {
	assert.Equal(t, "", getCorrelationIDFromContext(context.Background()))

	ctx := context.WithValue(context.Background(), "correlation_id", "abc-123")
	assert.Equal(t, "abc-123", getCorrelationIDFromContext(ctx))
}
