package clients

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"factflow/internal/config"
	"factflow/internal/logger"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// transcribePrompt is the fixed instruction for image text extraction
const transcribePrompt = "Please extract and transcribe all text visible in this image. Return only the extracted text."

// OpenAIClientInterface defines the interface for the OpenAI API client
type OpenAIClientInterface interface {
	Chat(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ExtractTextFromImage(ctx context.Context, imageData []byte, mimeType string) (string, error)
}

// OpenAIClient handles communication with the OpenAI API
type OpenAIClient struct {
	client      *openai.Client
	model       string
	visionModel string
	maxRetries  int
	logger      *logrus.Logger
}

// NewOpenAIClient creates a new OpenAI API client
func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	clientConfig.HTTPClient = &http.Client{
		Timeout: 120 * time.Second, // 2 minute timeout for AI calls
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.OpenAIModel,
		visionModel: cfg.OpenAIVisionModel,
		maxRetries:  3,
		logger:      logger.Log,
	}
}

// Chat makes a chat completion request, filling in the configured model when
// the request does not name one. Retries transient failures with backoff.
func (c *OpenAIClient) Chat(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	start := time.Now()
	correlationID := getCorrelationIDFromContext(ctx)
	c.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"model":          req.Model,
		"messages":       len(req.Messages),
		"tools_offered":  len(req.Tools),
	}).Info("Making OpenAI API call")

	resp, err := c.chatWithRetry(ctx, req)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	if len(resp.Choices) == 0 {
		return openai.ChatCompletionResponse{}, fmt.Errorf("empty response: no choices returned")
	}

	duration := time.Since(start)
	c.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"duration_ms":    duration.Milliseconds(),
		"finish_reason":  resp.Choices[0].FinishReason,
		"tool_calls":     len(resp.Choices[0].Message.ToolCalls),
		"input_tokens":   resp.Usage.PromptTokens,
		"output_tokens":  resp.Usage.CompletionTokens,
	}).Info("OpenAI API response received")

	return resp, nil
}

// chatWithRetry retries the completion call on transient failures
func (c *OpenAIClient) chatWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Don't retry on context cancellation or timeout
		if ctx.Err() != nil {
			return openai.ChatCompletionResponse{}, fmt.Errorf("OpenAI request aborted: %w", lastErr)
		}

		if !isRetryable(err) || attempt == c.maxRetries {
			break
		}

		waitTime := time.Duration(1<<uint(attempt)) * time.Second // Exponential backoff
		c.logger.WithFields(map[string]interface{}{
			"attempt":      attempt + 1,
			"max_attempts": c.maxRetries + 1,
			"wait_seconds": waitTime.Seconds(),
			"error":        err.Error(),
		}).Warn("OpenAI request failed, retrying")

		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, ctx.Err()
		}
	}

	return openai.ChatCompletionResponse{}, fmt.Errorf("OpenAI request failed: %w", lastErr)
}

// isRetryable reports whether an API error is worth retrying
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 500 || apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	// Network-level failures have no status code; retry those too
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return true
}

// ExtractTextFromImage transcribes visible text from an image using the vision model
func (c *OpenAIClient) ExtractTextFromImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))

	correlationID := getCorrelationIDFromContext(ctx)
	c.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"model":          c.visionModel,
		"image_bytes":    len(imageData),
		"mime_type":      mimeType,
	}).Info("Extracting text from image")

	req := openai.ChatCompletionRequest{
		Model:     c.visionModel,
		MaxTokens: 2000,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: transcribePrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: dataURL,
						},
					},
				},
			},
		},
	}

	resp, err := c.chatWithRetry(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response: no choices returned")
	}

	extracted := resp.Choices[0].Message.Content
	c.logger.WithFields(map[string]interface{}{
		"correlation_id":   correlationID,
		"extracted_length": len(extracted),
	}).Info("Text extracted from image")

	return extracted, nil
}

// getCorrelationIDFromContext extracts correlation ID from context
func getCorrelationIDFromContext(ctx context.Context) string {
	if id := ctx.Value("correlation_id"); id != nil {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	return ""
}
