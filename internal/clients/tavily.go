package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"factflow/internal/config"
	"factflow/internal/logger"

	"github.com/sirupsen/logrus"
)

// TavilyClientInterface defines the interface for the Tavily API client
type TavilyClientInterface interface {
	Search(ctx context.Context, query string) (*TavilySearchResponse, error)
	Extract(ctx context.Context, url string) (string, error)
}

// TavilyClient handles communication with the Tavily API for web search
// and raw URL content extraction
type TavilyClient struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
	logger     *logrus.Logger
}

// TavilySearchRequest represents a search request to the Tavily API
type TavilySearchRequest struct {
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

// TavilySearchResponse represents a search response from the Tavily API
type TavilySearchResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer"`
	Results []TavilyResult `json:"results"`
}

// TavilyResult represents a single search result
type TavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// TavilyExtractRequest represents a URL extraction request
type TavilyExtractRequest struct {
	URLs []string `json:"urls"`
}

// TavilyExtractResponse represents a URL extraction response
type TavilyExtractResponse struct {
	Results []TavilyExtractResult `json:"results"`
	Failed  []TavilyFailedResult  `json:"failed_results"`
}

// TavilyExtractResult represents extracted content for one URL
type TavilyExtractResult struct {
	URL        string `json:"url"`
	RawContent string `json:"raw_content"`
}

// TavilyFailedResult represents a URL that could not be extracted
type TavilyFailedResult struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// TavilyError represents an error response from the Tavily API
type TavilyError struct {
	Detail struct {
		Error string `json:"error"`
	} `json:"detail"`
}

func (e *TavilyError) Error() string {
	return fmt.Sprintf("tavily API error: %s", e.Detail.Error)
}

// NewTavilyClient creates a new Tavily API client
func NewTavilyClient(cfg *config.Config) *TavilyClient {
	return &TavilyClient{
		apiKey:     cfg.TavilyAPIKey,
		baseURL:    "https://api.tavily.com",
		maxResults: cfg.SearchMaxResults,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.Log,
	}
}

// Search performs an advanced-depth web search, returning up to the configured
// number of ranked results plus an optional synthesized answer
func (c *TavilyClient) Search(ctx context.Context, query string) (*TavilySearchResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("Tavily API key not configured")
	}

	start := time.Now()
	correlationID := getCorrelationIDFromContext(ctx)

	c.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"query":          query,
		"max_results":    c.maxResults,
	}).Info("Performing Tavily web search")

	request := TavilySearchRequest{
		Query:         query,
		SearchDepth:   "advanced",
		MaxResults:    c.maxResults,
		IncludeAnswer: true,
	}

	responseBody, err := c.post(ctx, "/search", request)
	if err != nil {
		return nil, err
	}

	var searchResp TavilySearchResponse
	if err := json.Unmarshal(responseBody, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	duration := time.Since(start)
	c.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"duration_ms":    duration.Milliseconds(),
		"results_count":  len(searchResp.Results),
		"has_answer":     searchResp.Answer != "",
	}).Info("Tavily search completed")

	return &searchResp, nil
}

// Extract fetches the raw textual content of a single URL
func (c *TavilyClient) Extract(ctx context.Context, url string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("Tavily API key not configured")
	}

	correlationID := getCorrelationIDFromContext(ctx)
	c.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"url":            url,
	}).Info("Extracting URL content via Tavily")

	responseBody, err := c.post(ctx, "/extract", TavilyExtractRequest{URLs: []string{url}})
	if err != nil {
		return "", err
	}

	var extractResp TavilyExtractResponse
	if err := json.Unmarshal(responseBody, &extractResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(extractResp.Results) == 0 {
		if len(extractResp.Failed) > 0 {
			return "", fmt.Errorf("extraction failed for %s: %s", url, extractResp.Failed[0].Error)
		}
		return "", fmt.Errorf("no content extracted for %s", url)
	}

	return extractResp.Results[0].RawContent, nil
}

// post sends a JSON request to the Tavily API and returns the raw response body
func (c *TavilyClient) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr TavilyError
		if json.Unmarshal(responseBody, &apiErr) == nil && apiErr.Detail.Error != "" {
			return nil, fmt.Errorf("API error (status %d): %w", resp.StatusCode, &apiErr)
		}
		return nil, fmt.Errorf("unknown API error (status %d)", resp.StatusCode)
	}

	return responseBody, nil
}
