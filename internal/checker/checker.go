package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"factflow/internal/clients"
	"factflow/internal/config"
	"factflow/internal/logger"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// noTextConclusion is returned whenever the claim body is empty after extraction
const noTextConclusion = "No text found to fact-check."

const systemPrompt = `You are an expert fact-checker.
1. Use the search_web tool when you need to verify claims.
2. Evaluate multiple sources.
3. Give a verdict (TRUE, FALSE, UNVERIFIABLE, ERROR).
4. Confidence (0.0-1.0).
5. Write a claim restatement, a short conclusion, supporting and counter evidence, and cite sources.`

const finalPrompt = `Now summarize your findings as a single JSON object with exactly these fields:
- verdict: "TRUE", "FALSE", "UNVERIFIABLE", or "ERROR"
- confidence: number between 0.0 and 1.0
- claim: the claim that was checked, restated
- conclusion: 1-2 sentence summary of the finding
- evidence: {"supporting": [list of strings], "counter": [list of strings]}
- sources: [{"title": string, "url": string}]
Respond with JSON only.`

// searchWebTool is the single capability offered to the reasoning backend
var searchWebTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        "search_web",
		Description: "Search the web for current information to verify facts.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "The search query to find relevant information on the web"
				}
			},
			"required": ["query"]
		}`),
	},
}

// CheckerInterface defines the operations of the verification orchestrator
type CheckerInterface interface {
	CheckText(ctx context.Context, text string) Record
	CheckImage(ctx context.Context, imageData []byte, mimeType string) Record
	CheckDocument(ctx context.Context, document []byte) Record
	CheckURL(ctx context.Context, url string) Record
}

// Checker orchestrates a bounded tool-calling conversation with the reasoning
// backend and coerces the answer into a normalized Record. Safe for concurrent
// use: all state is per-call.
type Checker struct {
	openaiClient clients.OpenAIClientInterface
	tavilyClient clients.TavilyClientInterface
	maxRounds    int
	logger       *logrus.Logger
}

// NewChecker creates a new verification orchestrator
func NewChecker(cfg *config.Config, openaiClient clients.OpenAIClientInterface, tavilyClient clients.TavilyClientInterface) *Checker {
	return &Checker{
		openaiClient: openaiClient,
		tavilyClient: tavilyClient,
		maxRounds:    cfg.MaxSearchRounds,
		logger:       logger.Log,
	}
}

// CheckText verifies the factual accuracy of a claim body. It never returns
// an error: faults are collapsed into a Record with verdict ERROR, and empty
// input degrades to UNVERIFIABLE without touching the backend.
func (c *Checker) CheckText(ctx context.Context, text string) Record {
	claim := strings.TrimSpace(text)
	if claim == "" {
		return c.unverifiableRecord(claim, noTextConclusion)
	}

	record, err := c.verify(ctx, claim)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"correlation_id": correlationID(ctx),
			"fault_kind":     string(KindOf(err)),
			"error":          err.Error(),
		}).Error("Fact-check failed")
		return c.errorRecord(claim, err)
	}

	return record
}

// verify runs the bounded tool-calling loop and returns a typed fault on
// failure. Callers outside this package go through CheckText instead.
func (c *Checker) verify(ctx context.Context, claim string) (Record, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("Fact-check this claim:\n\n%q", claim),
		},
	}

	// Negotiation loop: the backend may request web lookups each round. The
	// round budget guarantees termination even when the backend asks for a
	// search every time; once exhausted we force the summary turn.
	for round := 0; round < c.maxRounds; round++ {
		resp, err := c.openaiClient.Chat(ctx, openai.ChatCompletionRequest{
			Messages: messages,
			Tools:    []openai.Tool{searchWebTool},
		})
		if err != nil {
			return Record{}, NewFault(FaultBackend, "reasoning backend call failed", err)
		}

		message := resp.Choices[0].Message
		messages = append(messages, message)

		if len(message.ToolCalls) == 0 {
			break
		}

		for _, toolCall := range message.ToolCalls {
			toolMessage, err := c.executeToolCall(ctx, toolCall)
			if err != nil {
				return Record{}, err
			}
			messages = append(messages, toolMessage)
		}

		if round == c.maxRounds-1 {
			c.logger.WithFields(map[string]interface{}{
				"correlation_id": correlationID(ctx),
				"max_rounds":     c.maxRounds,
			}).Warn("Search round budget exhausted, forcing final summary")
		}
	}

	// Final turn: demand machine-parseable output with tool calling disabled
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: finalPrompt,
	})

	finalResp, err := c.openaiClient.Chat(ctx, openai.ChatCompletionRequest{
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Record{}, NewFault(FaultBackend, "final summary call failed", err)
	}

	return c.parseFinalReply(claim, finalResp.Choices[0].Message.Content)
}

// toolOutput is the payload fed back to the backend for one search_web call
type toolOutput struct {
	Results []toolSearchResult `json:"results"`
	Answer  string             `json:"answer"`
	Error   string             `json:"error,omitempty"`
}

type toolSearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// executeToolCall runs one backend-requested search and wraps the outcome in
// a tool message tagged with the originating call. A malformed or unknown
// request from the backend is fed back as an error annotation, but a failing
// search adapter is a backend fault and aborts the conversation.
func (c *Checker) executeToolCall(ctx context.Context, toolCall openai.ToolCall) (openai.ChatCompletionMessage, error) {
	output := toolOutput{Results: []toolSearchResult{}}

	if toolCall.Function.Name != "search_web" {
		output.Error = fmt.Sprintf("unknown tool %q", toolCall.Function.Name)
	} else {
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil || args.Query == "" {
			output.Error = "missing or malformed query argument"
		} else {
			var err error
			output, err = c.searchWeb(ctx, args.Query)
			if err != nil {
				return openai.ChatCompletionMessage{}, err
			}
		}
	}

	content, err := json.Marshal(output)
	if err != nil {
		content = []byte(`{"results":[],"answer":"","error":"failed to encode search results"}`)
	}

	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    string(content),
		Name:       toolCall.Function.Name,
		ToolCallID: toolCall.ID,
	}, nil
}

// searchWeb executes a single web query. An adapter failure is a terminal
// backend fault, not a result the model gets to reason about.
func (c *Checker) searchWeb(ctx context.Context, query string) (toolOutput, error) {
	c.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID(ctx),
		"query":          query,
	}).Info("Searching web for claim verification")

	resp, err := c.tavilyClient.Search(ctx, query)
	if err != nil {
		return toolOutput{}, NewFault(FaultBackend, "web search failed", err)
	}

	results := make([]toolSearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, toolSearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
		})
	}

	return toolOutput{Results: results, Answer: resp.Answer}, nil
}

// finalReply mirrors the JSON structure demanded by the final prompt
type finalReply struct {
	Verdict    string   `json:"verdict"`
	Confidence float64  `json:"confidence"`
	Claim      string   `json:"claim"`
	Conclusion string   `json:"conclusion"`
	Evidence   Evidence `json:"evidence"`
	Sources    []Source `json:"sources"`
}

// parseFinalReply coerces the backend's final reply into a Record
func (c *Checker) parseFinalReply(claim, content string) (Record, error) {
	payload := stripCodeFences(content)

	var reply finalReply
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return Record{}, NewFault(FaultParse, "final reply is not well-formed JSON", err)
	}

	record := Record{
		Claim:      reply.Claim,
		Conclusion: reply.Conclusion,
		Confidence: ClampConfidence(reply.Confidence),
		Verdict:    ParseVerdict(reply.Verdict),
		Evidence:   reply.Evidence,
		Sources:    reply.Sources,
		Timestamp:  time.Now().UTC(),
	}

	if record.Claim == "" {
		record.Claim = claim
	}
	if record.Conclusion == "" {
		record.Conclusion = "Unable to verify"
	}
	if record.Verdict == VerdictError && !Verdict(strings.ToUpper(reply.Verdict)).Valid() {
		// Missing or out-of-set verdict counts as an unparseable reply
		record.Confidence = 0.0
	}
	if record.Evidence.Supporting == nil {
		record.Evidence.Supporting = []string{}
	}
	if record.Evidence.Counter == nil {
		record.Evidence.Counter = []string{}
	}
	if record.Sources == nil {
		record.Sources = []Source{}
	}

	return record, nil
}

// unverifiableRecord builds the degenerate record for empty claim bodies
func (c *Checker) unverifiableRecord(claim, conclusion string) Record {
	return Record{
		Claim:      claim,
		Conclusion: conclusion,
		Confidence: 0.0,
		Verdict:    VerdictUnverifiable,
		Evidence:   Evidence{Supporting: []string{}, Counter: []string{}},
		Sources:    []Source{},
		Timestamp:  time.Now().UTC(),
	}
}

// errorRecord builds the terminal record for an unrecoverable fault
func (c *Checker) errorRecord(claim string, err error) Record {
	return Record{
		Claim:      claim,
		Conclusion: fmt.Sprintf("Error during fact-checking: %s", detail(err)),
		Confidence: 0.0,
		Verdict:    VerdictError,
		Evidence:   Evidence{Supporting: []string{}, Counter: []string{}},
		Sources:    []Source{},
		Timestamp:  time.Now().UTC(),
	}
}

// stripCodeFences removes a surrounding markdown code fence if present
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// correlationID extracts the request correlation ID from context
func correlationID(ctx context.Context) string {
	if id := ctx.Value("correlation_id"); id != nil {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
