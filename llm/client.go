package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ioclens/core"
	"ioclens/metrics"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultModel is the chat model used when none is configured
const DefaultModel = openai.GPT4o

// Config configures the OpenAI client
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client implements core.Reasoner on the OpenAI chat completions API in JSON mode
type Client struct {
	api    *openai.Client
	model  string
	logger *zap.SugaredLogger
}

var _ core.Reasoner = (*Client)(nil)

// NewClient creates a client. An empty BaseURL uses the public OpenAI endpoint.
func NewClient(cfg Config, logger *zap.SugaredLogger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		model:  model,
		logger: logger,
	}
}

// ExtractIndicators asks the model for the IOCs in content and returns its raw JSON answer
func (c *Client) ExtractIndicators(ctx context.Context, content string) ([]byte, error) {
	return c.complete(ctx, "extract", ExtractionInstruction, extractionUserPrefix+content)
}

// GenerateQueries asks the model for SIEM queries covering indicators and returns its raw JSON answer
func (c *Client) GenerateQueries(ctx context.Context, indicators []core.Indicator) ([]byte, error) {
	payload, err := json.Marshal(indicators)
	if err != nil {
		return nil, fmt.Errorf("failed to encode indicators: %w", err)
	}
	return c.complete(ctx, "queries", QuerySynthesisInstruction, queriesUserPrefix+string(payload))
}

func (c *Client) complete(ctx context.Context, task, system, user string) ([]byte, error) {
	op := "llm." + task
	start := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	metrics.LLMRequestDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.LLMRequests.WithLabelValues(task, "error").Inc()
		c.logger.Errorw("LLM request failed", "task", task, "model", c.model, "error", err)
		return nil, core.NewUpstreamError(op, describeAPIError(err), err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.LLMRequests.WithLabelValues(task, "empty").Inc()
		return nil, core.NewUpstreamError(op, "LLM returned no content", nil)
	}

	metrics.LLMRequests.WithLabelValues(task, "success").Inc()
	c.logger.Debugw("LLM request completed",
		"task", task,
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration", time.Since(start))

	return []byte(resp.Choices[0].Message.Content), nil
}

// describeAPIError keeps the upstream status and message without the request dump
func describeAPIError(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("LLM API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("LLM API request failed (status %d)", reqErr.HTTPStatusCode)
	}
	return "LLM API unavailable"
}
