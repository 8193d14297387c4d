package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
	"github.com/kindred-social/matchengine/internal/metrics"
)

// LLM is a chat-completion client over the OpenAI-compatible API.
// It implements domain.StructuredCompleter.
type LLM struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// LLMConfig holds the chat-completion provider settings.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// NewLLM creates an OpenAI-compatible chat-completion client.
func NewLLM(cfg *LLMConfig) *LLM {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &LLM{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Complete performs one chat completion and returns the raw text content.
func (l *LLM) Complete(ctx context.Context, req domain.ChatRequest) (domain.ChatResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: req.User,
	})

	temperature := l.temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	maxTokens := l.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	ccr := openai.ChatCompletionRequest{
		Model:       l.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if req.JSONOnly {
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()

	resp, err := l.client.CreateChatCompletion(ctx, ccr)

	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(req.Op, l.model, "error").Inc()
		return domain.ChatResult{}, parseLLMAPIError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(req.Op, l.model, "error").Inc()
		return domain.ChatResult{}, fmt.Errorf("empty completion response: %w", domain.ErrLLMProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(req.Op, l.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(req.Op, l.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(req.Op, l.model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(req.Op, l.model, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return domain.ChatResult{
		Content:      resp.Choices[0].Message.Content,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// CompleteJSON performs a chat completion and decodes the response into out.
// Strict unmarshal first; one best-effort extraction of the first well-formed
// JSON object from surrounding prose before declaring a parse failure.
func (l *LLM) CompleteJSON(ctx context.Context, req domain.ChatRequest, out any) (domain.ChatResult, error) {
	req.JSONOnly = true

	res, err := l.Complete(ctx, req)
	if err != nil {
		return domain.ChatResult{}, err
	}

	cleaned := stripCodeFences(res.Content)
	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return res, nil
	}

	extracted, ok := firstJSONObject(cleaned)
	if !ok {
		return res, domain.NewParseError(res.Content, errors.New("no JSON object in response"))
	}
	if err := json.Unmarshal([]byte(extracted), out); err != nil {
		return res, domain.NewParseError(res.Content, err)
	}
	return res, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (l *LLM) HealthCheck(ctx context.Context) error {
	if _, err := l.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// stripCodeFences removes a surrounding ```json ... ``` block if present.
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

// firstJSONObject extracts the first balanced {...} block, skipping braces
// inside string literals.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// parseLLMAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrLLMProviderError for correct 502 mapping.
func parseLLMAPIError(err error) error {
	wrap := domain.ErrLLMProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("llm API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("llm API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("llm request failed: %w", wrap)
}
