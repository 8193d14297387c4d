// Package optimize rewrites a raw matching request into retrieval-friendly
// text. The rewrite expands vague wishes into concrete, searchable traits
// while preserving every hard constraint the user stated. On any model
// failure the original text passes through unchanged.
package optimize

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
	"github.com/kindred-social/matchengine/internal/metrics"
	"github.com/kindred-social/matchengine/internal/retry"
)

const systemPrompt = `You rewrite people-matching requests for a profile retrieval engine.
Rewrite the request as a dense third-person description of the ideal person,
in the same language as the request. Keep every explicit constraint (age,
location, occupation, habits). Expand vague wishes into concrete traits.
Do not invent constraints the user did not imply. Keep it under 120 words.

Respond with JSON only:
{"optimized": "...", "emphasis": ["up to five traits that matter most"]}`

type optimizeReply struct {
	Optimized string   `json:"optimized"`
	Emphasis  []string `json:"emphasis"`
}

// Result carries the rewritten query and the traits the model chose to
// emphasize. Emphasis is advisory and may be empty.
type Result struct {
	Text     string
	Emphasis []string
}

// Service rewrites matching queries.
type Service struct {
	llm      Completer
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

// New creates an optimization service.
func New(llm Completer, attempts int, backoff time.Duration, logger *zap.Logger) *Service {
	return &Service{llm: llm, attempts: attempts, backoff: backoff, logger: logger}
}

// Optimize rewrites text for retrieval. It never fails: a provider or
// parse error returns the original text verbatim.
func (s *Service) Optimize(ctx context.Context, text string) Result {
	var reply optimizeReply
	err := retry.Do(ctx, s.attempts, s.backoff, func(ctx context.Context) error {
		_, err := s.llm.CompleteJSON(ctx, domain.ChatRequest{
			Op:       domain.OpOptimize,
			System:   systemPrompt,
			User:     text,
			JSONOnly: true,
		}, &reply)
		return err
	})
	if err != nil {
		s.logger.Warn("query optimization degraded to passthrough", zap.Error(err))
		metrics.LLMFallbacksTotal.WithLabelValues(domain.OpOptimize).Inc()
		return Result{Text: text}
	}

	optimized := strings.TrimSpace(reply.Optimized)
	if optimized == "" {
		metrics.LLMFallbacksTotal.WithLabelValues(domain.OpOptimize).Inc()
		return Result{Text: text}
	}

	return Result{Text: optimized, Emphasis: reply.Emphasis}
}

// Rewrite adapts Optimize to a plain string result for composition.
func (s *Service) Rewrite(ctx context.Context, text string) string {
	return s.Optimize(ctx, text).Text
}
