// Package classify routes an incoming message to one of the four
// conversation intents using a structured chat completion. The service
// never fails the request: any provider or parse error degrades to the
// chat intent with zero confidence so the caller can still respond.
package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
	"github.com/kindred-social/matchengine/internal/domain/intent"
	"github.com/kindred-social/matchengine/internal/metrics"
	"github.com/kindred-social/matchengine/internal/retry"
)

const systemPrompt = `You are the intent router of a people-matching assistant.
Classify the user message into exactly one intent:

- "search": the user describes a kind of person they want to meet or be matched with.
- "inquiry": the user asks about a specific person already shown to them.
- "casual": the user wants company for a concrete activity soon (eat, sports, movie, trip).
- "chat": anything else, including greetings and small talk.

If a message carries both a lasting partner description and an immediate
activity request, classify it as "search".

Respond with JSON only:
{"intent": "...", "confidence": 0.0-1.0, "rationale": "one short sentence"}`

type classifyReply struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Service classifies messages by intent.
type Service struct {
	llm      Completer
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

// New creates a classification service.
func New(llm Completer, attempts int, backoff time.Duration, logger *zap.Logger) *Service {
	return &Service{llm: llm, attempts: attempts, backoff: backoff, logger: logger}
}

// Classify determines the intent of text. referencedID, when set, names
// a profile the conversation is currently focused on and biases the
// model toward the inquiry intent. requesterContext, when set, gives the
// model a short summary of who is asking.
func (s *Service) Classify(ctx context.Context, text, referencedID, requesterContext string) intent.Classification {
	var user strings.Builder
	if referencedID != "" {
		fmt.Fprintf(&user, "A profile (%s) is currently on screen.\n", referencedID)
	}
	if requesterContext != "" {
		fmt.Fprintf(&user, "About the requester: %s\n", requesterContext)
	}
	user.WriteString("Message: ")
	user.WriteString(text)

	var reply classifyReply
	err := retry.Do(ctx, s.attempts, s.backoff, func(ctx context.Context) error {
		_, err := s.llm.CompleteJSON(ctx, domain.ChatRequest{
			Op:       domain.OpClassify,
			System:   systemPrompt,
			User:     user.String(),
			JSONOnly: true,
		}, &reply)
		return err
	})
	if err != nil {
		s.logger.Warn("intent classification degraded to chat", zap.Error(err))
		metrics.LLMFallbacksTotal.WithLabelValues(domain.OpClassify).Inc()
		return intent.Classification{Intent: intent.Chat, Confidence: 0}
	}

	parsed, err := intent.Parse(reply.Intent)
	if err != nil {
		s.logger.Warn("model returned unknown intent", zap.String("intent", reply.Intent))
		metrics.LLMFallbacksTotal.WithLabelValues(domain.OpClassify).Inc()
		return intent.Classification{Intent: intent.Chat, Confidence: 0}
	}

	return intent.Classification{
		Intent:     parsed,
		Confidence: clamp01(reply.Confidence),
		Rationale:  reply.Rationale,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
