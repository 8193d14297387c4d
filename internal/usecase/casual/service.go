// Package casual handles short-lived "join me" requests: optimize the
// submission, store it as a replaceable per-user record, and try to pair
// it with the closest live request in the same pass. A reaper removes
// records whose owners have gone quiet.
package casual

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
	"github.com/kindred-social/matchengine/internal/metrics"
	"github.com/kindred-social/matchengine/internal/notify"
	"github.com/kindred-social/matchengine/internal/retry"
)

const optimizePrompt = `You process "looking for company" requests for a social app.
Extract the activity, the time hint and the location hint, and rewrite the
request as one dense sentence suitable for similarity search, in the same
language as the request. Missing hints stay empty.

Respond with JSON only:
{"optimized": "...", "activity": "...", "time_hint": "...", "location_hint": "..."}`

const matchPrompt = `You pick the best companion for a "looking for company" request.
Given the request and nearby live requests, pick the single best fit, or
none if nobody fits. should_contact is true only when the two requests are
compatible enough that reaching out makes sense. Write all text in the
language of the request; receiver_notification addresses the picked person.

Respond with JSON only:
{"user_id": "", "score": 0.0-1.0, "reason": "...",
 "receiver_notification": "...", "should_contact": false}`

// contactThreshold is the similarity above which a degraded (non-model)
// selection still recommends contact.
const contactThreshold = 0.5

type optimizeReply struct {
	Optimized    string `json:"optimized"`
	Activity     string `json:"activity"`
	TimeHint     string `json:"time_hint"`
	LocationHint string `json:"location_hint"`
}

type matchReply struct {
	UserID               string  `json:"user_id"`
	Score                float64 `json:"score"`
	Reason               string  `json:"reason"`
	ReceiverNotification string  `json:"receiver_notification"`
	ShouldContact        bool    `json:"should_contact"`
}

// Service runs the casual request pipeline.
type Service struct {
	repo     Repository
	llm      Completer
	embed    Embedder
	breadth  int
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a casual request service. breadth is the nearest-neighbour
// search width used when pairing submissions.
func New(repo Repository, llm Completer, embed Embedder, breadth, attempts int, backoff time.Duration, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		llm:      llm,
		embed:    embed,
		breadth:  breadth,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit stores userID's request, replacing any prior one, and attempts
// to pair it with an existing request in the same pass. Optimization and
// pairing degrade gracefully; only embedding or storage failures fail
// the submission.
func (s *Service) Submit(ctx context.Context, userID, text, lang string) (domain.SubmitReceipt, error) {
	req := s.optimize(ctx, userID, text)

	embResult, err := s.embed.Embed(ctx, req.OptimizedText)
	if err != nil {
		return domain.SubmitReceipt{}, fmt.Errorf("vectorize casual request: %w", err)
	}

	if err := s.repo.Upsert(ctx, req, embResult.Embedding); err != nil {
		return domain.SubmitReceipt{}, fmt.Errorf("store casual request: %w", err)
	}

	receipt := domain.SubmitReceipt{Stored: true, OptimizedText: req.OptimizedText}

	candidates, err := s.repo.SearchNearest(ctx, embResult.Embedding, s.breadth, []string{userID})
	if err != nil {
		s.logger.Warn("casual pairing search failed", zap.Error(err))
		return receipt, nil
	}
	if len(candidates) == 0 {
		return receipt, nil
	}

	receipt.Match = s.pick(ctx, req, candidates, lang)
	return receipt, nil
}

// optimize extracts structure from the raw text. On model failure the
// original text passes through unchanged.
func (s *Service) optimize(ctx context.Context, userID, text string) domain.CasualRequest {
	req := domain.CasualRequest{
		UserID:         userID,
		OriginalText:   text,
		OptimizedText:  text,
		LastActivityAt: s.now(),
	}

	if s.llm == nil {
		return req
	}

	var reply optimizeReply
	err := retry.Do(ctx, s.attempts, s.backoff, func(ctx context.Context) error {
		_, err := s.llm.CompleteJSON(ctx, domain.ChatRequest{
			Op:       domain.OpOptimize,
			System:   optimizePrompt,
			User:     text,
			JSONOnly: true,
		}, &reply)
		return err
	})
	if err != nil {
		s.logger.Warn("casual optimization degraded to passthrough", zap.Error(err))
		metrics.LLMFallbacksTotal.WithLabelValues(domain.OpOptimize).Inc()
		return req
	}

	if optimized := strings.TrimSpace(reply.Optimized); optimized != "" {
		req.OptimizedText = optimized
	}
	req.Activity = reply.Activity
	req.TimeHint = reply.TimeHint
	req.LocationHint = reply.LocationHint
	return req
}

// pick selects the best companion among candidates. On model failure the
// top candidate by similarity is used with templated text.
func (s *Service) pick(ctx context.Context, req domain.CasualRequest, candidates []domain.Candidate, lang string) *domain.CasualMatch {
	if s.llm == nil {
		return fallbackMatch(candidates, req.Activity, lang)
	}

	var b strings.Builder
	b.WriteString("Request: ")
	b.WriteString(req.OptimizedText)
	b.WriteString("\n\nNearby requests:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- id=%s similarity=%.3f\n  %s\n", c.UserID, c.Score, c.ProfileText)
	}
	b.WriteString("\nReturn an empty user_id if nobody fits.")

	var reply matchReply
	err := retry.Do(ctx, s.attempts, s.backoff, func(ctx context.Context) error {
		_, err := s.llm.CompleteJSON(ctx, domain.ChatRequest{
			Op:       domain.OpCasualMatch,
			System:   matchPrompt,
			User:     b.String(),
			JSONOnly: true,
		}, &reply)
		return err
	})
	if err != nil {
		s.logger.Warn("casual pairing degraded to similarity", zap.Error(err))
		metrics.LLMFallbacksTotal.WithLabelValues(domain.OpCasualMatch).Inc()
		return fallbackMatch(candidates, req.Activity, lang)
	}

	if reply.UserID == "" {
		return nil
	}
	for _, c := range candidates {
		if c.UserID == reply.UserID {
			m := &domain.CasualMatch{
				UserID:               reply.UserID,
				Score:                clamp01(reply.Score),
				Reason:               strings.TrimSpace(reply.Reason),
				ReceiverNotification: strings.TrimSpace(reply.ReceiverNotification),
				ShouldContact:        reply.ShouldContact,
			}
			if m.ReceiverNotification == "" {
				m.ReceiverNotification = notify.CasualNotification(lang, req.Activity)
			}
			return m
		}
	}

	s.logger.Warn("model picked unknown casual candidate", zap.String("user_id", reply.UserID))
	return fallbackMatch(candidates, req.Activity, lang)
}

// fallbackMatch picks the closest candidate deterministically: highest
// similarity, ties broken by id.
func fallbackMatch(candidates []domain.Candidate, activity, lang string) *domain.CasualMatch {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score || (c.Score == best.Score && c.UserID < best.UserID) {
			best = c
		}
	}
	return &domain.CasualMatch{
		UserID:               best.UserID,
		Score:                best.Score,
		Reason:               notify.MatchReason(lang),
		ReceiverNotification: notify.CasualNotification(lang, activity),
		ShouldContact:        best.Score >= contactThreshold,
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
