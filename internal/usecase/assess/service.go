// Package assess judges whether a retrieved candidate set satisfies the
// request well enough to stop widening the search, and turns the winners
// into user-facing match results. A failing model degrades to a
// deterministic similarity-ordered selection that never asks for another
// tier.
package assess

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
	"github.com/kindred-social/matchengine/internal/metrics"
	"github.com/kindred-social/matchengine/internal/retry"
)

const systemPrompt = `You are the quality gate of a people-matching engine.
Given a request and retrieved candidate profiles, judge how well the set
satisfies the request and pick the best matches.

Rules:
- overall_quality is one of: excellent, good, fair, poor.
- should_continue is true only when widening the search is likely to find
  clearly better people than the current set.
- Select at most %d candidates, best first. Only use the listed candidate ids.
- match_score is 1-10. key_strengths lists 1-3 short traits.
- match_reason addresses the requester. receiver_notification addresses the
  selected person, invitingly, without revealing the requester's identity.
- Write all text in the language of the request.

Respond with JSON only:
{"overall_quality": "...", "should_continue": true,
 "analysis": "one or two sentences",
 "intro": "one sentence presenting the selection to the requester",
 "selected": [{"user_id": "...", "match_score": 8,
   "key_strengths": ["..."], "match_reason": "...",
   "receiver_notification": "..."}]}`

type selectedReply struct {
	UserID               string   `json:"user_id"`
	MatchScore           float64  `json:"match_score"`
	KeyStrengths         []string `json:"key_strengths"`
	MatchReason          string   `json:"match_reason"`
	ReceiverNotification string   `json:"receiver_notification"`
}

type assessReply struct {
	OverallQuality string          `json:"overall_quality"`
	ShouldContinue bool            `json:"should_continue"`
	Analysis       string          `json:"analysis"`
	Intro          string          `json:"intro"`
	Selected       []selectedReply `json:"selected"`
}

// Service runs quality assessment over candidate sets.
type Service struct {
	llm         Completer
	maxSelected int
	attempts    int
	backoff     time.Duration
	logger      *zap.Logger
}

// New creates an assessment service. maxSelected caps the number of
// matches returned per assessment.
func New(llm Completer, maxSelected, attempts int, backoff time.Duration, logger *zap.Logger) *Service {
	return &Service{
		llm:         llm,
		maxSelected: maxSelected,
		attempts:    attempts,
		backoff:     backoff,
		logger:      logger,
	}
}

// Assess grades candidates against the query. It never fails: on model
// error it falls back to a similarity-ordered selection with
// ShouldContinue false. lang selects the template language for degraded
// output.
func (s *Service) Assess(ctx context.Context, query string, candidates []domain.Candidate, lang string) domain.Assessment {
	if len(candidates) == 0 {
		return domain.Assessment{
			OverallQuality: domain.QualityPoor,
			ShouldContinue: true,
		}
	}

	var reply assessReply
	err := retry.Do(ctx, s.attempts, s.backoff, func(ctx context.Context) error {
		_, err := s.llm.CompleteJSON(ctx, domain.ChatRequest{
			Op:       domain.OpAssess,
			System:   fmt.Sprintf(systemPrompt, s.maxSelected),
			User:     buildUserPrompt(query, candidates),
			JSONOnly: true,
		}, &reply)
		return err
	})
	if err != nil {
		s.logger.Warn("assessment degraded to similarity ordering", zap.Error(err))
		metrics.LLMFallbacksTotal.WithLabelValues(domain.OpAssess).Inc()
		return Fallback(candidates, lang)
	}

	return s.validate(reply, candidates, lang)
}

// validate normalizes a model reply: unknown ids are dropped, scores are
// clamped to 1-10, missing text is filled from templates and the
// selection is capped and deterministically ordered.
func (s *Service) validate(reply assessReply, candidates []domain.Candidate, lang string) domain.Assessment {
	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.UserID] = true
	}

	selected := make([]domain.MatchResult, 0, len(reply.Selected))
	seen := make(map[string]bool, len(reply.Selected))
	for _, sel := range reply.Selected {
		if !known[sel.UserID] || seen[sel.UserID] {
			continue
		}
		seen[sel.UserID] = true
		selected = append(selected, fillTemplates(domain.MatchResult{
			UserID:               sel.UserID,
			MatchScore:           clampScore(sel.MatchScore),
			KeyStrengths:         sel.KeyStrengths,
			MatchReason:          strings.TrimSpace(sel.MatchReason),
			ReceiverNotification: strings.TrimSpace(sel.ReceiverNotification),
		}, lang))
	}

	sortSelected(selected)
	if len(selected) > s.maxSelected {
		selected = selected[:s.maxSelected]
	}

	if len(selected) == 0 {
		// A verdict with no usable selection cannot stop the search.
		return domain.Assessment{
			OverallQuality: domain.QualityPoor,
			ShouldContinue: true,
			Analysis:       reply.Analysis,
		}
	}

	return domain.Assessment{
		OverallQuality: domain.ParseQuality(reply.OverallQuality),
		ShouldContinue: reply.ShouldContinue,
		Selected:       selected,
		Analysis:       reply.Analysis,
		Intro:          reply.Intro,
	}
}

func buildUserPrompt(query string, candidates []domain.Candidate) string {
	var b strings.Builder
	b.WriteString("Request: ")
	b.WriteString(query)
	b.WriteString("\n\nCandidates:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- id=%s similarity=%.3f", c.UserID, c.Score)
		if len(c.Tags) > 0 {
			fmt.Fprintf(&b, " tags=%s", strings.Join(c.Tags, ","))
		}
		fmt.Fprintf(&b, "\n  %s\n", c.ProfileText)
	}
	return b.String()
}

func clampScore(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
