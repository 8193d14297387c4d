// Package conversation is the orchestrator: one entry point that
// classifies an incoming message and routes it through the search,
// inquiry, chat or casual path, always answering with the unified
// envelope. Degraded dependencies narrow the answer but never fail the
// conversation outright; only storage-level faults surface as errors.
package conversation

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
	"github.com/kindred-social/matchengine/internal/domain/intent"
	"github.com/kindred-social/matchengine/internal/metrics"
	"github.com/kindred-social/matchengine/internal/notify"
	"github.com/kindred-social/matchengine/internal/retry"
)

const chatPrompt = `You are a warm, concise matchmaking assistant. Reply in the
language of the message. If the conversation drifts toward meeting people,
gently invite the user to describe who they would like to meet.`

const inquiryPrompt = `You answer questions about a member's profile for a
matchmaking assistant. Use only the profile below; say so when the profile
does not answer the question. Reply in the language of the question, in at
most three sentences. Do not reveal contact details.

Profile:
%s`

// Input is one conversation turn.
type Input struct {
	RequesterID string
	Text        string
	// ReferencedID names the profile currently on screen, if any. It
	// biases classification toward inquiry and scopes the inquiry path.
	ReferencedID string
	// ExcludeIDs are caller-supplied exclusions merged into the swipe
	// history before retrieval.
	ExcludeIDs []string
	// RequesterContext optionally summarizes the requester (profile
	// snippet, stated preferences) and is surfaced to classification.
	RequesterContext string
}

// Service orchestrates conversation turns.
type Service struct {
	classifier Classifier
	optimizer  Optimizer
	matcher    Matcher
	casual     CasualSubmitter
	swipes     SwipeHistory
	profiles   ProfileReader
	llm        Completer
	attempts   int
	backoff    time.Duration
	logger     *zap.Logger
}

// New creates the orchestrator.
func New(
	classifier Classifier, optimizer Optimizer, matcher Matcher,
	casual CasualSubmitter, swipes SwipeHistory, profiles ProfileReader,
	llm Completer, attempts int, backoff time.Duration, logger *zap.Logger,
) *Service {
	return &Service{
		classifier: classifier,
		optimizer:  optimizer,
		matcher:    matcher,
		casual:     casual,
		swipes:     swipes,
		profiles:   profiles,
		llm:        llm,
		attempts:   attempts,
		backoff:    backoff,
		logger:     logger,
	}
}

// Handle processes one message end to end.
func (s *Service) Handle(ctx context.Context, in Input) (domain.UnifiedResult, error) {
	if in.RequesterID == "" {
		return domain.UnifiedResult{}, fmt.Errorf("requester id is required")
	}
	if in.Text == "" {
		return domain.UnifiedResult{}, fmt.Errorf("message text is required")
	}

	lang := DetectLanguage(in.Text)
	cls := s.classifier.Classify(ctx, in.Text, in.ReferencedID, in.RequesterContext)

	s.logger.Debug("message classified",
		zap.String("requester_id", in.RequesterID),
		zap.String("intent", cls.Intent.String()),
		zap.Float64("confidence", cls.Confidence))

	switch cls.Intent {
	case intent.Search:
		return s.handleSearch(ctx, in, lang)
	case intent.Inquiry:
		return s.handleInquiry(ctx, in, lang)
	case intent.Casual:
		return s.handleCasual(ctx, in, lang)
	default:
		return s.handleChat(ctx, in, lang)
	}
}

func (s *Service) handleSearch(ctx context.Context, in Input, lang string) (domain.UnifiedResult, error) {
	query := s.optimizer.Rewrite(ctx, in.Text)

	exclude := s.exclusions(ctx, in)

	assessment, err := s.matcher.Match(ctx, query, exclude, lang)
	if err != nil {
		return domain.UnifiedResult{}, fmt.Errorf("progressive search: %w", err)
	}

	result := domain.UnifiedResult{
		Intent:   intent.Search,
		Language: lang,
		Matches:  assessment.Selected,
		Answer:   assessment.Intro,
	}
	if len(result.Matches) == 0 {
		result.Answer = notify.NoMatches(lang)
	} else if result.Answer == "" {
		result.Answer = notify.MatchReason(lang)
	}
	return result, nil
}

// exclusions composes the retrieval exclusion set: the requester, the
// caller-supplied ids and the swipe history. A failing history read is
// logged and skipped rather than failing the search.
func (s *Service) exclusions(ctx context.Context, in Input) []string {
	seen := map[string]bool{in.RequesterID: true}
	exclude := []string{in.RequesterID}

	add := func(ids []string) {
		for _, id := range ids {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			exclude = append(exclude, id)
		}
	}

	add(in.ExcludeIDs)

	swiped, err := s.swipes.ExcludedTargets(ctx, in.RequesterID)
	if err != nil {
		s.logger.Warn("swipe history unavailable, searching without it",
			zap.String("requester_id", in.RequesterID), zap.Error(err))
	} else {
		add(swiped)
	}

	return exclude
}

func (s *Service) handleInquiry(ctx context.Context, in Input, lang string) (domain.UnifiedResult, error) {
	if in.ReferencedID == "" {
		// Nothing to inquire about; treat as conversation.
		return s.handleChat(ctx, in, lang)
	}

	profileText, err := s.profiles.ProfileText(ctx, in.ReferencedID)
	if err != nil {
		s.logger.Warn("inquiry profile unavailable",
			zap.String("user_id", in.ReferencedID), zap.Error(err))
		return domain.UnifiedResult{
			Intent:   intent.Inquiry,
			Language: lang,
			Answer:   notify.InquiryFallback(lang),
		}, nil
	}

	answer := s.complete(ctx, domain.ChatRequest{
		Op:     domain.OpInquiry,
		System: fmt.Sprintf(inquiryPrompt, profileText),
		User:   in.Text,
	}, notify.InquiryFallback(lang))

	return domain.UnifiedResult{Intent: intent.Inquiry, Language: lang, Answer: answer}, nil
}

func (s *Service) handleChat(ctx context.Context, in Input, lang string) (domain.UnifiedResult, error) {
	answer := s.complete(ctx, domain.ChatRequest{
		Op:     domain.OpChat,
		System: chatPrompt,
		User:   in.Text,
	}, notify.ChatFallback(lang))

	return domain.UnifiedResult{Intent: intent.Chat, Language: lang, Answer: answer}, nil
}

func (s *Service) handleCasual(ctx context.Context, in Input, lang string) (domain.UnifiedResult, error) {
	receipt, err := s.casual.Submit(ctx, in.RequesterID, in.Text, lang)
	if err != nil {
		return domain.UnifiedResult{}, fmt.Errorf("casual submit: %w", err)
	}

	result := domain.UnifiedResult{
		Intent:   intent.Casual,
		Language: lang,
		Answer:   notify.CasualReceipt(lang, receipt.Match != nil),
	}
	if m := receipt.Match; m != nil {
		result.ReceiverNotification = m.ReceiverNotification
		result.Matches = []domain.MatchResult{{
			UserID:               m.UserID,
			MatchScore:           similarityToScore(m.Score),
			MatchReason:          m.Reason,
			ReceiverNotification: m.ReceiverNotification,
		}}
	}
	return result, nil
}

// complete runs a free-form completion with bounded retry, returning
// fallback when the model stays unavailable.
func (s *Service) complete(ctx context.Context, req domain.ChatRequest, fallback string) string {
	var res domain.ChatResult
	err := retry.Do(ctx, s.attempts, s.backoff, func(ctx context.Context) error {
		var err error
		res, err = s.llm.Complete(ctx, req)
		return err
	})
	if err != nil || res.Content == "" {
		s.logger.Warn("completion degraded to canned reply",
			zap.String("op", req.Op), zap.Error(err))
		metrics.LLMFallbacksTotal.WithLabelValues(req.Op).Inc()
		return fallback
	}
	return res.Content
}

func similarityToScore(sim float64) float64 {
	score := math.Round(sim * 10)
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
