// Package match implements the progressive retrieval controller: a fixed
// ladder of search tiers with strictly increasing breadth, where each
// tier's candidate set is quality-gated before the next, wider pass is
// allowed to run. The ladder never exceeds its configured depth and the
// final tier always produces a terminal answer.
package match

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
	"github.com/kindred-social/matchengine/internal/metrics"
)

// Session is one progressive search run. ExcludeIDs is fixed up front
// and only grows by construction; the controller never removes entries.
type Session struct {
	Query      string
	ExcludeIDs []string
	Language   string
}

// Outcome reports the terminal assessment and how deep the ladder went.
type Outcome struct {
	Assessment domain.Assessment
	TiersUsed  int
}

// Service walks the tier ladder.
type Service struct {
	retriever  Retriever
	assessor   Assessor
	tiers      []int
	maxResults int
	logger     *zap.Logger
}

// New creates a progressive match controller. tiers holds per-tier
// retrieval breadths in ascending order; maxResults caps the final
// selection.
func New(retriever Retriever, assessor Assessor, tiers []int, maxResults int, logger *zap.Logger) *Service {
	return &Service{
		retriever:  retriever,
		assessor:   assessor,
		tiers:      tiers,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Run executes tiers until the assessor is satisfied or the ladder is
// exhausted. Retrieval failures count as an empty candidate set and
// escalate; the widest tier is always terminal. The only returned error
// is context cancellation.
func (s *Service) Run(ctx context.Context, sess Session) (Outcome, error) {
	var assessment domain.Assessment

	for tier, breadth := range s.tiers {
		if err := ctx.Err(); err != nil {
			return Outcome{TiersUsed: tier}, err
		}

		last := tier == len(s.tiers)-1
		metrics.SearchTiersTotal.WithLabelValues(strconv.Itoa(tier)).Inc()

		candidates, err := s.retriever.Retrieve(ctx, sess.Query, breadth, sess.ExcludeIDs, last)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{TiersUsed: tier + 1}, ctx.Err()
			}
			s.logger.Warn("tier retrieval failed, escalating",
				zap.Int("tier", tier), zap.Error(err))
			candidates = nil
		}

		if len(candidates) == 0 {
			if last {
				return Outcome{
					Assessment: domain.Assessment{OverallQuality: domain.QualityPoor},
					TiersUsed:  tier + 1,
				}, nil
			}
			continue
		}

		assessment = s.assessor.Assess(ctx, sess.Query, candidates, sess.Language)

		if last || assessment.OverallQuality.Sufficient() || !assessment.ShouldContinue {
			assessment.ShouldContinue = false
			return Outcome{Assessment: s.cap(assessment), TiersUsed: tier + 1}, nil
		}
	}

	// Ladder configured empty; treat as an exhausted search.
	return Outcome{Assessment: domain.Assessment{OverallQuality: domain.QualityPoor}}, nil
}

// Match adapts Run to flat arguments for composition.
func (s *Service) Match(ctx context.Context, query string, excludeIDs []string, lang string) (domain.Assessment, error) {
	out, err := s.Run(ctx, Session{Query: query, ExcludeIDs: excludeIDs, Language: lang})
	return out.Assessment, err
}

func (s *Service) cap(a domain.Assessment) domain.Assessment {
	if len(a.Selected) > s.maxResults {
		a.Selected = a.Selected[:s.maxResults]
	}
	return a
}
