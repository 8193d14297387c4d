package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
)

// Query describes one retrieval pass over the profile index.
type Query struct {
	Text       string
	Breadth    int
	ExcludeIDs []string
	// DenseOnly skips the lexical leg; used by the widest retrieval
	// pass where recall matters more than term precision.
	DenseOnly bool
}

// Service retrieves candidates with hybrid dense plus sparse search.
type Service struct {
	repo      Repository
	embed     Embedder
	sparse    SparseEncoder
	fusion    string
	topTokens int
	logger    *zap.Logger
}

// New creates a search service. fusion selects the rank fusion strategy
// (FusionRRF or FusionDBSF); topTokens caps the sparse query width.
func New(repo Repository, embed Embedder, sparse SparseEncoder, fusion string, topTokens int, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		embed:     embed,
		sparse:    sparse,
		fusion:    fusion,
		topTokens: topTokens,
		logger:    logger,
	}
}

// Search runs the dense leg and, unless q.DenseOnly is set, the sparse
// leg, then fuses the rankings. A failing sparse leg degrades to
// dense-only results; a failing dense leg fails the whole pass.
func (s *Service) Search(ctx context.Context, q Query) ([]domain.Candidate, error) {
	embResult, err := s.embed.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	dense, err := s.repo.SearchDense(ctx, embResult.Embedding, q.Breadth, q.ExcludeIDs)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}

	if q.DenseOnly {
		return dedupe(dense, q.Breadth), nil
	}

	sparseVec := s.sparse.Encode(q.Text)
	if len(sparseVec) == 0 {
		return dedupe(dense, q.Breadth), nil
	}

	sparse, err := s.repo.SearchSparse(ctx, sparseVec, s.topTokens, q.Breadth, q.ExcludeIDs)
	if err != nil {
		s.logger.Warn("sparse leg failed, continuing dense-only", zap.Error(err))
		return dedupe(dense, q.Breadth), nil
	}

	if s.fusion == FusionDBSF {
		return fuseDBSF(dense, sparse, q.Breadth), nil
	}
	return fuseRRF(dense, sparse, q.Breadth), nil
}

// Retrieve adapts Search to flat arguments for composition with the
// progressive controller.
func (s *Service) Retrieve(ctx context.Context, text string, breadth int, excludeIDs []string, denseOnly bool) ([]domain.Candidate, error) {
	return s.Search(ctx, Query{
		Text:       text,
		Breadth:    breadth,
		ExcludeIDs: excludeIDs,
		DenseOnly:  denseOnly,
	})
}

// dedupe keeps the best-scored entry per user id and restores the
// deterministic ordering.
func dedupe(list []domain.Candidate, topK int) []domain.Candidate {
	merged := make(map[string]*domain.Candidate, len(list))
	for _, c := range list {
		if existing, ok := merged[c.UserID]; ok {
			if c.Score > existing.Score {
				*existing = c
			}
			continue
		}
		c := c
		merged[c.UserID] = &c
	}
	return collect(merged, topK)
}
