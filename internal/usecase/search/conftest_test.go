package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
)

// --- Mocks ---

type mockRepo struct {
	denseResults  []domain.Candidate
	denseErr      error
	sparseResults []domain.Candidate
	sparseErr     error

	denseCalls  int
	sparseCalls int
	lastExclude []string
}

func (m *mockRepo) SearchDense(_ context.Context, _ []float32, _ int, excludeIDs []string) ([]domain.Candidate, error) {
	m.denseCalls++
	m.lastExclude = excludeIDs
	return m.denseResults, m.denseErr
}

func (m *mockRepo) SearchSparse(_ context.Context, _ domain.SparseVector, _, _ int, excludeIDs []string) ([]domain.Candidate, error) {
	m.sparseCalls++
	m.lastExclude = excludeIDs
	return m.sparseResults, m.sparseErr
}

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

type mockSparseEncoder struct {
	vec domain.SparseVector
}

func (m *mockSparseEncoder) Encode(_ string) domain.SparseVector {
	return m.vec
}

func newTestService(repo *mockRepo, emb *mockEmbedder, enc *mockSparseEncoder, fusion string) *Service {
	return New(repo, emb, enc, fusion, 24, zap.NewNop())
}
