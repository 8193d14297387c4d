package casual

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
)

type mockRepo struct {
	upserted    []domain.CasualRequest
	upsertErr   error
	nearest     []domain.Candidate
	nearestErr  error
	lastExclude []string

	expiredPages [][]string
	expiredErr   error
	expiredCalls int
	deleted      []string
	deleteMeta   bool
	deleteVector bool
	deleteErr    error
}

func (m *mockRepo) Upsert(_ context.Context, req domain.CasualRequest, _ []float32) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, req)
	return nil
}

func (m *mockRepo) SearchNearest(_ context.Context, _ []float32, _ int, excludeUserIDs []string) ([]domain.Candidate, error) {
	m.lastExclude = excludeUserIDs
	if m.nearestErr != nil {
		return nil, m.nearestErr
	}
	return m.nearest, nil
}

func (m *mockRepo) Expired(_ context.Context, _ time.Time, _ int) ([]string, error) {
	if m.expiredErr != nil {
		return nil, m.expiredErr
	}
	if m.expiredCalls >= len(m.expiredPages) {
		return nil, nil
	}
	page := m.expiredPages[m.expiredCalls]
	m.expiredCalls++
	return page, nil
}

func (m *mockRepo) Delete(_ context.Context, userID string) (bool, bool, error) {
	if m.deleteErr != nil {
		return false, false, m.deleteErr
	}
	m.deleted = append(m.deleted, userID)
	return m.deleteMeta, m.deleteVector, nil
}

type mockCompleter struct {
	replies []string
	errs    []error
	calls   int
	ops     []string
}

func (m *mockCompleter) CompleteJSON(_ context.Context, req domain.ChatRequest, out any) (domain.ChatResult, error) {
	i := m.calls
	m.calls++
	m.ops = append(m.ops, req.Op)
	if i < len(m.errs) && m.errs[i] != nil {
		return domain.ChatResult{}, m.errs[i]
	}
	reply := m.replies[min(i, len(m.replies)-1)]
	if err := json.Unmarshal([]byte(reply), out); err != nil {
		return domain.ChatResult{}, &domain.ParseError{Raw: reply, Err: err}
	}
	return domain.ChatResult{Content: reply}, nil
}

type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}, nil
}

func newTestService(repo *mockRepo, llm Completer, embed Embedder) *Service {
	svc := New(repo, llm, embed, 20, 1, 0, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}
