package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
)

type mockRepo struct {
	upserted   []domain.Profile
	lastDense  []float32
	lastSparse domain.SparseVector
	upsertErr  error
	deleted    []string
}

func (m *mockRepo) Upsert(_ context.Context, p domain.Profile, dense []float32, sparse domain.SparseVector) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, p)
	m.lastDense = dense
	m.lastSparse = sparse
	return nil
}

func (m *mockRepo) Get(_ context.Context, userID string) (domain.Profile, error) {
	return domain.Profile{UserID: userID, ProfileText: "stored text"}, nil
}

func (m *mockRepo) ProfileText(_ context.Context, _ string) (string, error) {
	return "stored text", nil
}

func (m *mockRepo) Delete(_ context.Context, userID string) error {
	m.deleted = append(m.deleted, userID)
	return nil
}

type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type mockSparse struct{}

func (mockSparse) Encode(_ string) domain.SparseVector {
	return domain.SparseVector{"hiking": 1.5}
}

func newTestService(repo *mockRepo, embed *mockEmbedder) *Service {
	svc := New(repo, embed, mockSparse{}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestSync_EmbedsAndStores(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, &mockEmbedder{})

	err := svc.Sync(context.Background(), domain.Profile{UserID: "u1", ProfileText: "Avid hiker."})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(repo.upserted))
	}
	if len(repo.lastDense) != 2 {
		t.Errorf("dense vector not stored: %v", repo.lastDense)
	}
	if repo.lastSparse["hiking"] != 1.5 {
		t.Errorf("sparse vector not stored: %v", repo.lastSparse)
	}
}

func TestSync_DefaultsLastUpdated(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, &mockEmbedder{})

	if err := svc.Sync(context.Background(), domain.Profile{UserID: "u1", ProfileText: "text"}); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !repo.upserted[0].LastUpdated.Equal(want) {
		t.Errorf("LastUpdated = %v, want %v", repo.upserted[0].LastUpdated, want)
	}
}

func TestSync_KeepsCallerTimestamp(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, &mockEmbedder{})

	updated := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := svc.Sync(context.Background(), domain.Profile{
		UserID: "u1", ProfileText: "text", LastUpdated: updated,
	}); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !repo.upserted[0].LastUpdated.Equal(updated) {
		t.Errorf("caller timestamp overridden: %v", repo.upserted[0].LastUpdated)
	}
}

func TestSync_Validation(t *testing.T) {
	svc := newTestService(&mockRepo{}, &mockEmbedder{})

	if err := svc.Sync(context.Background(), domain.Profile{ProfileText: "text"}); err == nil {
		t.Error("missing user id must fail")
	}
	if err := svc.Sync(context.Background(), domain.Profile{UserID: "u1", ProfileText: "   "}); err == nil {
		t.Error("blank profile text must fail")
	}
}

func TestSync_EmbedFailure(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, &mockEmbedder{err: errors.New("provider down")})

	if err := svc.Sync(context.Background(), domain.Profile{UserID: "u1", ProfileText: "text"}); err == nil {
		t.Fatal("embed failure must fail the sync")
	}
	if len(repo.upserted) != 0 {
		t.Error("nothing should be stored without a vector")
	}
}

func TestDeactivate(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, &mockEmbedder{})

	if err := svc.Deactivate(context.Background(), "u1"); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "u1" {
		t.Errorf("delete not forwarded: %v", repo.deleted)
	}
}
