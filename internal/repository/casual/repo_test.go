package casual

import (
	"context"
	"testing"
	"time"

	"github.com/kindred-social/matchengine/internal/db"
	"github.com/kindred-social/matchengine/internal/domain"
)

type mockStore struct {
	hashes  map[string]map[string]string
	kv      map[string][]byte
	knn     *db.SearchResult
	knnErr  error
	lastKNN *db.KNNQuery
	ranged  *db.SearchResult
}

func newMockStore() *mockStore {
	return &mockStore{
		hashes: make(map[string]map[string]string),
		kv:     make(map[string][]byte),
	}
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.hashes[key] = fields
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return m.hashes[key], nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	delete(m.hashes, key)
	delete(m.kv, key)
	return nil
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	_, hk := m.hashes[key]
	_, kk := m.kv[key]
	return hk || kk, nil
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	m.kv[key] = value
	return nil
}

func (m *mockStore) CreateIndex(_ context.Context, _ *db.IndexDefinition) error {
	return nil
}

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastKNN = q
	if m.knnErr != nil {
		return nil, m.knnErr
	}
	if m.knn == nil {
		return &db.SearchResult{}, nil
	}
	return m.knn, nil
}

func (m *mockStore) SearchRange(_ context.Context, _ *db.RangeQuery) (*db.SearchResult, error) {
	if m.ranged == nil {
		return &db.SearchResult{}, nil
	}
	return m.ranged, nil
}

func testRequest(userID string) domain.CasualRequest {
	return domain.CasualRequest{
		UserID:         userID,
		OriginalText:   "badminton?",
		OptimizedText:  "badminton tonight",
		LastActivityAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsert_WritesMetaAndVectorRecords(t *testing.T) {
	store := newMockStore()
	repo := New(store, "matchengine:", "casual_requests", 3)

	if err := repo.Upsert(context.Background(), testRequest("u1"), []float32{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if _, ok := store.kv["matchengine:casual_requests_meta:u1"]; !ok {
		t.Error("meta record missing")
	}
	vec, ok := store.hashes["matchengine:casual_requests:u1"]
	if !ok {
		t.Fatal("vector record missing")
	}
	if vec[fieldOptimizedText] != "badminton tonight" {
		t.Errorf("optimized text = %q", vec[fieldOptimizedText])
	}
	if vec[fieldLastActivityAt] != "1748779200" {
		t.Errorf("last activity = %q", vec[fieldLastActivityAt])
	}
}

func TestUpsert_ReplacesPriorRecord(t *testing.T) {
	store := newMockStore()
	repo := New(store, "matchengine:", "casual_requests", 3)

	first := testRequest("u1")
	if err := repo.Upsert(context.Background(), first, []float32{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}

	second := testRequest("u1")
	second.OptimizedText = "chess tomorrow"
	if err := repo.Upsert(context.Background(), second, []float32{0.4, 0.5, 0.6}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	if len(store.hashes) != 1 {
		t.Fatalf("expected a single live record, got %d", len(store.hashes))
	}
	if got := store.hashes["matchengine:casual_requests:u1"][fieldOptimizedText]; got != "chess tomorrow" {
		t.Errorf("record not replaced: %q", got)
	}
}

func TestUpsert_DimMismatch(t *testing.T) {
	repo := New(newMockStore(), "matchengine:", "casual_requests", 3)

	if err := repo.Upsert(context.Background(), testRequest("u1"), []float32{0.1}); err == nil {
		t.Fatal("expected error for vector dim mismatch")
	}
}

func TestGet_RoundTrip(t *testing.T) {
	store := newMockStore()
	repo := New(store, "matchengine:", "casual_requests", 3)

	in := testRequest("u1")
	in.Activity = "badminton"
	if err := repo.Upsert(context.Background(), in, []float32{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	out, err := repo.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if out.OptimizedText != in.OptimizedText || out.Activity != "badminton" {
		t.Errorf("payload lost: %+v", out)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := New(newMockStore(), "matchengine:", "casual_requests", 3)

	_, err := repo.Get(context.Background(), "ghost")
	if err != domain.ErrCasualRequestNotFound {
		t.Fatalf("expected ErrCasualRequestNotFound, got %v", err)
	}
}

func TestSearchNearest_StripsKeyPrefixAndExcludes(t *testing.T) {
	store := newMockStore()
	store.knn = &db.SearchResult{
		Total: 1,
		Entries: []db.SearchEntry{{
			Key:    "matchengine:casual_requests:u2",
			Score:  0.84,
			Fields: map[string]string{fieldOptimizedText: "badminton at 8pm"},
		}},
	}
	repo := New(store, "matchengine:", "casual_requests", 3)

	got, err := repo.SearchNearest(context.Background(), []float32{0.1, 0.2, 0.3}, 20, []string{"u1"})
	if err != nil {
		t.Fatalf("SearchNearest failed: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "u2" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if got[0].ProfileText != "badminton at 8pm" {
		t.Errorf("text = %q", got[0].ProfileText)
	}
	if store.lastKNN.Exclude == nil || store.lastKNN.Exclude.IDs[0] != "u1" {
		t.Errorf("exclusion not pushed into the store query: %+v", store.lastKNN.Exclude)
	}
}

func TestDelete_ReportsWhatExisted(t *testing.T) {
	store := newMockStore()
	repo := New(store, "matchengine:", "casual_requests", 3)

	if err := repo.Upsert(context.Background(), testRequest("u1"), []float32{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	meta, vector, err := repo.Delete(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !meta || !vector {
		t.Errorf("expected both records reported, got meta=%v vector=%v", meta, vector)
	}

	meta, vector, err = repo.Delete(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if meta || vector {
		t.Errorf("second delete should find nothing, got meta=%v vector=%v", meta, vector)
	}
}
