// Package casual persists casual-request records: at most one live record per
// user, dense-vector only, garbage-collected by recency of write.
package casual

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kindred-social/matchengine/internal/db"
	"github.com/kindred-social/matchengine/internal/domain"
)

// store is the consumer interface for casual record operations (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchRange(ctx context.Context, q *db.RangeQuery) (*db.SearchResult, error)
}

// Repo stores casual request records: a vector hash per user plus a
// relational meta record, both keyed by user id.
type Repo struct {
	store      store
	keyPrefix  string
	collection string
	vectorDim  int
}

// New creates a casual request repository.
func New(s store, keyPrefix, collection string, vectorDim int) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, collection: collection, vectorDim: vectorDim}
}

// IndexName returns the FT index backing the casual collection.
func (r *Repo) IndexName() string {
	return fmt.Sprintf("%s%s:idx", r.keyPrefix, r.collection)
}

func (r *Repo) vecKey(userID string) string {
	return fmt.Sprintf("%s%s:%s", r.keyPrefix, r.collection, userID)
}

func (r *Repo) metaKey(userID string) string {
	return fmt.Sprintf("%s%s_meta:%s", r.keyPrefix, r.collection, userID)
}

// EnsureIndex creates the casual FT index if it does not exist yet. The
// casual collection is small and churns constantly, so FLAT beats HNSW here.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := db.NewIndex(r.IndexName()).
		Prefix(fmt.Sprintf("%s%s:", r.keyPrefix, r.collection)).
		Tag(fieldUserID).
		Numeric(fieldLastActivityAt).
		Vector(fieldVector, r.vectorDim, db.VectorFlat, db.DistanceCosine).
		Build()
	if err != nil {
		return fmt.Errorf("build casual index: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create casual index: %w", err)
	}
	return nil
}

// Upsert replaces the user's casual request record. Both the vector record
// and the relational meta record are keyed by user id, so a second submission
// from the same user overwrites the first.
func (r *Repo) Upsert(ctx context.Context, req domain.CasualRequest, dense []float32) error {
	if req.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if len(dense) != r.vectorDim {
		return fmt.Errorf("vector dim mismatch: got %d, want %d", len(dense), r.vectorDim)
	}
	if req.LastActivityAt.IsZero() {
		req.LastActivityAt = time.Now().UTC()
	}

	meta, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode casual meta: %w", err)
	}

	if err := r.store.Set(ctx, r.metaKey(req.UserID), meta); err != nil {
		return fmt.Errorf("upsert casual meta %s: %w", req.UserID, err)
	}
	if err := r.store.HSet(ctx, r.vecKey(req.UserID), buildVectorFields(req, dense)); err != nil {
		return fmt.Errorf("upsert casual record %s: %w", req.UserID, err)
	}
	return nil
}

// Get returns the user's live casual request, if any.
func (r *Repo) Get(ctx context.Context, userID string) (domain.CasualRequest, error) {
	data, err := r.store.Get(ctx, r.metaKey(userID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.CasualRequest{}, domain.ErrCasualRequestNotFound
		}
		return domain.CasualRequest{}, fmt.Errorf("get casual meta %s: %w", userID, err)
	}

	var req domain.CasualRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.CasualRequest{}, fmt.Errorf("decode casual meta %s: %w", userID, err)
	}
	return req, nil
}

// SearchNearest returns up to k existing requests closest to the given
// vector, excluding the submitting user's own record inside the store.
func (r *Repo) SearchNearest(
	ctx context.Context, vector []float32, k int, excludeUserIDs []string,
) ([]domain.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    r.IndexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldUserID, fieldOptimizedText, "__vector_score"},
	}
	if len(excludeUserIDs) > 0 {
		q.Exclude = &db.Exclusion{TagField: fieldUserID, IDs: excludeUserIDs}
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search casual: %w", err)
	}

	prefix := fmt.Sprintf("%s%s:", r.keyPrefix, r.collection)
	candidates := make([]domain.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		candidates = append(candidates, domain.Candidate{
			UserID:      strings.TrimPrefix(e.Key, prefix),
			Score:       e.Score,
			ProfileText: e.Fields[fieldOptimizedText],
		})
	}
	return candidates, nil
}

// Expired returns user ids whose last_activity_at is at or before cutoff,
// up to limit.
func (r *Repo) Expired(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	sr, err := r.store.SearchRange(ctx, &db.RangeQuery{
		IndexName:    r.IndexName(),
		NumericField: fieldLastActivityAt,
		Min:          0,
		Max:          float64(cutoff.Unix()),
		Limit:        limit,
		ReturnFields: []string{fieldUserID},
	})
	if err != nil {
		return nil, fmt.Errorf("scan expired casual: %w", err)
	}

	prefix := fmt.Sprintf("%s%s:", r.keyPrefix, r.collection)
	ids := make([]string, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		ids = append(ids, strings.TrimPrefix(e.Key, prefix))
	}
	return ids, nil
}

// Delete removes the user's casual records and reports which of the two
// (relational meta, vector record) actually existed.
func (r *Repo) Delete(ctx context.Context, userID string) (meta, vector bool, err error) {
	metaKey := r.metaKey(userID)
	vecKey := r.vecKey(userID)

	if meta, err = r.store.Exists(ctx, metaKey); err != nil {
		return false, false, fmt.Errorf("check casual meta %s: %w", userID, err)
	}
	if meta {
		if err = r.store.Del(ctx, metaKey); err != nil {
			return false, false, fmt.Errorf("delete casual meta %s: %w", userID, err)
		}
	}

	if vector, err = r.store.Exists(ctx, vecKey); err != nil {
		return meta, false, fmt.Errorf("check casual record %s: %w", userID, err)
	}
	if vector {
		if err = r.store.Del(ctx, vecKey); err != nil {
			return meta, false, fmt.Errorf("delete casual record %s: %w", userID, err)
		}
	}

	return meta, vector, nil
}
