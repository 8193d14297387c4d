// Package profile persists user vector records: one record per active user,
// replaced on profile change, removed on deactivation.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/kindred-social/matchengine/internal/db"
	"github.com/kindred-social/matchengine/internal/domain"
)

// store is the consumer interface for profile record operations (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// HNSWConfig tunes the vector index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo stores user vector records as hashes under one FT index.
type Repo struct {
	store      store
	keyPrefix  string
	collection string
	vectorDim  int
	hnsw       HNSWConfig
}

// New creates a profile record repository.
func New(s store, keyPrefix, collection string, vectorDim int) *Repo {
	return &Repo{
		store:      s,
		keyPrefix:  keyPrefix,
		collection: collection,
		vectorDim:  vectorDim,
	}
}

// WithHNSW overrides the default HNSW build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// IndexName returns the FT index backing this collection.
func (r *Repo) IndexName() string {
	return fmt.Sprintf("%s%s:idx", r.keyPrefix, r.collection)
}

func (r *Repo) key(userID string) string {
	return fmt.Sprintf("%s%s:%s", r.keyPrefix, r.collection, userID)
}

// EnsureIndex creates the profile FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	b := db.NewIndex(r.IndexName()).
		Prefix(fmt.Sprintf("%s%s:", r.keyPrefix, r.collection)).
		Tag(fieldUserID).
		TagWithOpts(fieldTags, ",", false).
		Text(fieldProfileText).
		Numeric(fieldLastUpdated)
	if r.hnsw.M > 0 {
		b = b.VectorHNSW(fieldVector, r.vectorDim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct)
	} else {
		b = b.Vector(fieldVector, r.vectorDim, db.VectorHNSW, db.DistanceCosine)
	}

	def, err := b.Build()
	if err != nil {
		return fmt.Errorf("build profile index: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create profile index: %w", err)
	}
	return nil
}

// Upsert writes the user's vector record, replacing any existing one.
func (r *Repo) Upsert(
	ctx context.Context, p domain.Profile,
	dense []float32, sparse domain.SparseVector,
) error {
	if p.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if len(dense) != r.vectorDim {
		return fmt.Errorf("vector dim mismatch: got %d, want %d", len(dense), r.vectorDim)
	}

	fields, err := buildHashFields(p, dense, sparse)
	if err != nil {
		return fmt.Errorf("encode profile record: %w", err)
	}

	if err := r.store.HSet(ctx, r.key(p.UserID), fields); err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.UserID, err)
	}
	return nil
}

// Get returns the stored profile payload.
func (r *Repo) Get(ctx context.Context, userID string) (domain.Profile, error) {
	fields, err := r.store.HGetAll(ctx, r.key(userID))
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}
	if len(fields) == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return parseProfileFields(userID, fields), nil
}

// ProfileText returns the stored free-text profile for a user. This is the
// read used by the inquiry path.
func (r *Repo) ProfileText(ctx context.Context, userID string) (string, error) {
	p, err := r.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.ProfileText, nil
}

// Delete removes the user's vector record (deactivation).
func (r *Repo) Delete(ctx context.Context, userID string) error {
	key := r.key(userID)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check profile %s: %w", userID, err)
	}
	if !exists {
		return domain.ErrProfileNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete profile %s: %w", userID, err)
	}
	return nil
}
